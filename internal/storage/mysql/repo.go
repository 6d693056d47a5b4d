package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"campmap/internal/adapters/observability"
)

// Cache is a durable key-value store over the geocode_cache table. It
// satisfies domain.Cache.
type Cache struct{ db *sql.DB }

func New(db *sql.DB) *Cache { return &Cache{db: db} }

// Migrate creates the cache table when it does not exist yet.
func (c *Cache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, createCacheTableSQL)
	return err
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, getEntrySQL, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveCache("mysql", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("mysql", "error")
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		observability.ObserveCache("mysql", "error")
		return false, err
	}
	observability.ObserveCache("mysql", "hit")
	return true, nil
}

// Set upserts v as JSON. ttlSec <= 0 stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		observability.ObserveCache("mysql", "error")
		return err
	}
	var expires any
	if ttlSec > 0 {
		expires = time.Now().UTC().Add(time.Duration(ttlSec) * time.Second)
	}
	observability.ObserveCache("mysql", "set")
	_, err = c.db.ExecContext(ctx, upsertEntrySQL, key, string(b), expires)
	return err
}

func (c *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("mysql", "del")
	_, err := c.db.ExecContext(ctx, deleteEntrySQL, key)
	return err
}
