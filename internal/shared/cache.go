package shared

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	redisad "campmap/internal/adapters/redis"
	"campmap/internal/domain"
	mysqlrepo "campmap/internal/storage/mysql"
)

// OpenCache connects the configured durable cache. A nil Cache means
// caching is off; close is always safe to call.
func OpenCache(ctx context.Context, c Config) (cache domain.Cache, closeFn func(), err error) {
	switch c.CacheBackend {
	case BackendRedis:
		r := redisad.New(c.RedisAddr, c.RedisPass, c.RedisDB)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, func() {}, fmt.Errorf("redis ping: %w", err)
		}
		log.Info().Str("addr", c.RedisAddr).Msg("redis cache connected")
		return r, func() { _ = r.Close() }, nil

	case BackendMySQL:
		db, err := sql.Open("mysql", c.MySQLDSN)
		if err != nil {
			return nil, func() {}, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, func() {}, fmt.Errorf("db ping: %w", err)
		}
		repo := mysqlrepo.New(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, func() {}, fmt.Errorf("migrate geocode_cache: %w", err)
		}
		log.Info().Msg("mysql cache connected")
		return repo, func() { _ = db.Close() }, nil

	default:
		log.Info().Msg("geocode cache disabled")
		return nil, func() {}, nil
	}
}
