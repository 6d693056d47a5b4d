package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"campmap/internal/domain"
)

// CacheKey is the durable key for an address: geo:<lowercased address>.
func CacheKey(address string) string {
	return "geo:" + strings.ToLower(address)
}

// GeoCache is a best-effort address cache. Faults are logged and read as a
// miss; a nil *GeoCache or nil backend caches nothing.
type GeoCache struct {
	c      domain.Cache
	ttlSec int
}

// NewGeoCache wraps c. ttl <= 0 keeps entries forever.
func NewGeoCache(c domain.Cache, ttl time.Duration) *GeoCache {
	return &GeoCache{c: c, ttlSec: int(ttl.Seconds())}
}

func (g *GeoCache) Get(ctx context.Context, address string) (domain.Coordinates, bool) {
	if g == nil || g.c == nil {
		return domain.Coordinates{}, false
	}
	var c domain.Coordinates
	ok, err := g.c.Get(ctx, CacheKey(address), &c)
	if err != nil {
		log.Debug().Err(err).Str("address", address).Msg("geocode cache read failed")
		return domain.Coordinates{}, false
	}
	if !ok || !c.Valid() {
		return domain.Coordinates{}, false
	}
	return c, true
}

func (g *GeoCache) Put(ctx context.Context, address string, c domain.Coordinates) {
	if g == nil || g.c == nil {
		return
	}
	if err := g.c.Set(ctx, CacheKey(address), c, g.ttlSec); err != nil {
		log.Debug().Err(err).Str("address", address).Msg("geocode cache write failed")
	}
}
