package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	MapsKey        string
	GeocodeBase    string
	GeocodeRPS     int
	GeocodeTimeout time.Duration
	GeocodeDelay   time.Duration

	CacheBackend string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	MySQLDSN     string
	CacheTTL     time.Duration

	OffersFile    string
	CollationLang string
	GatewayURL    string
}

// Cache backends accepted in CACHE_BACKEND.
const (
	BackendRedis = "redis"
	BackendMySQL = "mysql"
	BackendNone  = "none"
)

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		MapsKey:        os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeocodeBase:    env("GEOCODE_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		GeocodeRPS:     atoi("GEOCODE_RPS", 5),
		GeocodeTimeout: time.Duration(atoi("GEOCODE_TIMEOUT_SECONDS", 10)) * time.Second,
		GeocodeDelay:   time.Duration(atoi("GEOCODE_DELAY_MS", 120)) * time.Millisecond,

		CacheBackend: env("CACHE_BACKEND", BackendRedis),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/campmap?parseTime=true&charset=utf8mb4&loc=UTC"),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 0)) * time.Second,

		OffersFile:    env("OFFERS_FILE", ""),
		CollationLang: env("COLLATION_LANG", "pl"),
		GatewayURL:    env("GATEWAY_URL", "http://localhost:8080"),
	}
	if c.MapsKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY is empty")
	}
	switch c.CacheBackend {
	case BackendRedis, BackendMySQL, BackendNone:
	default:
		log.Warn().Str("backend", c.CacheBackend).Msg("unknown CACHE_BACKEND, caching disabled")
		c.CacheBackend = BackendNone
	}
	return c
}

// deadlineMargin keeps the gateway's own 502 ahead of an enclosing timeout.
const deadlineMargin = 2 * time.Second

// GatewayDeadline is GeocodeTimeout, shortened when needed so it ends at
// least deadlineMargin before limit.
func (c Config) GatewayDeadline(limit time.Duration) time.Duration {
	d := c.GeocodeTimeout
	if d <= 0 {
		d = 10 * time.Second
	}
	if ceiling := limit - deadlineMargin; limit > 0 && d > ceiling {
		log.Warn().Dur("configured", d).Dur("limit", limit).Msg("GEOCODE_TIMEOUT_SECONDS too long, shortened")
		d = ceiling
	}
	return d
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
