package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"campmap/internal/adapters/catalog"
	"campmap/internal/adapters/geoapi"
	"campmap/internal/adapters/observability"
	"campmap/internal/app"
	"campmap/internal/domain"
	"campmap/internal/shared"
)

// warmcache runs one resolution pass over the catalog against a running
// gateway and stores every hit in the durable cache.
func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, closeCache, err := shared.OpenCache(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cache unavailable")
	}
	defer closeCache()
	if cache == nil {
		log.Fatal().Msg("CACHE_BACKEND=none, nothing to warm")
	}

	offers, err := catalog.New(cfg.OffersFile).Offers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load offers failed")
	}
	log.Info().
		Str("gateway", cfg.GatewayURL).
		Int("offers", len(offers)).
		Msg("warmcache starting")

	gw := geoapi.New(cfg.GatewayURL, cfg.GeocodeRPS, cfg.GeocodeTimeout)
	orch := app.NewOrchestrator(gw, app.NewGeoCache(cache, cfg.CacheTTL), cfg.GeocodeDelay)
	defer orch.Close()

	<-orch.Start(ctx, offers)

	var resolved, failed int
	for _, p := range offers {
		switch r := orch.State(p.ID); r.Status {
		case domain.StatusResolved:
			resolved++
		case domain.StatusFailed:
			failed++
			log.Warn().Str("offer", p.ID).Str("address", p.Address).Str("reason", r.Message).Msg("not placed")
		}
	}
	log.Info().Int("resolved", resolved).Int("failed", failed).Msg("warmcache completed")
}
