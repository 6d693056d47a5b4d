package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"campmap/internal/adapters/catalog"
	"campmap/internal/adapters/google"
	server "campmap/internal/adapters/http_server"
	"campmap/internal/adapters/observability"
	"campmap/internal/app"
	"campmap/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, closeCache, err := shared.OpenCache(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cache unavailable, continuing without it")
	}
	defer closeCache()

	lang, err := language.Parse(cfg.CollationLang)
	if err != nil {
		log.Warn().Str("lang", cfg.CollationLang).Msg("unknown COLLATION_LANG, using pl")
		lang = language.Polish
	}

	// deps
	// retries share one deadline that ends before the router gives up
	deadline := cfg.GatewayDeadline(server.RequestTimeout)
	provider := google.New(cfg.GeocodeBase, cfg.GeocodeRPS, deadline, 3)
	gateway := app.NewGeocodeService(provider, cfg.MapsKey, deadline)
	orch := app.NewOrchestrator(gateway, app.NewGeoCache(cache, cfg.CacheTTL), cfg.GeocodeDelay)
	defer orch.Close()
	offers := app.NewOfferService(catalog.New(cfg.OffersFile), orch, app.NewEngine(lang))
	defer offers.Close()

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{G: gateway, O: offers})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return observability.Serve(gctx, cfg.MetricsAddr, observability.MetricsHandler(reg)) })
	g.Go(func() error {
		// first pass starts at boot so markers are ready for the first visitor
		if _, err := offers.Refresh(gctx); err != nil {
			log.Error().Err(err).Msg("initial offer load failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("shutdown complete")
}
