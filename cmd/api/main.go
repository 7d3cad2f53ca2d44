package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"vrpls/internal/api"
	"vrpls/internal/buildinfo"
	"vrpls/internal/config"
	"vrpls/internal/logging"
	"vrpls/internal/metrics"
)

func main() {
	_ = godotenv.Load()
	logging.FromEnv()

	cfg := config.LoadServer()
	search, err := config.LoadSearch(cfg.SearchConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load search config")
	}
	metrics.RegisterDefault()

	srvDeps, err := api.NewServer(cfg, search)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srvDeps.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", buildinfo.Version).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srvDeps.NewWebhookWorker(cfg.WebhookMaxAttempts).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		return srvDeps.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}
