// Package main is the entry point for the FinSight portfolio valuation
// service. It records buy/sell transactions against a per-user portfolio,
// caches quotes with a freshness window, and values holdings on demand.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/database"
	"github.com/finsight/finsight/internal/di"
	"github.com/finsight/finsight/internal/scheduler"
	"github.com/finsight/finsight/internal/server"
	"github.com/finsight/finsight/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Dur("freshness_window", cfg.FreshnessWindow).
		Msg("Starting FinSight")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	maintenance := scheduler.New(
		[]*database.DB{container.LedgerDB, container.PortfolioDB, container.CacheDB},
		container.CacheRepo,
		log,
	)
	sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := maintenance.HealthSweep(sweepCtx); err != nil {
		sweepCancel()
		log.Fatal().Err(err).Msg("Startup database health sweep failed")
	}
	sweepCancel()

	if err := maintenance.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}

	srv := server.New(cfg, container, log)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	maintenance.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("FinSight stopped")
}
