// Package main is the entry point for ShareSathi, a dashboard for tracking
// Indian equities across watchlists and sizing up past investments.
//
// Startup order:
//   - configuration from the environment (.env is honoured)
//   - structured logging, optionally mirrored to a rotating file
//   - dependency wiring (databases, repositories, services, scheduled jobs)
//   - the cron scheduler and the HTTP server
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/sharesathi/internal/config"
	"github.com/aristath/sharesathi/internal/di"
	"github.com/aristath/sharesathi/internal/server"
	"github.com/aristath/sharesathi/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		File:   cfg.LogFile,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Bool("dev_mode", cfg.DevMode).
		Bool("backups", cfg.Backup.Enabled()).
		Msg("Starting ShareSathi")

	// Databases are closed last so in-flight requests and jobs can finish
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()

	// Warm the quote cache so the first dashboard load is not cold
	if jobs.PrefetchQuotes != nil {
		go func() {
			if err := jobs.PrefetchQuotes.Run(); err != nil {
				log.Warn().Err(err).Msg("Initial quote prefetch failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop accepting new job runs; running jobs finish before Stop returns
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
