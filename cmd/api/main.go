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
	"github.com/robfig/cron/v3"

	"github.com/footyverse/prediction-league/internal/app"
	"github.com/footyverse/prediction-league/internal/config"
	"github.com/footyverse/prediction-league/internal/observability"
	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := application.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QStashEnabled {
		go func() {
			bootstrapCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			result, err := application.Orchestrator.Bootstrap(bootstrapCtx)
			if err != nil {
				logger.Error("bootstrap job chain", "error", err)
				return
			}
			logger.Info("bootstrap job chain",
				"mode", result.Mode,
				"queued_count", result.QueuedCount,
			)
		}()
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.RecoveryCronSpec, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		result, err := application.Recovery.Recover(runCtx, usecase.RecoveryInput{
			LookbackDays: cfg.RecoveryLookbackDays,
		})
		if err != nil {
			logger.Error("scheduled recovery failed", "error", err)
			return
		}
		logger.Info("scheduled recovery finished",
			"fixtures_scanned", result.FixturesScanned,
			"predictions_scanned", result.PredictionsScanned,
			"fixtures_reattempted", result.FixturesReattempted,
			"fixtures_scored", result.FixturesScored,
			"predictions_rescored", result.PredictionsRescored,
			"unfixable", result.Unfixable,
		)
	})
	if err != nil {
		logger.Error("schedule recovery cron", "error", err, "spec", cfg.RecoveryCronSpec)
		os.Exit(1)
	}
	scheduler.Start()

	<-ctx.Done()

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	if err := application.Close(); err != nil {
		logger.Error("close app resources", "error", err)
	}

	if pprofSrv != nil {
		if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
			logger.Error("stop pprof server", "error", err)
		}
	}

	if err := stopPyroscope(); err != nil {
		logger.Error("stop pyroscope", "error", err)
	}

	if err := shutdownUptrace(shutdownCtx); err != nil {
		logger.Error("shutdown uptrace", "error", err)
	}

	logger.Info("http server stopped")
}
