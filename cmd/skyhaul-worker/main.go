package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"skyhaul/internal/config"
	"skyhaul/internal/db"
	"skyhaul/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := game.NewService(pool, logger)
	if cfg.StartupSeedCatalogs {
		if err := svc.SeedDefaults(ctx); err != nil {
			logger.Error("seed catalogs failed", "err", err)
			os.Exit(1)
		}
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("SKYHAUL_WORKER_RUN_ONCE")), "true")
	if runOnce {
		refreshed, err := svc.RefreshMarket(ctx)
		if err != nil {
			logger.Error("market refresh failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "saves_refreshed", refreshed)
		return
	}

	ticker := time.NewTicker(cfg.MarketRefreshEvery)
	defer ticker.Stop()

	logger.Info("worker started", "refresh_every", cfg.MarketRefreshEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			refreshed, err := svc.RefreshMarket(ctx)
			if err != nil {
				logger.Error("market refresh failed", "err", err)
				continue
			}
			logger.Info("market refresh complete", "saves_refreshed", refreshed)
		}
	}
}
