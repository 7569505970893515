package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketmania/internal/api"
	"marketmania/internal/catalog"
	"marketmania/internal/config"
	"marketmania/internal/db"
	"marketmania/internal/game"
	"marketmania/internal/market"
	"marketmania/internal/sim"
	"marketmania/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cat, err := catalog.Load()
	if err != nil {
		logger.Error("catalog load failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.InitSchema {
		if err := db.Init(ctx, pool); err != nil {
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
	}

	gameSvc := game.NewService(pool, cat.Stocks, logger)
	registry := sim.NewRegistry()
	engine := market.NewEngine()
	scheduler := sim.NewScheduler(sim.Config{
		PreviewDuration: cfg.PreviewDuration,
		PreviewSeconds:  config.PreviewNoticeSeconds,
		BreakDuration:   cfg.BreakDuration,
	}, registry, gameSvc, nil, engine, cat.Company, cat.General, cat.Historical, logger)

	hub := ws.NewHub(scheduler, registry, cfg.AllowedOrigin, logger)
	scheduler.SetBroadcaster(hub)

	server := api.New(cfg, logger, gameSvc, registry, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("market mania listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
