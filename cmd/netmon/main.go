package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"netmon/internal/app"
	"netmon/internal/config"
)

func main() {
	configPath := flag.String("config", "netmon.yaml", "Path to the config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	created, err := config.EnsureFile(*configPath)
	if err != nil {
		logger.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}
	if created {
		logger.Info("created default config file", "path", *configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config failed", "err", err)
		os.Exit(1)
	}
	logger.Info("starting netmon", "addr", cfg.General.ListenAddr, "metrics_file", cfg.MetricsPath())

	a := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		logger.Error("shutdown with error", "err", err)
		os.Exit(1)
	}
}
