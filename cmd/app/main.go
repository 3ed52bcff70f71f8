package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bourse/internal/app"
	"bourse/internal/infra"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := infra.NewLogger(cfg)
	slog.SetDefault(log)

	bootstrap := app.NewBootstrap(cfg, log)
	if err := bootstrap.Initialize(); err != nil {
		log.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Graceful shutdown on interrupt; the run also ends on its own after
	// the configured duration.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx); err != nil {
		log.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}
