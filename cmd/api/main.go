package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberhive54/EZfinance-sub001/pkg/config"
	"github.com/cyberhive54/EZfinance-sub001/pkg/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Cleanup()

	deps.Scheduler.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := deps.Scheduler.Stop(ctx); err != nil {
			logger.Error("scheduler shutdown timed out", "error", err)
		}
	}()

	if cfg.Observability.MetricsEnabled {
		srv := metrics.Serve(cfg.Observability.MetricsPort, deps.Registry)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Info("metrics endpoint listening", "port", cfg.Observability.MetricsPort)
	}

	logger.Info("import service ready")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
}
