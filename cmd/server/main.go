package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/platform/config"
	"tally/internal/platform/httpserver"
	"tally/internal/platform/logger"
	"tally/internal/platform/metrics"
	"tally/internal/reconciliation/sweeper"
)

var version = "dev"

const shutdownGrace = 15 * time.Second

// main wires dependencies and runs the HTTP server, the event publisher and
// the sweeper until SIGINT or SIGTERM. Business logic lives in the internal
// service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tally: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("tally stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("tally stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New(version)
	app, err := buildApp(ctx, cfg, log, m.Registry())
	if err != nil {
		return err
	}
	defer app.Close()

	srv := httpserver.New(cfg.Server.Addr, newRouter(cfg, log, app, m))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting tally", "addr", cfg.Server.Addr, "version", version, "storage", app.storage)
		return httpserver.Serve(gctx, srv, shutdownGrace)
	})
	if app.events != nil {
		g.Go(func() error {
			return ignoreCanceled(app.events.Run(gctx))
		})
	}
	if cfg.SweepEnabled {
		worker := sweeper.New(app.reconciliation, cfg.Reconciliation.SweepInterval(), log)
		g.Go(func() error {
			return ignoreCanceled(worker.Run(gctx))
		})
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
