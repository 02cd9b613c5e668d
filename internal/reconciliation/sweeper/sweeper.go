// Package sweeper runs the reconciliation sweep on a fixed interval.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/reconciliation/service"
)

type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

// Worker triggers a sweep every interval until ctx is cancelled. A failed
// pass is logged and the next tick tries again.
type Worker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sweeper: sweeper, interval: interval, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "sweeper started", "interval", w.interval)
	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "sweeper stopped")
			return ctx.Err()
		}
	}
}

// RunOnce performs a single pass and reports what it did.
func (w *Worker) RunOnce(ctx context.Context) service.SweepReport {
	report, err := w.sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "sweep pass failed", "error", err)
		}
		return report
	}
	if report.Examined > 0 {
		w.logger.InfoContext(ctx, "sweep pass finished",
			"examined", report.Examined,
			"matched", report.Matched,
			"flagged", report.Flagged,
			"expired", report.Expired,
			"failed", report.Failed,
		)
	}
	return report
}
