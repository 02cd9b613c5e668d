package publisher

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/reconciliation/metrics"
	"tally/internal/reconciliation/models"
)

// Sink is anything that can deliver a batch of events.
type Sink interface {
	Publish(ctx context.Context, events []models.Event) error
}

// Async decouples request latency from broker latency: Publish enqueues and
// Run drains the queue into the wrapped sink. A full queue drops the batch.
type Async struct {
	next    Sink
	inbox   chan []models.Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewAsync(next Sink, buffer int, logger *slog.Logger, m *metrics.Metrics) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{next: next, inbox: make(chan []models.Event, buffer), logger: logger, metrics: m}
}

func (a *Async) Publish(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	select {
	case a.inbox <- events:
	default:
		for range events {
			a.metrics.IncrementDropped("buffer_full")
		}
		a.logger.WarnContext(ctx, "event queue full, dropping batch", "events", len(events))
	}
	return nil
}

// Run delivers queued batches until ctx is cancelled, then flushes what is
// already queued within a short grace period.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return ctx.Err()
		case events := <-a.inbox:
			a.deliver(ctx, events)
		}
	}
}

func (a *Async) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case events := <-a.inbox:
			a.deliver(ctx, events)
		default:
			return
		}
	}
}

func (a *Async) deliver(ctx context.Context, events []models.Event) {
	if err := a.next.Publish(ctx, events); err != nil {
		a.logger.WarnContext(ctx, "failed to publish events", "events", len(events), "error", err)
	}
}
