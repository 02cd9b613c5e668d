// Package publisher delivers reconciliation events after ledger changes
// commit. Delivery is best-effort: a failed publish never rolls back a
// committed record.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"tally/internal/reconciliation/metrics"
	"tally/internal/reconciliation/models"
	"tally/pkg/platform/circuit"
)

const DefaultTopic = "reconciliation.events"

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes events as JSON keyed by record id, so every event for a
// record lands on the same partition in commit order.
type Kafka struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Kafka)

func WithTopic(topic string) Option {
	return func(k *Kafka) {
		if topic != "" {
			k.topic = topic
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(k *Kafka) {
		k.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(k *Kafka) {
		k.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(k *Kafka) {
		k.metrics = m
	}
}

func NewKafka(producer Producer, opts ...Option) *Kafka {
	k := &Kafka{
		producer: producer,
		topic:    DefaultTopic,
		breaker:  circuit.New("kafka"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Publish sends events synchronously. While the breaker is open events are
// dropped and counted instead of waiting on an unhealthy broker.
func (k *Kafka) Publish(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	if !k.breaker.Allow() {
		k.drop(ctx, "circuit_open", events)
		return nil
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", e.Type, err)
		}
		records = append(records, &kgo.Record{
			Topic:   k.topic,
			Key:     []byte(e.RecordID.String()),
			Value:   payload,
			Headers: []kgo.RecordHeader{{Key: "event_type", Value: []byte(e.Type)}},
		})
	}

	if err := k.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		if _, change := k.breaker.RecordFailure(); change.Opened {
			k.logger.WarnContext(ctx, "event publishing circuit opened", "breaker", k.breaker.Name(), "error", err)
		}
		k.drop(ctx, "produce_error", events)
		return fmt.Errorf("produce events: %w", err)
	}
	if _, change := k.breaker.RecordSuccess(); change.Closed {
		k.logger.InfoContext(ctx, "event publishing circuit closed", "breaker", k.breaker.Name())
	}
	for range events {
		k.metrics.IncrementPublished()
	}
	return nil
}

func (k *Kafka) drop(ctx context.Context, reason string, events []models.Event) {
	for _, e := range events {
		k.metrics.IncrementDropped(reason)
		k.logger.WarnContext(ctx, "reconciliation event dropped",
			"reason", reason,
			"event_type", e.Type,
			"record_id", e.RecordID,
			"tenant_id", e.TenantID,
		)
	}
}

// Log writes events to the structured log. It is the default when no broker
// is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Publish(ctx context.Context, events []models.Event) error {
	for _, e := range events {
		args := []any{
			"event_type", e.Type,
			"tenant_id", e.TenantID,
			"record_id", e.RecordID,
			"status", e.Status,
			"risk_score", e.RiskScore,
		}
		if e.Discrepancy != nil {
			args = append(args, "discrepancy_type", e.Discrepancy.Type, "severity", e.Discrepancy.Severity)
		}
		l.logger.InfoContext(ctx, string(e.Type), args...)
	}
	return nil
}
