package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"tally/internal/reconciliation/metrics"
	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/circuit"
)

type fakeProducer struct {
	mu      sync.Mutex
	err     error
	records []*kgo.Record
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvents() []models.Event {
	recordID := id.NewRecordID()
	return []models.Event{
		{Type: models.EventRecordFlagged, TenantID: id.NewTenantID(), RecordID: recordID, Status: models.StatusFlagged, RiskScore: 75},
		{Type: models.EventDiscrepancyDetected, RecordID: recordID, Status: models.StatusFlagged},
	}
}

func TestKafka_PublishKeysByRecord(t *testing.T) {
	producer := &fakeProducer{}
	m := metrics.New(prometheus.NewRegistry())
	k := NewKafka(producer, WithLogger(quietLogger()), WithMetrics(m))

	events := sampleEvents()
	require.NoError(t, k.Publish(context.Background(), events))

	require.Len(t, producer.records, 2)
	for _, r := range producer.records {
		assert.Equal(t, DefaultTopic, r.Topic)
		assert.Equal(t, events[0].RecordID.String(), string(r.Key))
	}
	var decoded models.Event
	require.NoError(t, json.Unmarshal(producer.records[0].Value, &decoded))
	assert.Equal(t, models.EventRecordFlagged, decoded.Type)
	assert.Equal(t, "record.flagged", string(producer.records[0].Headers[0].Value))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsPublished))
}

func TestKafka_BreakerOpensAndDrops(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	m := metrics.New(prometheus.NewRegistry())
	now := time.Now()
	breaker := circuit.New("kafka",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	k := NewKafka(producer, WithBreaker(breaker), WithLogger(quietLogger()), WithMetrics(m))
	ctx := context.Background()

	assert.Error(t, k.Publish(ctx, sampleEvents()))
	assert.Error(t, k.Publish(ctx, sampleEvents()))
	assert.True(t, breaker.IsOpen())

	producer.err = nil
	assert.NoError(t, k.Publish(ctx, sampleEvents()))
	assert.Zero(t, producer.count())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("circuit_open")))

	now = now.Add(2 * time.Minute)
	assert.NoError(t, k.Publish(ctx, sampleEvents()))
	assert.Equal(t, 2, producer.count())
	assert.False(t, breaker.IsOpen())
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.Event
}

func (r *recordingSink) Publish(_ context.Context, events []models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, events)
	return nil
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestAsync_DeliversAndFlushesOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	a := NewAsync(sink, 4, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.NoError(t, a.Publish(context.Background(), sampleEvents()))
	assert.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestAsync_FullQueueDrops(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	a := NewAsync(&recordingSink{}, 1, quietLogger(), m)

	require.NoError(t, a.Publish(context.Background(), sampleEvents()))
	require.NoError(t, a.Publish(context.Background(), sampleEvents()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("buffer_full")))
}

func TestLog_PublishNeverFails(t *testing.T) {
	assert.NoError(t, NewLog(quietLogger()).Publish(context.Background(), sampleEvents()))
}
