package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/reconciliation/service"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) Sweep(context.Context) (service.SweepReport, error) {
	f.calls.Add(1)
	return service.SweepReport{Examined: 2, Expired: 2}, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	fake := &fakeSweeper{}
	w := New(fake, 5*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return fake.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestFailedPassDoesNotStopWorker(t *testing.T) {
	fake := &fakeSweeper{err: errors.New("ledger unavailable")}
	w := New(fake, 5*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return fake.calls.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestRunOnceReturnsReport(t *testing.T) {
	w := New(&fakeSweeper{}, time.Minute, nil)
	report := w.RunOnce(context.Background())
	assert.Equal(t, 2, report.Examined)
	assert.Equal(t, 2, report.Expired)
}
