// Package ratelimit implements sliding-window request limits with an
// in-memory store for single instances and a Redis store shared across
// replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store counts hits per key over a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Window is the in-memory Store. State is lost on restart.
type Window struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	now     func() time.Time
}

func NewWindow() *Window {
	return &Window{buckets: make(map[string][]time.Time), now: time.Now}
}

// NewWindowWithClock is NewWindow with a fixed time source for tests.
func NewWindowWithClock(now func() time.Time) *Window {
	w := NewWindow()
	w.now = now
	return w
}

func (w *Window) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	hits := prune(w.buckets[key], now.Add(-window))
	if len(hits) >= limit {
		w.buckets[key] = hits
		reset := now.Add(window)
		if len(hits) > 0 {
			reset = hits[0].Add(window)
		}
		return Result{Limit: limit, ResetAt: reset, RetryAfter: reset.Sub(now)}, nil
	}

	hits = append(hits, now)
	w.buckets[key] = hits
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(hits),
		ResetAt:   hits[0].Add(window),
	}, nil
}

// prune drops hits at or before cutoff. hits is sorted.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(hits); i++ {
		if hits[i].After(cutoff) {
			break
		}
	}
	return hits[i:]
}
