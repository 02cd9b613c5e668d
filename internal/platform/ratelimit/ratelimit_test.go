package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowSlides(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindowWithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := range 3 {
		res, err := w.Allow(ctx, "t1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := w.Allow(ctx, "t1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30*time.Second, res.RetryAfter)

	other, err := w.Allow(ctx, "t2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are counted separately")

	now = now.Add(31 * time.Second)
	res, err = w.Allow(ctx, "t1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "the oldest hit left the window")
}

func TestNewLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewLimiter(NewWindow(), 0, time.Minute, nil))

	var l *Limiter
	called := false
	h := l.PerParam("ingest", "tenantID")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.True(t, called)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis down")
}

func TestPerParam(t *testing.T) {
	serve := func(store Store) func(tenant string) *httptest.ResponseRecorder {
		l := NewLimiter(store, 2, time.Minute, nil)
		r := chi.NewRouter()
		r.With(l.PerParam("ingest", "tenantID")).Post("/tenants/{tenantID}/receipts", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
		return func(tenant string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tenants/"+tenant+"/receipts", nil))
			return rec
		}
	}

	t.Run("rejects over the limit", func(t *testing.T) {
		post := serve(NewWindow())
		assert.Equal(t, http.StatusCreated, post("a").Code)
		rec := post("a")
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec = post("a")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "rate_limit_exceeded", body["error"])

		assert.Equal(t, http.StatusCreated, post("b").Code)
	})

	t.Run("store failure lets requests through", func(t *testing.T) {
		post := serve(failingStore{})
		for range 3 {
			assert.Equal(t, http.StatusCreated, post("a").Code)
		}
	})
}
