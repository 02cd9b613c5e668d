package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tally/pkg/platform/httputil"
	"tally/pkg/requestcontext"
)

// Limiter throttles requests per chi URL parameter, so it must be mounted
// inline with r.With where the route has already matched.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewLimiter returns nil when limit is not positive; a nil Limiter passes
// every request through.
func NewLimiter(store Store, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	if limit <= 0 || store == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{store: store, limit: limit, window: window, logger: logger}
}

// PerParam limits requests sharing the value of the named URL parameter.
// Store failures let the request through.
func (l *Limiter) PerParam(scope, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := scope + ":" + chi.URLParam(r, param)
			res, err := l.store.Allow(ctx, key, l.limit, l.window)
			if err != nil {
				l.logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", requestcontext.RequestID(ctx),
					"key", key,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				retry := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":             "rate_limit_exceeded",
					"error_description": "too many submissions for this tenant, retry later",
					"retry_after":       retry,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
