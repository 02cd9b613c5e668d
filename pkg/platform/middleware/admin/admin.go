// Package admin guards operator routes (tenant directory, manual sweep,
// escalation) behind a shared X-Admin-Token header.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"tally/pkg/platform/httputil"
	"tally/pkg/requestcontext"
)

const Header = "X-Admin-Token"

type guard struct {
	token  []byte
	logger *slog.Logger
}

func (g guard) authorized(r *http.Request) bool {
	return subtle.ConstantTimeCompare([]byte(r.Header.Get(Header)), g.token) == 1
}

func (g guard) reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	g.logger.WarnContext(ctx, "rejected admin request",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
		"token_present", r.Header.Get(Header) != "",
	)
	httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "unauthorized",
		"error_description": "admin token required",
	})
}

// RequireAdminToken returns a pass-through middleware when expectedToken is
// empty.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	if expectedToken == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := guard{token: []byte(expectedToken), logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.authorized(r) {
				g.reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
