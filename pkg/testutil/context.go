package testutil

import (
	"net/http"
	"time"

	"tally/pkg/requestcontext"
)

// WithTime pins the request clock the way the requesttime middleware would.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
