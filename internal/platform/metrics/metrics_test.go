package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New("test")
	promauto.With(m.Registry()).NewCounter(prometheus.CounterOpts{
		Name: "tally_example_total",
		Help: "example",
	}).Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "tally_example_total 3")
	assert.Contains(t, body, `tally_build_info{version="test"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
