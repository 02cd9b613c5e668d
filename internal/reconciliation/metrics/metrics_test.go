package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementSubmission("receipt", true)
	m.IncrementSubmission("receipt", false)
	m.IncrementSubmission("receipt", false)
	m.ObserveSettled("flagged", 80)
	m.IncrementDropped("circuit_open")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("receipt", "created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("receipt", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settled.WithLabelValues("flagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("circuit_open")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementSubmission("payment", true)
		m.ObserveSettled("matched", 1)
		m.IncrementSweepFailure()
		m.IncrementPublished()
	})
}
