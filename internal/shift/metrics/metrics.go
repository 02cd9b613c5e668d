package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks shift sessions. Safe on a nil receiver.
type Metrics struct {
	Opened   prometheus.Counter
	Closed   prometheus.Counter
	Duration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Opened: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_shifts_opened_total",
			Help: "Shifts opened",
		}),
		Closed: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_shifts_closed_total",
			Help: "Shifts closed with a summary",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tally_shift_duration_hours",
			Help:    "Length of closed shifts in hours",
			Buckets: []float64{1, 2, 4, 6, 8, 10, 12, 16, 24},
		}),
	}
}

func (m *Metrics) IncrementOpened() {
	if m == nil {
		return
	}
	m.Opened.Inc()
}

func (m *Metrics) ObserveClosed(length time.Duration) {
	if m == nil {
		return
	}
	m.Closed.Inc()
	m.Duration.Observe(length.Hours())
}
