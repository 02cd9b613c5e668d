package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers ingest, matching, the sweep and event publication.
// All methods are safe on a nil receiver.
type Metrics struct {
	Submissions     *prometheus.CounterVec
	Settled         *prometheus.CounterVec
	Discrepancies   *prometheus.CounterVec
	RiskScore       prometheus.Histogram
	MatchRetries    prometheus.Counter
	SubmitDuration  *prometheus.HistogramVec
	SweepDuration   prometheus.Histogram
	SweepRecords    *prometheus.CounterVec
	SweepFailures   prometheus.Counter
	EventsPublished prometheus.Counter
	EventsDropped   *prometheus.CounterVec
}

// New registers the reconciliation metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_submissions_total",
			Help: "Receipts and payment events submitted, by kind and whether they were new",
		}, []string{"kind", "outcome"}),
		Settled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_records_settled_total",
			Help: "Records that left pending, by resulting status",
		}, []string{"status"}),
		Discrepancies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_discrepancies_total",
			Help: "Discrepancies recorded, by type",
		}, []string{"type"}),
		RiskScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tally_risk_score",
			Help:    "Risk scores assigned when records settle",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		MatchRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_match_retries_total",
			Help: "Candidates dropped because another writer bound them first",
		}),
		SubmitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tally_submit_duration_seconds",
			Help:    "Duration of submit operations including matching",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tally_sweep_duration_seconds",
			Help:    "Duration of a full sweep pass",
			Buckets: prometheus.DefBuckets,
		}),
		SweepRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_sweep_records_total",
			Help: "Records handled by the sweep, by outcome",
		}, []string{"outcome"}),
		SweepFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_sweep_failures_total",
			Help: "Records the sweep skipped after an error",
		}),
		EventsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_events_published_total",
			Help: "Reconciliation events delivered to the broker",
		}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_events_dropped_total",
			Help: "Reconciliation events not delivered, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementSubmission(kind string, created bool) {
	if m == nil {
		return
	}
	outcome := "created"
	if !created {
		outcome = "duplicate"
	}
	m.Submissions.WithLabelValues(kind, outcome).Inc()
}

// ObserveSettled records a record leaving pending with its score.
func (m *Metrics) ObserveSettled(status string, score int) {
	if m == nil {
		return
	}
	m.Settled.WithLabelValues(status).Inc()
	m.RiskScore.Observe(float64(score))
}

func (m *Metrics) IncrementDiscrepancy(discrepancyType string) {
	if m == nil {
		return
	}
	m.Discrepancies.WithLabelValues(discrepancyType).Inc()
}

func (m *Metrics) IncrementMatchRetry() {
	if m == nil {
		return
	}
	m.MatchRetries.Inc()
}

// ObserveSubmit records a submit duration. Call with time.Now() at the start.
func (m *Metrics) ObserveSubmit(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.SubmitDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveSweep(start time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementSweepRecord(outcome string) {
	if m == nil {
		return
	}
	m.SweepRecords.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementSweepFailure() {
	if m == nil {
		return
	}
	m.SweepFailures.Inc()
}

func (m *Metrics) IncrementPublished() {
	if m == nil {
		return
	}
	m.EventsPublished.Inc()
}

func (m *Metrics) IncrementDropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}
