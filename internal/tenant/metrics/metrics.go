package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant directory.
// All methods are safe on a nil receiver.
type Metrics struct {
	TenantsCreated  prometheus.Counter
	WaitersCreated  prometheus.Counter
	MerchantsAdded  prometheus.Counter
	MerchantLookups *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TenantsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		WaitersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_waiters_created_total",
			Help: "Total number of waiters registered",
		}),
		MerchantsAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "tally_merchants_added_total",
			Help: "Sub-merchant references added to allow-lists",
		}),
		MerchantLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_merchant_lookups_total",
			Help: "Allow-list lookups, by the source that answered and the result",
		}, []string{"source", "result"}),
	}
}

func (m *Metrics) IncrementTenantCreated() {
	if m == nil {
		return
	}
	m.TenantsCreated.Inc()
}

func (m *Metrics) IncrementWaiterCreated() {
	if m == nil {
		return
	}
	m.WaitersCreated.Inc()
}

func (m *Metrics) IncrementMerchantAdded() {
	if m == nil {
		return
	}
	m.MerchantsAdded.Inc()
}

// IncrementMerchantLookup records where an allow-list answer came from:
// "cache" or "store".
func (m *Metrics) IncrementMerchantLookup(source string, known bool) {
	if m == nil {
		return
	}
	result := "unknown"
	if known {
		result = "known"
	}
	m.MerchantLookups.WithLabelValues(source, result).Inc()
}
