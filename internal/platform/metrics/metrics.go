// Package metrics owns the process Prometheus registry and its scrape
// endpoint. Module metrics register against Registry().
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry plus the process-level build gauge.
type Metrics struct {
	registry *prometheus.Registry
	Build    *prometheus.GaugeVec
}

// New creates a registry with Go runtime and process collectors.
func New(version string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Metrics{
		registry: reg,
		Build: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "tally_build_info",
			Help: "Build information, always 1",
		}, []string{"version"}),
	}
	m.Build.WithLabelValues(version).Set(1)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
