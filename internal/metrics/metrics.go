// Package metrics exposes link and cache counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linksim/linksim/estimate"
	"github.com/linksim/linksim/matcache"
)

// Metrics holds the collectors, all registered on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	transmissions *prometheus.CounterVec // by scheme
	bitErrors     *prometheus.CounterVec // by scheme
	cacheLookups  *prometheus.CounterVec // by outcome
	trials        prometheus.Counter
	bitErrorRate  prometheus.Histogram // per transmission
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		transmissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linksim_transmissions_total",
			Help: "Messages sent through the encode, channel, decode pipeline.",
		}, []string{"scheme"}),
		bitErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linksim_bit_errors_total",
			Help: "Decoded message bits that differ from the original.",
		}, []string{"scheme"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linksim_cache_lookups_total",
			Help: "Matrix cache lookups by outcome.",
		}, []string{"outcome"}),
		trials: f.NewCounter(prometheus.CounterOpts{
			Name: "linksim_trials_total",
			Help: "Monte-Carlo trials run.",
		}),
		bitErrorRate: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "linksim_bit_error_rate",
			Help:    "Bit error rate of single transmissions.",
			Buckets: []float64{0, 1e-4, 1e-3, 1e-2, 0.05, 0.1, 0.2, 0.5},
		}),
	}
}

// ObserveCache counts one cache lookup. It fits matcache.WithObserver.
func (m *Metrics) ObserveCache(o matcache.Outcome) {
	m.cacheLookups.WithLabelValues(string(o)).Inc()
}

// ObserveTransmission records the bit errors of one transmission.
func (m *Metrics) ObserveTransmission(scheme string, r estimate.Ratio) {
	m.transmissions.WithLabelValues(scheme).Inc()
	m.bitErrors.WithLabelValues(scheme).Add(float64(r.Errors))
	m.bitErrorRate.Observe(r.Float())
}

// ObserveTrials counts finished Monte-Carlo trials.
func (m *Metrics) ObserveTrials(n int) {
	m.trials.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
