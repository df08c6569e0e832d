// Package metrics provides Prometheus metrics for identity lookups and caches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the identity collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	CacheLookupsTotal     *prometheus.CounterVec   // cache lookups by cache and result (hit, miss, error)
	CacheWriteErrorsTotal *prometheus.CounterVec   // failed cache writes by cache
	LookupDurationSeconds *prometheus.HistogramVec // backing store latency by store
}

// New registers the identity metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socure_identity_cache_lookups_total",
			Help: "Identity cache lookups by cache and result",
		}, []string{"cache", "result"}),

		CacheWriteErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socure_identity_cache_write_errors_total",
			Help: "Identity cache writes that failed, by cache",
		}, []string{"cache"}),

		LookupDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socure_identity_lookup_duration_seconds",
			Help:    "Latency of identity lookups against the backing store",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"store"}),
	}
}

func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(cache, "hit").Inc()
}

func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(cache, "miss").Inc()
}

func (m *Metrics) RecordCacheError(cache string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(cache, "error").Inc()
}

func (m *Metrics) RecordCacheWriteError(cache string) {
	if m == nil {
		return
	}
	m.CacheWriteErrorsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) ObserveLookup(store string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupDurationSeconds.WithLabelValues(store).Observe(d.Seconds())
}
