// Package metrics provides Prometheus metrics for the outbound verification call
// and response evaluation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the verification collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec   // outbound calls by result ("ok" or transport error kind)
	RequestDurationSeconds *prometheus.HistogramVec // outbound latency by result
	ParseErrorsTotal       *prometheus.CounterVec   // unparseable sections by module ("body" for the whole document)
	VerdictsTotal          *prometheus.CounterVec   // judgments by module and verdict
	BreakerOpen            prometheus.Gauge         // 1 while the circuit is open or half-open
}

// New registers the verification metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socure_verification_requests_total",
			Help: "Outbound verification requests by result",
		}, []string{"result"}),

		RequestDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socure_verification_request_duration_seconds",
			Help:    "Latency of outbound verification requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"result"}),

		ParseErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socure_verification_parse_errors_total",
			Help: "Response sections that could not be parsed, by module",
		}, []string{"module"}),

		VerdictsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socure_verification_module_verdicts_total",
			Help: "Module judgments by module and verdict",
		}, []string{"module", "verdict"}),

		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "socure_verification_breaker_open",
			Help: "Whether the verification circuit breaker is open (1) or closed (0)",
		}),
	}
}

func (m *Metrics) ObserveRequest(result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(result).Inc()
	m.RequestDurationSeconds.WithLabelValues(result).Observe(durationSeconds)
}

func (m *Metrics) IncParseError(module string) {
	if m == nil {
		return
	}
	m.ParseErrorsTotal.WithLabelValues(module).Inc()
}

func (m *Metrics) IncVerdict(module, verdict string) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(module, verdict).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
