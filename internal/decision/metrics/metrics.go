// Package metrics provides Prometheus metrics for decision evaluations.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the decision collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	OutcomesTotal           *prometheus.CounterVec   // outcomes by proceed and reason
	EvaluateDurationSeconds prometheus.Histogram     // end-to-end evaluation latency
	StageDurationSeconds    *prometheus.HistogramVec // latency per pipeline stage
	RetriesTotal            prometheus.Counter       // verification calls retried
	AuditFailuresTotal      prometheus.Counter       // audit events that could not be emitted
}

// New registers the decision metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		OutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socure_decision_outcomes_total",
			Help: "Decision outcomes by proceed flag and reason",
		}, []string{"proceed", "reason"}),

		EvaluateDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "socure_decision_evaluate_duration_seconds",
			Help:    "End-to-end latency of decision evaluations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		StageDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socure_decision_stage_duration_seconds",
			Help:    "Latency of each decision pipeline stage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"stage"}),

		RetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "socure_decision_verification_retries_total",
			Help: "Verification calls retried after a transient failure",
		}),

		AuditFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "socure_decision_audit_failures_total",
			Help: "Decision audit events that failed to emit",
		}),
	}
}

func (m *Metrics) IncOutcome(proceed bool, reason string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(strconv.FormatBool(proceed), reason).Inc()
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluateDurationSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) IncAuditFailure() {
	if m == nil {
		return
	}
	m.AuditFailuresTotal.Inc()
}
