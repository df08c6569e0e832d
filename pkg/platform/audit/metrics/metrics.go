package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit publisher. A nil *Metrics is a no-op.
type Metrics struct {
	QueueDepth      prometheus.Gauge
	EventsEnqueued  prometheus.Counter
	EventsDropped   prometheus.Counter
	PersistDuration prometheus.Histogram
	PersistFailures prometheus.Counter
}

// New registers the audit metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "socure_audit_queue_depth",
			Help: "Current number of events in the audit publisher queue",
		}),
		EventsEnqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "socure_audit_events_enqueued_total",
			Help: "Total number of audit events accepted by the publisher",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "socure_audit_events_dropped_total",
			Help: "Total number of audit events dropped due to a full buffer or a closed publisher",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "socure_audit_persist_duration_seconds",
			Help:    "Time taken to persist an audit event to the store",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "socure_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) IncEnqueued() {
	if m != nil {
		m.EventsEnqueued.Inc()
	}
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.EventsDropped.Inc()
	}
}

func (m *Metrics) ObservePersist(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(seconds)
	if failed {
		m.PersistFailures.Inc()
	}
}
