package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecoveryMetrics records per-module outcomes of reconciliation passes.
type RecoveryMetrics struct {
	duration  prometheus.Histogram
	outcomes  *prometheus.CounterVec
	pendingOS prometheus.Gauge
}

// NewRecoveryMetrics registers recovery metrics on the provided registerer.
func NewRecoveryMetrics(reg prometheus.Registerer) *RecoveryMetrics {
	if reg == nil {
		return &RecoveryMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "daybreak_recovery_duration_seconds",
		Help:    "Duration of full recovery passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "daybreak_recovery_outcomes_total",
		Help: "Notifications scheduled/cancelled/skipped/failed per module per pass.",
	}, []string{"module", "outcome"})
	pendingOS := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "daybreak_pending_alarms",
		Help: "OS-reported pending alarms after the last recovery pass.",
	})
	reg.MustRegister(duration, outcomes, pendingOS)
	return &RecoveryMetrics{
		duration:  duration,
		outcomes:  outcomes,
		pendingOS: pendingOS,
	}
}

// ObserveDuration records one pass duration.
func (r *RecoveryMetrics) ObserveDuration(duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.Observe(duration.Seconds())
}

// AddOutcome adds count to a (module, outcome) counter.
func (r *RecoveryMetrics) AddOutcome(module, outcome string, count int) {
	if r == nil || r.outcomes == nil || count <= 0 {
		return
	}
	r.outcomes.WithLabelValues(normalizeLabel(module), normalizeLabel(outcome)).Add(float64(count))
}

// SetPending records the OS-reported pending alarm count.
func (r *RecoveryMetrics) SetPending(count int) {
	if r == nil || r.pendingOS == nil {
		return
	}
	r.pendingOS.Set(float64(count))
}
