package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// Decision labels
const (
	DecisionAllowed  = "allowed"
	DecisionRejected = "rejected"
	DecisionError    = "error"
	DecisionUnkeyed  = "unkeyed"
)

// Metrics counts limiter decisions per operation
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics creates the decision counter and registers it on reg when reg
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions by operation and outcome.",
		}, []string{"operation", "decision"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions)
	}
	return m
}

func (m *Metrics) observe(operation, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, decision).Inc()
}
