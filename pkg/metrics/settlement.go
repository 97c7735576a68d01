package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts settlement attempts by gateway and outcome.
type SettlementMetrics struct {
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewSettlementMetrics registers settlement counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_attempts_total",
		Help: "Settlement attempts by gateway and outcome.",
	}, []string{"gateway", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_retries_total",
		Help: "Payment retry sessions opened by gateway.",
	}, []string{"gateway"})
	reg.MustRegister(attempts, retries)
	return &SettlementMetrics{attempts: attempts, retries: retries}
}

// IncAttempt records one settlement attempt outcome (success, failed, replayed).
func (s *SettlementMetrics) IncAttempt(gateway, outcome string) {
	if s == nil || s.attempts == nil {
		return
	}
	s.attempts.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// IncRetry records one retry checkout session.
func (s *SettlementMetrics) IncRetry(gateway string) {
	if s == nil || s.retries == nil {
		return
	}
	s.retries.WithLabelValues(normalizeLabel(gateway)).Inc()
}
