// Package metrics exposes prometheus instrumentation for the dispatch
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes recorded per dispatched message.
const (
	OutcomeOK            = "ok"
	OutcomeRateLimited   = "rate_limited"
	OutcomeUpstreamError = "upstream_error"
	OutcomeNotSubscribed = "not_subscribed"
	OutcomeFailed        = "failed"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal   *prometheus.CounterVec
	TurnDuration prometheus.Histogram
}

// New creates and registers the pipeline collectors on a dedicated registry.
// sessionCount feeds the live-sessions gauge.
func New(sessionCount func() float64) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askdev_turns_total",
			Help: "Dispatched turns by outcome.",
		}, []string{"outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdev_turn_duration_seconds",
			Help:    "End-to-end turn processing time.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	registry.MustRegister(m.TurnsTotal, m.TurnDuration)
	if sessionCount != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "askdev_sessions",
			Help: "Live user sessions.",
		}, sessionCount))
	}

	return m
}

// Registry returns the registry backing the collectors, for the /metrics
// endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTurn records one finished turn.
func (m *Metrics) ObserveTurn(outcome string, seconds float64) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(seconds)
}
