package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for the entitlement core. The
// core exposes no transport of its own; the host process mounts the
// registry wherever its metrics endpoint lives.
type Metrics struct {
	registry      *prometheus.Registry
	decisions     *prometheus.CounterVec
	checkDuration prometheus.Histogram
	logins        *prometheus.CounterVec
	activeTokens  prometheus.Gauge
}

// NewMetrics initializes the registry and the core metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_check_decisions_total",
		Help: "Access check outcomes by decision reason.",
	}, []string{"decision"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "entitlement_check_duration_seconds",
		Help:    "Latency of access checks.",
		Buckets: prometheus.DefBuckets,
	})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "entitlement_active_tokens",
		Help: "Tokens currently in the active set.",
	})
	registry.MustRegister(decisions, duration, logins, active)
	return &Metrics{
		registry:      registry,
		decisions:     decisions,
		checkDuration: duration,
		logins:        logins,
		activeTokens:  active,
	}
}

// ObserveCheck records one access check outcome and its latency.
func (m *Metrics) ObserveCheck(decision string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
	m.checkDuration.Observe(elapsed.Seconds())
}

// ObserveLogin records one login attempt by result ("ok" or "failed").
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// SetActiveTokens records the current size of the active-token set.
func (m *Metrics) SetActiveTokens(n int) {
	if m == nil {
		return
	}
	m.activeTokens.Set(float64(n))
}

// Gatherer exposes the registry for the host's metrics endpoint.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

// Registerer exposes the registry for additional custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}
