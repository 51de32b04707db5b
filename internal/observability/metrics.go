package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes recorded by Metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeOracleError = "oracle_error"
	OutcomeMalformed   = "malformed"
	OutcomeEmpty       = "empty"
)

// Metrics holds decomposition counters. The zero value is not usable; use NewMetrics.
type Metrics struct {
	attempts       *prometheus.CounterVec
	decompositions *prometheus.CounterVec
	oracleLatency  prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasksmith",
			Name:      "decompose_attempts_total",
			Help:      "Decomposition attempts by outcome.",
		}, []string{"outcome"}),
		decompositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasksmith",
			Name:      "decompositions_total",
			Help:      "Completed decompositions by step source.",
		}, []string{"source"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tasksmith",
			Name:      "oracle_latency_seconds",
			Help:      "Latency of generation oracle calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.attempts, m.decompositions, m.oracleLatency} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDecomposition(source string) {
	if m == nil {
		return
	}
	m.decompositions.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveOracleLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.oracleLatency.Observe(d.Seconds())
}
