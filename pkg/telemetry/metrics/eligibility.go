package metrics

import (
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EligibilityMetrics tracks eligibility evaluations.
type EligibilityMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	ruleHits           *prometheus.CounterVec
}

// NewEligibilityMetrics creates and registers eligibility metrics.
func NewEligibilityMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EligibilityMetrics {
	m := &EligibilityMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "eligibility",
				Name:      "evaluations_total",
				Help:      "Total number of eligibility evaluations by outcome",
			},
			[]string{"outcome"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "eligibility",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of eligibility evaluations in seconds",
				// Pure in-memory folds: 1µs to ~16ms.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
		),
		ruleHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "eligibility",
				Name:      "rule_hits_total",
				Help:      "Total number of times an eligibility or pricing rule fired",
			},
			[]string{"rule"},
		),
	}

	registry.MustRegister(m.evaluationsTotal, m.evaluationDuration, m.ruleHits)
	return m
}

func (m *EligibilityMetrics) record(outcome string, duration time.Duration, ruleNames []string) {
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
	m.evaluationDuration.Observe(duration.Seconds())
	for _, name := range ruleNames {
		m.ruleHits.WithLabelValues(name).Inc()
	}
}
