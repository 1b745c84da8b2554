package metrics

import (
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconciliationMetrics tracks reconciliation runs.
type ReconciliationMetrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	pairsScored  prometheus.Counter
	confidence   prometheus.Histogram
	decisions    *prometheus.CounterVec
	pairFailures *prometheus.CounterVec
	riskFlags    *prometheus.CounterVec
}

// NewReconciliationMetrics creates and registers reconciliation metrics.
func NewReconciliationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReconciliationMetrics {
	m := &ReconciliationMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reconciliation",
				Name:      "runs_total",
				Help:      "Total number of reconciliation runs by job type and status",
			},
			[]string{"job_type", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reconciliation",
				Name:      "run_duration_seconds",
				Help:      "Duration of reconciliation runs in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"job_type"},
		),
		pairsScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reconciliation",
				Name:      "pairs_scored_total",
				Help:      "Total number of candidate pairs scored",
			},
		),
		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reconciliation",
				Name:      "confidence",
				Help:      "Distribution of pair confidence scores",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reconciliation",
				Name:      "decisions_total",
				Help:      "Total number of reconciliation decisions",
			},
			[]string{"decision"},
		),
		pairFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reconciliation",
				Name:      "pair_failures_total",
				Help:      "Total number of pairs whose side effects failed, by stage",
			},
			[]string{"stage"},
		),
		riskFlags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "reconciliation",
				Name:      "risk_flags_total",
				Help:      "Total number of risk flags raised",
			},
			[]string{"type", "severity"},
		),
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.pairsScored,
		m.confidence,
		m.decisions,
		m.pairFailures,
		m.riskFlags,
	)
	return m
}

func (m *ReconciliationMetrics) recordRun(jobType, status string, duration time.Duration) {
	m.runsTotal.WithLabelValues(jobType, status).Inc()
	m.runDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}
