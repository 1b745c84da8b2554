package metrics

import (
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RuleMetrics tracks rule set loading.
type RuleMetrics struct {
	reloadsTotal   *prometheus.CounterVec
	reloadDuration *prometheus.HistogramVec
	active         *prometheus.GaugeVec
	version        prometheus.Gauge
}

// NewRuleMetrics creates and registers rule metrics.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	m := &RuleMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rules",
				Name:      "reloads_total",
				Help:      "Total number of rule set loads by source and status",
			},
			[]string{"source", "status"},
		),
		reloadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rules",
				Name:      "reload_duration_seconds",
				Help:      "Duration of rule set loads in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rules",
				Name:      "active",
				Help:      "Number of active rules in the current snapshot by type",
			},
			[]string{"type"},
		),
		version: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rules",
				Name:      "version",
				Help:      "Version of the active rule document",
			},
		),
	}

	registry.MustRegister(m.reloadsTotal, m.reloadDuration, m.active, m.version)
	return m
}

func (m *RuleMetrics) recordReload(source, status string, duration time.Duration) {
	m.reloadsTotal.WithLabelValues(source, status).Inc()
	m.reloadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *RuleMetrics) setActive(counts map[string]int, version int) {
	m.active.Reset()
	for ruleType, n := range counts {
		m.active.WithLabelValues(ruleType).Set(float64(n))
	}
	m.version.Set(float64(version))
}
