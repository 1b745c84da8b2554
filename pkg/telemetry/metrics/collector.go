package metrics

import (
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the metric registry and every hubflow metric subsystem.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	eligibility    *EligibilityMetrics
	rules          *RuleMetrics
	reconciliation *ReconciliationMetrics
}

// NewCollector creates a collector registering into registry. A nil
// registry gets a fresh one with the Go and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		eligibility:    NewEligibilityMetrics(cfg, registry),
		rules:          NewRuleMetrics(cfg, registry),
		reconciliation: NewReconciliationMetrics(cfg, registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordEligibility records one eligibility evaluation. Outcome is
// "eligible", "blocked" or "degraded".
func (c *Collector) RecordEligibility(outcome string, duration time.Duration, appliedRules []string) {
	if !c.enabled() {
		return
	}
	c.eligibility.record(outcome, duration, appliedRules)
}

// RecordRuleReload records a rule set load attempt.
func (c *Collector) RecordRuleReload(source string, err error, duration time.Duration) {
	if !c.enabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.rules.recordReload(source, status, duration)
}

// SetActiveRules publishes the size and version of the active rule set.
func (c *Collector) SetActiveRules(counts map[string]int, version int) {
	if !c.enabled() {
		return
	}
	c.rules.setActive(counts, version)
}

// RecordReconciliationRun records a finished run. Status is "success",
// "partial" (some pairs failed), "truncated", "skipped" or "error".
func (c *Collector) RecordReconciliationRun(jobType, status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.reconciliation.recordRun(jobType, status, duration)
}

// RecordPairScored records the confidence of one scored pair.
func (c *Collector) RecordPairScored(confidence float64) {
	if !c.enabled() {
		return
	}
	c.reconciliation.pairsScored.Inc()
	c.reconciliation.confidence.Observe(confidence)
}

// RecordDecision records a reconciliation decision.
func (c *Collector) RecordDecision(decision string) {
	if !c.enabled() {
		return
	}
	c.reconciliation.decisions.WithLabelValues(decision).Inc()
}

// RecordPairFailure records a pair whose side effects failed.
func (c *Collector) RecordPairFailure(stage string) {
	if !c.enabled() {
		return
	}
	c.reconciliation.pairFailures.WithLabelValues(stage).Inc()
}

// RecordRiskFlag records a newly raised risk flag.
func (c *Collector) RecordRiskFlag(flagType, severity string) {
	if !c.enabled() {
		return
	}
	c.reconciliation.riskFlags.WithLabelValues(flagType, severity).Inc()
}
