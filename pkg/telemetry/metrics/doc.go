// Package metrics provides Prometheus metrics for hubflow.
//
// # Metrics
//
// Eligibility:
//   - hubflow_eligibility_evaluations_total{outcome}
//   - hubflow_eligibility_evaluation_duration_seconds
//   - hubflow_eligibility_rule_hits_total{rule}
//
// Rules:
//   - hubflow_rules_reloads_total{source,status}
//   - hubflow_rules_reload_duration_seconds{source}
//   - hubflow_rules_active{type}
//   - hubflow_rules_version
//
// Reconciliation:
//   - hubflow_reconciliation_runs_total{job_type,status}
//   - hubflow_reconciliation_run_duration_seconds{job_type}
//   - hubflow_reconciliation_pairs_scored_total
//   - hubflow_reconciliation_confidence
//   - hubflow_reconciliation_decisions_total{decision}
//   - hubflow_reconciliation_pair_failures_total{stage}
//   - hubflow_reconciliation_risk_flags_total{type,severity}
//
// Every Collector method is safe on a nil receiver and a no-op when metrics
// are disabled, so components take an optional *Collector.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
