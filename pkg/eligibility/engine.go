package eligibility

import (
	"context"
	"log/slog"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/store"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/logging"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/metrics"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Outcome labels used in metrics.
const (
	OutcomeEligible = "eligible"
	OutcomeBlocked  = "blocked"
	OutcomeDegraded = "degraded"
)

// SnapshotSource provides the current rule snapshot.
type SnapshotSource interface {
	Snapshot() (*store.Snapshot, error)
}

// Engine evaluates contexts against the current rule snapshot.
type Engine struct {
	rules   SnapshotSource
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewEngine creates an engine. metrics and tracer may be nil.
func NewEngine(src SnapshotSource, logger *slog.Logger, m *metrics.Collector, t *tracing.Tracer) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: src, logger: logger, metrics: m, tracer: t}
}

// Evaluate returns the result for rc. It never fails: without a rule
// snapshot it returns the neutral result marked Degraded.
func (e *Engine) Evaluate(ctx context.Context, rc rules.Context) *Result {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "eligibility.evaluate")
	defer span.End()

	var res *Result
	snap, err := e.rules.Snapshot()
	if err != nil {
		logging.FromContext(ctx, e.logger).Warn("no rule snapshot, returning neutral eligibility result", "error", err)
		res = Neutral()
		res.Degraded = true
	} else {
		res = Apply(snap.Eligibility, rc)
		res.RuleSetVersion = snap.Version
	}

	outcome := OutcomeEligible
	switch {
	case res.Degraded:
		outcome = OutcomeDegraded
	case res.Blocked:
		outcome = OutcomeBlocked
	}

	span.SetAttributes(
		tracing.AttrRuleSetVersion.Int(res.RuleSetVersion),
		tracing.AttrDegraded.Bool(res.Degraded),
		attribute.Int("hubflow.eligibility.applied_rules", len(res.AppliedRules)),
		attribute.Bool("hubflow.eligibility.blocked", res.Blocked),
	)
	e.metrics.RecordEligibility(outcome, time.Since(start), res.AppliedRules)
	logging.FromContext(ctx, e.logger).Debug("eligibility evaluated",
		"outcome", outcome,
		"applied_rules", res.AppliedRules,
		"price_multiplier", res.PriceMultiplier,
		"rule_set_version", res.RuleSetVersion,
	)
	return res
}
