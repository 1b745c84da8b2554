package reconciliation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/matching"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules/store"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/logging"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/metrics"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Decision labels used in metrics.
const (
	DecisionAutoMatched   = "auto_matched"
	DecisionPendingReview = "pending_review"
	DecisionConflict      = "conflict"
)

// RuleSource provides the current rule snapshot.
type RuleSource interface {
	Snapshot() (*store.Snapshot, error)
}

// Orchestrator runs reconciliation jobs.
type Orchestrator struct {
	ledger  ledger.Store
	rules   RuleSource
	scorer  *matching.Scorer
	flagger *RiskFlagger
	cfg     config.ReconciliationConfig
	lock    RunLock
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLock sets the run lock. The default lets every run proceed.
func WithLock(l RunLock) Option {
	return func(o *Orchestrator) { o.lock = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock sets the time source used for due date checks.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an orchestrator over a ledger and a rule source.
func NewOrchestrator(l ledger.Store, rs RuleSource, cfg config.ReconciliationConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger: l,
		rules:  rs,
		scorer: matching.NewScorer(cfg.DefaultCurrency),
		cfg:    cfg,
		lock:   NoLock{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "reconciliation")
	o.flagger = NewRiskFlagger(l, cfg, o.metrics, o.logger)
	return o
}

// Flagger returns the orchestrator's risk flagger.
func (o *Orchestrator) Flagger() *RiskFlagger {
	return o.flagger
}

// run holds the state of one Run call.
type run struct {
	out       *Output
	rules     []rules.Rule
	settings  ledger.Settings
	threshold float64
	scanCtx   context.Context
	budget    int
}

func (r *run) exhausted() bool {
	if r.scanCtx.Err() != nil {
		return true
	}
	if dl, ok := r.scanCtx.Deadline(); ok && !time.Now().Before(dl) {
		return true
	}
	return r.budget > 0 && r.out.PairsScored >= r.budget
}

// Run executes a job. It returns an error only when the run could not
// start or could not read the ledger; per-pair write failures are reported
// in Output.Failures.
func (o *Orchestrator) Run(ctx context.Context, job Job) (out *Output, err error) {
	if job.Type == "" {
		job.Type = JobType(o.cfg.JobType)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx, o.logger)

	ctx, span := o.tracer.Start(ctx, "reconciliation.run")
	span.SetAttributes(tracing.AttrRunID.String(runID), tracing.AttrJobType.String(string(job.Type)))
	defer func() { tracing.End(span, err) }()

	status := "error"
	defer func() {
		o.metrics.RecordReconciliationRun(string(job.Type), status, time.Since(start))
	}()

	release, err := o.lock.Acquire(ctx, runID)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			status = "skipped"
		}
		return nil, err
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			logger.Warn("failed to release run lock", "error", rerr)
		}
	}()

	snap, err := o.rules.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("load matching rules: %w", err)
	}
	stored, err := o.ledger.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reconciliation settings: %w", err)
	}

	r := &run{
		out: &Output{
			RunID:          runID,
			Type:           job.Type,
			RuleSetVersion: snap.Version,
			Suggestions:    []ledger.Suggestion{},
			RiskFlags:      []ledger.RiskFlag{},
			Failures:       []PairFailure{},
		},
		rules: snap.Matching,
		settings: stored.Resolve(ledger.Settings{
			MinConfidenceScore: o.cfg.MinConfidenceScore,
			AutoMatchEnabled:   o.cfg.AutoMatchEnabled,
		}),
		threshold: o.cfg.AutoApproveThreshold,
		budget:    o.cfg.MaxPairs,
	}
	if job.AutoApproveThreshold != nil {
		r.threshold = *job.AutoApproveThreshold
	}

	// A zero MaxDuration leaves the scan without a deadline.
	var cancel context.CancelFunc
	if o.cfg.MaxDuration > 0 {
		r.scanCtx, cancel = context.WithTimeout(ctx, o.cfg.MaxDuration)
	} else {
		r.scanCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	logger.Info("reconciliation run started",
		"type", job.Type,
		"rule_set_version", snap.Version,
		"matching_rules", len(r.rules),
		"min_confidence", r.settings.MinConfidenceScore,
		"auto_match", r.settings.AutoMatchEnabled,
		"auto_approve_threshold", r.threshold,
	)

	for _, pair := range job.Type.Pairs() {
		if err := o.reconcilePair(ctx, r, pair); err != nil {
			return nil, err
		}
	}

	for _, s := range r.out.Suggestions {
		if s.Status == ledger.SuggestionPending {
			r.out.NeedsReview++
		}
	}
	r.out.DurationMS = time.Since(start).Milliseconds()

	span.SetAttributes(
		tracing.AttrRuleSetVersion.Int(snap.Version),
		attribute.Int("hubflow.reconciliation.pairs_scored", r.out.PairsScored),
		attribute.Int("hubflow.reconciliation.auto_matched", r.out.AutoMatched),
		attribute.Bool("hubflow.reconciliation.truncated", r.out.Truncated),
	)
	status = "success"
	if r.out.Truncated {
		status = "truncated"
	}
	logger.Info("reconciliation run finished",
		"status", status,
		"pairs_scored", r.out.PairsScored,
		"suggestions", len(r.out.Suggestions),
		"auto_matched", r.out.AutoMatched,
		"needs_review", r.out.NeedsReview,
		"risk_flags", len(r.out.RiskFlags),
		"failures", len(r.out.Failures),
		"duration_ms", r.out.DurationMS,
	)
	return r.out, nil
}

// reconcilePair scans one kind pair and raises its risk flags.
func (o *Orchestrator) reconcilePair(ctx context.Context, r *run, pair ledger.Pair) error {
	ctx, span := o.tracer.Start(ctx, "reconciliation.pair")
	span.SetAttributes(attribute.String("hubflow.reconciliation.source_kind", string(pair.Source)))
	defer span.End()

	sources, err := o.ledger.ListOpenSources(ctx, pair.Source)
	if err != nil {
		return fmt.Errorf("list open %s records: %w", pair.Source, err)
	}
	targets, err := o.ledger.ListOpenTargets(ctx, pair.Target)
	if err != nil {
		return fmt.Errorf("list open %s records: %w", pair.Target, err)
	}

	claimed := make(map[string]bool)
	var unmatched, remaining []ledger.Record
	for i, src := range sources {
		if r.exhausted() {
			r.out.Truncated = true
			remaining = append(remaining, sources[i:]...)
			break
		}
		matched, gone, complete := o.reconcileSource(ctx, r, src, targets, claimed)
		if gone || matched {
			continue
		}
		remaining = append(remaining, src)
		if !complete {
			r.out.Truncated = true
			remaining = append(remaining, sources[i+1:]...)
			break
		}
		unmatched = append(unmatched, src)
	}

	now := o.now()
	o.flag(r, StageRiskFlag+":unreconciled", func() ([]ledger.RiskFlag, error) {
		return o.flagger.FlagUnreconciled(ctx, unmatched, now)
	})
	o.flag(r, StageRiskFlag+":overdue", func() ([]ledger.RiskFlag, error) {
		return o.flagger.FlagOverdue(ctx, remaining, now)
	})
	o.flag(r, StageRiskFlag+":duplicate", func() ([]ledger.RiskFlag, error) {
		return o.flagger.FlagDuplicates(ctx, targets)
	})
	return nil
}

type candidate struct {
	target ledger.Record
	score  matching.Score
	sugg   *ledger.Suggestion
}

// reconcileSource scores src against every unclaimed target. matched
// reports an auto-match by this run, gone a source settled by someone
// else, and complete whether every target was scored.
func (o *Orchestrator) reconcileSource(ctx context.Context, r *run, src ledger.Record, targets []ledger.Record, claimed map[string]bool) (matched, gone, complete bool) {
	complete = true
	var candidates []candidate
	for _, tgt := range targets {
		if claimed[tgt.ID] {
			continue
		}
		if r.exhausted() {
			complete = false
			break
		}
		score := o.scorer.Score(src, tgt, r.rules)
		r.out.PairsScored++
		o.metrics.RecordPairScored(score.Confidence)
		if score.Confidence >= r.settings.MinConfidenceScore && score.Confidence > 0 {
			candidates = append(candidates, candidate{target: tgt, score: score})
		}
	}

	for i := range candidates {
		c := &candidates[i]
		sugg := &ledger.Suggestion{
			SourceID:   src.ID,
			TargetID:   c.target.ID,
			Confidence: c.score.Confidence,
			Reasons:    c.score.Reasons,
		}
		if _, err := o.ledger.SaveSuggestion(ctx, sugg); err != nil {
			o.fail(ctx, r, src.ID, c.target.ID, StageSuggest, err)
			continue
		}
		c.sugg = sugg
	}

	// A partial scan may have missed the best target.
	if !complete || !r.settings.AutoMatchEnabled {
		o.collect(r, candidates)
		return false, false, complete
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(b.score.Confidence, a.score.Confidence),
			a.target.Date.Compare(b.target.Date),
			cmp.Compare(a.target.ID, b.target.ID),
		)
	})

	for i := range candidates {
		c := &candidates[i]
		if c.sugg == nil || c.score.Confidence < r.threshold {
			continue
		}
		err := o.ledger.ApplyAutoMatch(ctx, c.sugg)
		switch {
		case err == nil:
			claimed[c.target.ID] = true
			r.out.AutoMatched++
			o.metrics.RecordDecision(DecisionAutoMatched)
			logging.FromContext(ctx, o.logger).Info("auto-matched",
				"source_id", src.ID,
				"target_id", c.target.ID,
				"confidence", c.score.Confidence,
			)
			matched = true
		case errors.Is(err, ledger.ErrAlreadyLinked):
			claimed[c.target.ID] = true
			o.metrics.RecordDecision(DecisionConflict)
			continue
		case errors.Is(err, ledger.ErrAlreadySettled):
			o.metrics.RecordDecision(DecisionConflict)
			gone = true
		default:
			o.fail(ctx, r, src.ID, c.target.ID, StageAutoMatch, err)
			continue
		}
		break
	}

	o.collect(r, candidates)
	return matched, gone, true
}

// collect adds the saved suggestions of a source to the output.
func (o *Orchestrator) collect(r *run, candidates []candidate) {
	for _, c := range candidates {
		if c.sugg == nil {
			continue
		}
		if c.sugg.Status == ledger.SuggestionPending {
			o.metrics.RecordDecision(DecisionPendingReview)
		}
		r.out.Suggestions = append(r.out.Suggestions, *c.sugg)
	}
}

func (o *Orchestrator) fail(ctx context.Context, r *run, sourceID, targetID, stage string, err error) {
	r.out.Failures = append(r.out.Failures, PairFailure{
		SourceID: sourceID,
		TargetID: targetID,
		Stage:    stage,
		Error:    err.Error(),
	})
	o.metrics.RecordPairFailure(stage)
	logging.FromContext(ctx, o.logger).Error("reconciliation pair failed",
		"source_id", sourceID,
		"target_id", targetID,
		"stage", stage,
		"error", err,
	)
}

func (o *Orchestrator) flag(r *run, stage string, fn func() ([]ledger.RiskFlag, error)) {
	flags, err := fn()
	r.out.RiskFlags = append(r.out.RiskFlags, flags...)
	if err != nil {
		r.out.Failures = append(r.out.Failures, PairFailure{Stage: stage, Error: err.Error()})
		o.metrics.RecordPairFailure(StageRiskFlag)
		o.logger.Error("risk flagging failed", "stage", stage, "error", err)
	}
}
