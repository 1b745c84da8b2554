package reconciliation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/logging"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/telemetry/metrics"
)

// RiskFlagger raises risk flags. Every write is preceded by an existence
// check, so running it repeatedly over the same records raises each flag
// once.
type RiskFlagger struct {
	store            ledger.Store
	overdueAfterDays int
	requireReference bool
	metrics          *metrics.Collector
	logger           *slog.Logger
}

// NewRiskFlagger creates a flagger. m may be nil.
func NewRiskFlagger(store ledger.Store, cfg config.ReconciliationConfig, m *metrics.Collector, logger *slog.Logger) *RiskFlagger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskFlagger{
		store:            store,
		overdueAfterDays: cfg.OverdueAfterDays,
		requireReference: cfg.Duplicates.RequireReference,
		metrics:          m,
		logger:           logger.With("component", "reconciliation.flagger"),
	}
}

// FlagUnreconciled flags sources left without a match. Sources past their
// due date are high severity, the rest medium.
func (f *RiskFlagger) FlagUnreconciled(ctx context.Context, sources []ledger.Record, now time.Time) ([]ledger.RiskFlag, error) {
	var (
		raised []ledger.RiskFlag
		errs   []error
	)
	for _, src := range sources {
		sev := ledger.SeverityMedium
		if src.DueDate != nil && civilDays(now) > civilDays(*src.DueDate) {
			sev = ledger.SeverityHigh
		}
		flag := ledger.RiskFlag{
			Type:     ledger.FlagUnreconciled,
			Severity: sev,
			EntityID: src.ID,
			Message:  fmt.Sprintf("%s %s for %s has no matching %s", src.Kind, src.ID, src.Amount, targetKind(src.Kind)),
		}
		raised, errs = f.collect(ctx, flag, raised, errs)
	}
	return raised, errors.Join(errs...)
}

// FlagOverdue flags unsettled sources more than overdueAfterDays past their
// due date. Severity grows with the delay beyond that grace period: up to a
// week is low, up to thirty days medium, anything longer high.
func (f *RiskFlagger) FlagOverdue(ctx context.Context, sources []ledger.Record, now time.Time) ([]ledger.RiskFlag, error) {
	var (
		raised []ledger.RiskFlag
		errs   []error
	)
	today := civilDays(now)
	for _, src := range sources {
		if src.Settled || src.DueDate == nil {
			continue
		}
		late := today - civilDays(*src.DueDate)
		if late <= f.overdueAfterDays {
			continue
		}
		beyond := late - f.overdueAfterDays
		sev := ledger.SeverityHigh
		switch {
		case beyond <= 7:
			sev = ledger.SeverityLow
		case beyond <= 30:
			sev = ledger.SeverityMedium
		}
		flag := ledger.RiskFlag{
			Type:     ledger.FlagOverdue,
			Severity: sev,
			EntityID: src.ID,
			Message:  fmt.Sprintf("%s %s is %d days past due", src.Kind, src.ID, late),
		}
		raised, errs = f.collect(ctx, flag, raised, errs)
	}
	return raised, errors.Join(errs...)
}

type duplicateKey struct {
	kind      ledger.Kind
	amount    string
	day       int
	reference string
}

// FlagDuplicates groups targets by kind, amount, date and reference. The
// earliest created member of a group (lowest ID on ties) is canonical and
// every other member is flagged as its duplicate. The outcome does not
// depend on the order of targets.
func (f *RiskFlagger) FlagDuplicates(ctx context.Context, targets []ledger.Record) ([]ledger.RiskFlag, error) {
	groups := make(map[duplicateKey][]ledger.Record)
	var keys []duplicateKey
	for _, t := range targets {
		ref := strings.ToLower(strings.TrimSpace(t.Reference))
		if ref == "" && f.requireReference {
			continue
		}
		key := duplicateKey{
			kind:      t.Kind,
			amount:    t.Amount.String(),
			day:       civilDays(t.Date),
			reference: ref,
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}

	var (
		raised []ledger.RiskFlag
		errs   []error
	)
	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		slices.SortFunc(members, func(a, b ledger.Record) int {
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
		})
		canonical := members[0]
		for _, dup := range members[1:] {
			flag := ledger.RiskFlag{
				Type:            ledger.FlagDuplicatePayment,
				Severity:        ledger.SeverityHigh,
				EntityID:        dup.ID,
				RelatedEntityID: canonical.ID,
				Message:         fmt.Sprintf("%s %s duplicates %s (%s on %s)", dup.Kind, dup.ID, canonical.ID, dup.Amount, dup.Date.Format(ledger.DateLayout)),
			}
			raised, errs = f.collect(ctx, flag, raised, errs)
		}
	}
	return raised, errors.Join(errs...)
}

func (f *RiskFlagger) collect(ctx context.Context, flag ledger.RiskFlag, raised []ledger.RiskFlag, errs []error) ([]ledger.RiskFlag, []error) {
	created, err := f.raise(ctx, &flag)
	if err != nil {
		return raised, append(errs, fmt.Errorf("%s flag for %s: %w", flag.Type, flag.EntityID, err))
	}
	if created {
		raised = append(raised, flag)
	}
	return raised, errs
}

func (f *RiskFlagger) raise(ctx context.Context, flag *ledger.RiskFlag) (bool, error) {
	exists, err := f.store.RiskFlagExists(ctx, flag.Type, flag.EntityID, flag.RelatedEntityID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	created, err := f.store.CreateRiskFlag(ctx, flag)
	if err != nil || !created {
		return false, err
	}
	f.metrics.RecordRiskFlag(string(flag.Type), string(flag.Severity))
	logging.FromContext(ctx, f.logger).Info("risk flag raised",
		"type", flag.Type,
		"severity", flag.Severity,
		"entity_id", flag.EntityID,
		"related_entity_id", flag.RelatedEntityID,
	)
	return true, nil
}

func targetKind(k ledger.Kind) ledger.Kind {
	for _, p := range ledger.Pairs {
		if p.Source == k {
			return p.Target
		}
	}
	return ""
}

func civilDays(t time.Time) int {
	y, m, d := t.UTC().Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
