package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"

	"github.com/shopspring/decimal"
)

var (
	cent    = decimal.New(1, -2)
	hundred = decimal.NewFromInt(100)
)

// partialReferenceScore is the score of a reference that contains the
// other one.
const partialReferenceScore = 0.8

// scoreCriterion returns the raw score of c for the pair and a short
// explanation.
func (s *Scorer) scoreCriterion(c rules.Criterion, src, tgt *ledger.Record) (float64, string) {
	switch c := c.(type) {
	case rules.AmountExact:
		return amountExact(src.Amount, tgt.Amount)
	case rules.AmountTolerance:
		return amountTolerance(src.Amount, tgt.Amount, c.TolerancePercent)
	case rules.DateRange:
		return dateRange(src.Date, tgt.Date, c.DaysBefore, c.DaysAfter)
	case rules.ReferenceMatch:
		return referenceMatch(src.Reference, tgt.Reference, c.Partial)
	case rules.CurrencyMatch:
		a, b := src.NormalizedCurrency(s.defaultCurrency), tgt.NormalizedCurrency(s.defaultCurrency)
		if a == b {
			return 1, "currency " + a
		}
		return 0, fmt.Sprintf("currency %s vs %s", a, b)
	default:
		return 0, fmt.Sprintf("unsupported criterion %T", c)
	}
}

func amountExact(src, tgt decimal.Decimal) (float64, string) {
	diff := src.Sub(tgt).Abs()
	if diff.LessThan(cent) {
		return 1, "amount exact"
	}
	return 0, "amount differs by " + diff.String()
}

func amountTolerance(src, tgt decimal.Decimal, pct float64) (float64, string) {
	maxDiff := src.Abs().Mul(decimal.NewFromFloat(pct)).Div(hundred)
	if !maxDiff.IsPositive() {
		return amountExact(src, tgt)
	}
	diff := src.Sub(tgt).Abs()
	if diff.GreaterThan(maxDiff) {
		return 0, fmt.Sprintf("amount differs by %s, over %s", diff, maxDiff)
	}
	score, _ := decimal.NewFromInt(1).Sub(diff.Div(maxDiff)).Float64()
	return score, fmt.Sprintf("amount within %s of %s", diff, maxDiff)
}

// dateRange compares calendar days in UTC. The target may fall up to
// before days earlier than the source or after days later than it.
func dateRange(src, tgt time.Time, before, after int) (float64, string) {
	diff := civilDays(tgt) - civilDays(src)
	if diff < -before || diff > after {
		return 0, fmt.Sprintf("date %+d days, outside [-%d, +%d]", diff, before, after)
	}
	window := max(before, after)
	if window == 0 {
		return 1, "same day"
	}
	dist := diff
	if dist < 0 {
		dist = -dist
	}
	return 1 - float64(dist)/float64(window), fmt.Sprintf("date %+d days of %d", diff, window)
}

func civilDays(t time.Time) int {
	y, m, d := t.UTC().Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func referenceMatch(src, tgt string, partial bool) (float64, string) {
	a := strings.ToLower(strings.TrimSpace(src))
	b := strings.ToLower(strings.TrimSpace(tgt))
	if a == "" || b == "" {
		return 0, "reference missing"
	}
	if a == b {
		return 1, "reference " + src
	}
	if partial && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return partialReferenceScore, fmt.Sprintf("reference %q overlaps %q", src, tgt)
	}
	return 0, fmt.Sprintf("reference %q vs %q", src, tgt)
}
