package matching

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"

	"github.com/shopspring/decimal"
)

func record(kind ledger.Kind, amount string, date string, ref string) ledger.Record {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return ledger.Record{
		ID:        string(kind) + "-" + date,
		Kind:      kind,
		Amount:    decimal.RequireFromString(amount),
		Date:      d,
		Reference: ref,
	}
}

func matchRule(id string, priority int, criteria ...rules.Criterion) rules.Rule {
	return rules.Rule{
		ID:       id,
		Name:     id,
		Type:     rules.TypeMatching,
		Priority: priority,
		Active:   true,
		Criteria: criteria,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

func TestScore_ToleranceAndDateWeightedAverage(t *testing.T) {
	src := record(ledger.KindBill, "1000", "2024-01-10", "")
	tgt := record(ledger.KindPayment, "1005", "2024-01-12", "")
	rs := []rules.Rule{
		matchRule("amount", 50, rules.AmountTolerance{TolerancePercent: 2}),
		matchRule("date", 50, rules.DateRange{DaysBefore: 7, DaysAfter: 3}),
		matchRule("reference", 10, rules.ReferenceMatch{Partial: true}),
	}

	got := NewScorer("AED").Score(src, tgt, rs)
	if !approx(got.Confidence, 0.732) {
		t.Errorf("Confidence = %v, want ≈0.732", got.Confidence)
	}
	if len(got.Reasons) != 2 {
		t.Fatalf("Reasons = %+v, want amount and date only", got.Reasons)
	}
	if got.Reasons[0].RuleID != "amount" || got.Reasons[0].Score != 0.75 {
		t.Errorf("Reasons[0] = %+v", got.Reasons[0])
	}
	if got.Reasons[1].RuleID != "date" || !approx(got.Reasons[1].Score, 0.714) {
		t.Errorf("Reasons[1] = %+v", got.Reasons[1])
	}
}

func TestScore_NoContributors(t *testing.T) {
	src := record(ledger.KindBill, "1000", "2024-01-10", "")
	tgt := record(ledger.KindPayment, "5000", "2024-06-01", "")
	rs := []rules.Rule{
		matchRule("exact", 10, rules.AmountExact{}),
		matchRule("date", 20, rules.DateRange{DaysBefore: 3, DaysAfter: 3}),
		matchRule("reference", 30, rules.ReferenceMatch{}),
	}

	got := NewScorer("AED").Score(src, tgt, rs)
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want exactly 0", got.Confidence)
	}
	if got.Reasons == nil || len(got.Reasons) != 0 {
		t.Errorf("Reasons = %#v, want empty", got.Reasons)
	}

	if got := NewScorer("AED").Score(src, tgt, nil); got.Confidence != 0 {
		t.Errorf("no rules: Confidence = %v", got.Confidence)
	}
}

func TestScore_AllContributorsPerfect(t *testing.T) {
	src := record(ledger.KindInvoice, "250.00", "2024-03-01", "INV-42")
	tgt := record(ledger.KindReceipt, "250", "2024-03-01", "inv-42")
	rs := []rules.Rule{
		matchRule("exact", 5, rules.AmountExact{}),
		matchRule("tolerance", 40, rules.AmountTolerance{TolerancePercent: 1}),
		matchRule("date", 60, rules.DateRange{DaysBefore: 5, DaysAfter: 5}),
		matchRule("reference", 10, rules.ReferenceMatch{}),
		matchRule("currency", 90, rules.CurrencyMatch{}),
	}

	got := NewScorer("AED").Score(src, tgt, rs)
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want exactly 1.0", got.Confidence)
	}
	if len(got.Reasons) != 5 {
		t.Errorf("got %d reasons, want 5", len(got.Reasons))
	}
}

func TestScore_OneStrongSignalIsNotDiluted(t *testing.T) {
	src := record(ledger.KindBill, "1000", "2024-01-10", "PO-7")
	tgt := record(ledger.KindPayment, "990", "2024-02-20", "PO-7")
	rs := []rules.Rule{
		matchRule("reference", 5, rules.ReferenceMatch{}),
		matchRule("exact", 10, rules.AmountExact{}),
		matchRule("date", 20, rules.DateRange{DaysBefore: 3, DaysAfter: 3}),
	}

	got := NewScorer("AED").Score(src, tgt, rs)
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 from the reference rule alone", got.Confidence)
	}
}

func TestScore_WeightsFollowPriority(t *testing.T) {
	src := record(ledger.KindBill, "100", "2024-01-10", "REF")
	tgt := record(ledger.KindPayment, "100", "2024-01-12", "REF-2")
	rs := []rules.Rule{
		matchRule("reference", 20, rules.ReferenceMatch{Partial: true}), // 0.8, weight 80
		matchRule("exact", 80, rules.AmountExact{}),                      // 1.0, weight 20
	}

	got := NewScorer("AED").Score(src, tgt, rs)
	want := (0.8*80 + 1.0*20) / 100
	if !approx(got.Confidence, want) {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestScore_SkipsIneligibleRules(t *testing.T) {
	src := record(ledger.KindBill, "100", "2024-01-10", "")
	tgt := record(ledger.KindPayment, "100", "2024-01-10", "")

	inactive := matchRule("inactive", 10, rules.AmountExact{})
	inactive.Active = false
	receivable := matchRule("receivable", 10, rules.AmountExact{})
	receivable.Scope = rules.ScopeReceivable
	zeroWeight := matchRule("zero-weight", 100, rules.AmountExact{})
	pricing := matchRule("pricing", 10, rules.AmountExact{})
	pricing.Type = rules.TypePricing
	empty := matchRule("no-criteria", 10)

	got := NewScorer("AED").Score(src, tgt, []rules.Rule{inactive, receivable, zeroWeight, pricing, empty})
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0; reasons %+v", got.Confidence, got.Reasons)
	}

	payable := matchRule("payable", 10, rules.AmountExact{})
	payable.Scope = rules.ScopePayable
	if got := NewScorer("AED").Score(src, tgt, []rules.Rule{payable}); got.Confidence != 1 {
		t.Errorf("payable rule on a bill: Confidence = %v, want 1", got.Confidence)
	}
}

func TestScore_MultiCriteriaRuleTakesMinimum(t *testing.T) {
	src := record(ledger.KindBill, "1000", "2024-01-10", "")
	tgt := record(ledger.KindPayment, "1005", "2024-01-12", "")
	rs := []rules.Rule{
		matchRule("combined", 50,
			rules.AmountTolerance{TolerancePercent: 2},
			rules.DateRange{DaysBefore: 7, DaysAfter: 3},
		),
	}

	got := NewScorer("AED").Score(src, tgt, rs)
	if !approx(got.Confidence, 1-2.0/7) {
		t.Errorf("Confidence = %v, want min(0.75, 0.714)", got.Confidence)
	}
}

func TestScore_Deterministic(t *testing.T) {
	src := record(ledger.KindBill, "1000", "2024-01-10", "A-1")
	tgt := record(ledger.KindPayment, "1003", "2024-01-11", "a-1")
	rs := []rules.Rule{
		matchRule("amount", 20, rules.AmountTolerance{TolerancePercent: 1}),
		matchRule("reference", 30, rules.ReferenceMatch{}),
		matchRule("date", 40, rules.DateRange{DaysBefore: 2, DaysAfter: 2}),
	}

	s := NewScorer("AED")
	first := s.Score(src, tgt, rs)
	for range 50 {
		if got := s.Score(src, tgt, rs); !reflect.DeepEqual(got, first) {
			t.Fatalf("Score() = %+v, want %+v", got, first)
		}
	}
}

func TestAmountExact(t *testing.T) {
	tests := []struct {
		src, tgt string
		want     float64
	}{
		{"100.00", "100", 1},
		{"100.00", "100.009", 1},
		{"100.00", "100.01", 0},
		{"100.00", "99.98", 0},
	}
	for _, tt := range tests {
		got, _ := amountExact(decimal.RequireFromString(tt.src), decimal.RequireFromString(tt.tgt))
		if got != tt.want {
			t.Errorf("amountExact(%s, %s) = %v, want %v", tt.src, tt.tgt, got, tt.want)
		}
	}
}

func TestAmountTolerance(t *testing.T) {
	tests := []struct {
		name     string
		src, tgt string
		pct      float64
		want     float64
	}{
		{"exact", "1000", "1000", 2, 1},
		{"quarter of window", "1000", "1005", 2, 0.75},
		{"under", "1000", "990", 2, 0.5},
		{"edge", "1000", "1020", 2, 0},
		{"outside", "1000", "1021", 2, 0},
		{"zero tolerance equal", "1000", "1000", 0, 1},
		{"zero tolerance differs", "1000", "1000.5", 0, 0},
		{"zero source", "0", "0", 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := amountTolerance(decimal.RequireFromString(tt.src), decimal.RequireFromString(tt.tgt), tt.pct)
			if !approx(got, tt.want) {
				t.Errorf("amountTolerance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateRange(t *testing.T) {
	base := time.Date(2024, 1, 10, 23, 30, 0, 0, time.UTC)
	tests := []struct {
		name          string
		tgt           time.Time
		before, after int
		want          float64
	}{
		{"same day later hour", time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC), 7, 3, 1},
		{"two days after", base.AddDate(0, 0, 2), 7, 3, 1 - 2.0/7},
		{"seven days before", base.AddDate(0, 0, -7), 7, 3, 0},
		{"beyond after", base.AddDate(0, 0, 4), 7, 3, 0},
		{"beyond before", base.AddDate(0, 0, -8), 7, 3, 0},
		{"zero window same day", base, 0, 0, 1},
		{"zero window next day", base.AddDate(0, 0, 1), 0, 0, 0},
		{"earlier within before", base.AddDate(0, 0, -1), 1, 5, 1 - 1.0/5},
		{"earlier beyond before", base.AddDate(0, 0, -3), 1, 5, 0},
		{"later within after", base.AddDate(0, 0, 3), 1, 5, 1 - 3.0/5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := dateRange(base, tt.tgt, tt.before, tt.after)
			if !approx(got, tt.want) {
				t.Errorf("dateRange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReferenceMatch(t *testing.T) {
	tests := []struct {
		src, tgt string
		partial  bool
		want     float64
	}{
		{"INV-9", "inv-9", false, 1},
		{" INV-9 ", "INV-9", false, 1},
		{"INV-9", "Payment INV-9 ACME", false, 0},
		{"INV-9", "Payment INV-9 ACME", true, 0.8},
		{"Payment INV-9", "inv-9", true, 0.8},
		{"", "INV-9", true, 0},
		{"INV-9", "INV-10", true, 0},
	}
	for _, tt := range tests {
		got, _ := referenceMatch(tt.src, tt.tgt, tt.partial)
		if got != tt.want {
			t.Errorf("referenceMatch(%q, %q, %v) = %v, want %v", tt.src, tt.tgt, tt.partial, got, tt.want)
		}
	}
}

func TestCurrencyMatchUsesDefault(t *testing.T) {
	src := record(ledger.KindBill, "1", "2024-01-01", "")
	tgt := record(ledger.KindPayment, "1", "2024-01-01", "")
	tgt.Currency = "aed"
	rs := []rules.Rule{matchRule("currency", 10, rules.CurrencyMatch{})}

	if got := NewScorer("aed").Score(src, tgt, rs); got.Confidence != 1 {
		t.Errorf("default currency: Confidence = %v, want 1", got.Confidence)
	}
	tgt.Currency = "USD"
	if got := NewScorer("AED").Score(src, tgt, rs); got.Confidence != 0 {
		t.Errorf("mismatched currency: Confidence = %v, want 0", got.Confidence)
	}
}

func BenchmarkScore(b *testing.B) {
	src := record(ledger.KindBill, "1000", "2024-01-10", "INV-1")
	tgt := record(ledger.KindPayment, "1004.50", "2024-01-12", "Payment INV-1")
	rs := []rules.Rule{
		matchRule("exact", 10, rules.AmountExact{}),
		matchRule("tolerance", 20, rules.AmountTolerance{TolerancePercent: 2}),
		matchRule("date", 30, rules.DateRange{DaysBefore: 7, DaysAfter: 3}),
		matchRule("reference", 40, rules.ReferenceMatch{Partial: true}),
		matchRule("currency", 50, rules.CurrencyMatch{}),
	}
	s := NewScorer("AED")

	b.ReportAllocs()
	for b.Loop() {
		s.Score(src, tgt, rs)
	}
}
