package rules

// CriterionKind names a matching criterion on the wire.
type CriterionKind string

const (
	CriterionAmountExact     CriterionKind = "amount_exact"
	CriterionAmountTolerance CriterionKind = "amount_tolerance"
	CriterionDateRange       CriterionKind = "date_range"
	CriterionReferenceMatch  CriterionKind = "reference_match"
	CriterionCurrencyMatch   CriterionKind = "currency_match"
)

// Criterion is one piece of evidence a matching rule checks on a record
// pair. Scoring lives in package matching.
type Criterion interface {
	Kind() CriterionKind
	criterion()
}

// AmountExact scores 1 when amounts differ by less than one hundredth.
type AmountExact struct{}

// AmountTolerance scores a linear falloff up to TolerancePercent of the
// source amount.
type AmountTolerance struct{ TolerancePercent float64 }

// DateRange scores a linear falloff when the target date falls between
// DaysBefore and DaysAfter around the source date.
type DateRange struct {
	DaysBefore int
	DaysAfter  int
}

// ReferenceMatch compares references case-insensitively. With Partial,
// containment in either direction scores 0.8.
type ReferenceMatch struct{ Partial bool }

// CurrencyMatch compares canonical currency codes.
type CurrencyMatch struct{}

func (AmountExact) Kind() CriterionKind     { return CriterionAmountExact }
func (AmountTolerance) Kind() CriterionKind { return CriterionAmountTolerance }
func (DateRange) Kind() CriterionKind       { return CriterionDateRange }
func (ReferenceMatch) Kind() CriterionKind  { return CriterionReferenceMatch }
func (CurrencyMatch) Kind() CriterionKind   { return CriterionCurrencyMatch }

func (AmountExact) criterion()     {}
func (AmountTolerance) criterion() {}
func (DateRange) criterion()       {}
func (ReferenceMatch) criterion()  {}
func (CurrencyMatch) criterion()   {}
