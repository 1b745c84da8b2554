package ledger

import (
	"strings"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"

	"github.com/shopspring/decimal"
)

// Kind is the type of a financial record.
type Kind string

const (
	KindBill    Kind = "bill"
	KindInvoice Kind = "invoice"
	KindPayment Kind = "payment"
	KindReceipt Kind = "receipt"
)

// IsSource reports whether records of this kind are settled by a target.
func (k Kind) IsSource() bool {
	return k == KindBill || k == KindInvoice
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBill, KindInvoice, KindPayment, KindReceipt:
		return true
	}
	return false
}

// Pair is a source kind and the target kind that settles it.
type Pair struct {
	Source Kind
	Target Kind
	Scope  rules.Scope
}

// Pairs lists the reconcilable kind pairs.
var Pairs = []Pair{
	{Source: KindBill, Target: KindPayment, Scope: rules.ScopePayable},
	{Source: KindInvoice, Target: KindReceipt, Scope: rules.ScopeReceivable},
}

// Record is a bill, invoice, payment or receipt.
type Record struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	Date         time.Time       `json:"date"`
	DueDate      *time.Time      `json:"dueDate,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`

	// Settled is set on a source once it is linked to a target.
	Settled bool `json:"settled"`

	// LinkedRecordID is the record on the other side of the match.
	LinkedRecordID string `json:"linkedRecordId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Open reports whether the record can still take part in a match.
func (r *Record) Open() bool {
	if r.Kind.IsSource() {
		return !r.Settled
	}
	return r.LinkedRecordID == ""
}

// NormalizedCurrency upper-cases the currency, using def when it is empty.
func (r *Record) NormalizedCurrency(def string) string {
	c := strings.ToUpper(strings.TrimSpace(r.Currency))
	if c == "" {
		return strings.ToUpper(def)
	}
	return c
}

// Reason explains one rule's contribution to a match confidence.
type Reason struct {
	RuleID string  `json:"ruleId"`
	Rule   string  `json:"rule"`
	Score  float64 `json:"score"`
	Detail string  `json:"detail"`
}

// SuggestionStatus is the state of a suggested match.
type SuggestionStatus string

const (
	SuggestionPending     SuggestionStatus = "pending"
	SuggestionAutoMatched SuggestionStatus = "auto_matched"
)

// Suggestion is a candidate match between a source and a target. There is
// at most one per (SourceID, TargetID).
type Suggestion struct {
	ID         string           `json:"id"`
	SourceID   string           `json:"sourceId"`
	TargetID   string           `json:"targetId"`
	Confidence float64          `json:"confidence"`
	Reasons    []Reason         `json:"reasons"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// FlagType is the kind of a risk flag.
type FlagType string

const (
	FlagDuplicatePayment FlagType = "duplicate_payment"
	FlagUnreconciled     FlagType = "unreconciled"
	FlagOverdue          FlagType = "overdue"
)

// Severity grades a risk flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskFlag marks a record that needs attention. There is at most one flag
// per (Type, EntityID, RelatedEntityID).
type RiskFlag struct {
	ID              string    `json:"id"`
	Type            FlagType  `json:"type"`
	Severity        Severity  `json:"severity"`
	EntityID        string    `json:"entityId"`
	RelatedEntityID string    `json:"relatedEntityId,omitempty"`
	Message         string    `json:"message"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Settings are the reconciliation settings an operator can change at
// runtime.
type Settings struct {
	MinConfidenceScore float64 `json:"minConfidenceScore"`
	AutoMatchEnabled   bool    `json:"autoMatchEnabled"`
}

// StoredSettings holds the settings present in the store. Nil fields are
// unset.
type StoredSettings struct {
	MinConfidenceScore *float64
	AutoMatchEnabled   *bool
}

// Resolve fills unset fields from defaults.
func (s StoredSettings) Resolve(defaults Settings) Settings {
	out := defaults
	if s.MinConfidenceScore != nil {
		out.MinConfidenceScore = *s.MinConfidenceScore
	}
	if s.AutoMatchEnabled != nil {
		out.AutoMatchEnabled = *s.AutoMatchEnabled
	}
	return out
}
