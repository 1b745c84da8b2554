package eligibility

import (
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

// Result is the accumulated effect of the fired rules.
type Result struct {
	PriceMultiplier    float64         `json:"priceMultiplier"`
	AdditionalFees     float64         `json:"additionalFees"`
	Flags              map[string]bool `json:"flags"`
	RequiredDocuments  []string        `json:"requiredDocuments"`
	Warnings           []string        `json:"warnings"`
	Blocked            bool            `json:"blocked"`
	BlockMessage       string          `json:"blockMessage,omitempty"`
	ProcessingTimeDays *int            `json:"processingTimeDays"`
	AppliedRules       []string        `json:"appliedRules"`

	RuleSetVersion int  `json:"ruleSetVersion"`
	Degraded       bool `json:"degraded,omitempty"`
}

var _ rules.Accumulator = (*Result)(nil)

// Neutral returns the identity result: multiplier 1 and nothing else.
func Neutral() *Result {
	return &Result{
		PriceMultiplier:   1,
		Flags:             map[string]bool{},
		RequiredDocuments: []string{},
		Warnings:          []string{},
		AppliedRules:      []string{},
	}
}

// Apply evaluates rs, which must already be filtered and sorted in
// precedence order, against ctx.
func Apply(rs []rules.Rule, ctx rules.Context) *Result {
	res := Neutral()
	for _, r := range rs {
		if !rules.Matches(r.Conditions, ctx) {
			continue
		}
		for _, a := range r.Actions {
			a.Apply(res)
		}
		res.AppliedRules = append(res.AppliedRules, r.Name)
	}
	return res
}

func (r *Result) MultiplyPrice(factor float64) {
	if factor < 0 {
		factor = 0
	}
	r.PriceMultiplier *= factor
}

func (r *Result) AddFee(amount float64) {
	r.AdditionalFees += amount
}

func (r *Result) SetFlag(name string, value bool) {
	r.Flags[name] = value
}

// RequireDocument appends name. Duplicates are kept so the caller can see
// which rules asked for the same document.
func (r *Result) RequireDocument(name string) {
	r.RequiredDocuments = append(r.RequiredDocuments, name)
}

func (r *Result) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Block marks the result blocked. The first non-empty message is kept.
func (r *Result) Block(message string) {
	r.Blocked = true
	if r.BlockMessage == "" {
		r.BlockMessage = message
	}
}

// ProcessingTime keeps the longest proposed processing time.
func (r *Result) ProcessingTime(days int) {
	if r.ProcessingTimeDays == nil || days > *r.ProcessingTimeDays {
		d := days
		r.ProcessingTimeDays = &d
	}
}
