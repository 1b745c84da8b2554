package rules

import "strings"

// RuleType classifies which engine consumes a rule.
type RuleType string

const (
	TypeEligibility RuleType = "eligibility"
	TypePricing     RuleType = "pricing"
	TypeMatching    RuleType = "matching"
)

// Scope restricts a matching rule to one side of reconciliation.
type Scope string

const (
	ScopeAll        Scope = "all"
	ScopePayable    Scope = "payable"
	ScopeReceivable Scope = "receivable"
)

// Includes reports whether a rule with scope s applies to pairs of kind k.
func (s Scope) Includes(k Scope) bool {
	return s == "" || s == ScopeAll || s == k
}

// Rule is a named, prioritized, condition-gated rule.
type Rule struct {
	ID       string
	Name     string
	Type     RuleType
	Priority int
	Active   bool

	// Scope applies to matching rules only.
	Scope Scope

	Conditions []Condition

	// Actions is set for eligibility and pricing rules.
	Actions []Action

	// Criteria is set for matching rules.
	Criteria []Criterion
}

// Weight is the contribution of a matching rule to a confidence score.
func (r Rule) Weight() int {
	return 100 - r.Priority
}

// Operator is a condition comparison.
type Operator int

const (
	OperatorUnknown Operator = iota
	OperatorEquals
	OperatorNotEquals
	OperatorContains
	OperatorIn
	OperatorNotIn
)

// ParseOperator returns the operator for its wire name, or OperatorUnknown.
func ParseOperator(s string) Operator {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equals":
		return OperatorEquals
	case "not_equals":
		return OperatorNotEquals
	case "contains":
		return OperatorContains
	case "in":
		return OperatorIn
	case "not_in":
		return OperatorNotIn
	default:
		return OperatorUnknown
	}
}

func (o Operator) String() string {
	switch o {
	case OperatorEquals:
		return "equals"
	case OperatorNotEquals:
		return "not_equals"
	case OperatorContains:
		return "contains"
	case OperatorIn:
		return "in"
	case OperatorNotIn:
		return "not_in"
	default:
		return "unknown"
	}
}

// Value is a condition operand: a scalar or a set of strings.
type Value struct {
	Scalar string
	Set    []string
	IsSet  bool
}

// Scalar returns a scalar operand.
func Scalar(s string) Value {
	return Value{Scalar: s}
}

// Set returns a set operand.
func Set(items ...string) Value {
	return Value{Set: items, IsSet: true}
}

// members returns the operand as a set; a scalar is a one-element set.
func (v Value) members() []string {
	if v.IsSet {
		return v.Set
	}
	return []string{v.Scalar}
}

// Condition gates a rule on one context attribute.
type Condition struct {
	Field    Field
	Operator Operator
	Value    Value

	// RawField and RawOperator keep the names as written, for diagnostics.
	RawField    string
	RawOperator string
}
