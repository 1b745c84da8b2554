package rules

import (
	"slices"
	"strings"
)

// Evaluate reports whether condition c holds for ctx. It never fails:
// unknown fields and operators evaluate to false.
func Evaluate(c Condition, ctx Context) bool {
	if c.Field == FieldUnknown {
		return false
	}
	actual, present := ctx.Value(c.Field)

	switch c.Operator {
	case OperatorEquals:
		return present && !c.Value.IsSet && actual == c.Value.Scalar
	case OperatorNotEquals:
		// An absent field always satisfies not_equals.
		return !present || c.Value.IsSet || actual != c.Value.Scalar
	case OperatorContains:
		return present && !c.Value.IsSet && strings.Contains(actual, c.Value.Scalar)
	case OperatorIn:
		return present && slices.Contains(c.Value.members(), actual)
	case OperatorNotIn:
		return !present || !slices.Contains(c.Value.members(), actual)
	default:
		return false
	}
}

// Matches reports whether every condition holds. An empty list matches.
func Matches(conditions []Condition, ctx Context) bool {
	for _, c := range conditions {
		if !Evaluate(c, ctx) {
			return false
		}
	}
	return true
}
