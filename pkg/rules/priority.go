package rules

import (
	"cmp"
	"slices"
)

// SortByPriority sorts rules by precedence in place: ascending priority
// number, then ID, then name. The sort is stable.
func SortByPriority(rs []Rule) {
	slices.SortStableFunc(rs, func(a, b Rule) int {
		return cmp.Or(
			cmp.Compare(a.Priority, b.Priority),
			cmp.Compare(a.ID, b.ID),
			cmp.Compare(a.Name, b.Name),
		)
	})
}

// Select returns the active rules of the given types in precedence order.
// The input is not modified.
func Select(rs []Rule, types ...RuleType) []Rule {
	out := make([]Rule, 0, len(rs))
	for _, r := range rs {
		if r.Active && slices.Contains(types, r.Type) {
			out = append(out, r)
		}
	}
	SortByPriority(out)
	return out
}
