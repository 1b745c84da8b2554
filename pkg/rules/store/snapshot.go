package store

import (
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

// Snapshot is an immutable view of the active rule set. Rule slices are
// filtered to active rules and sorted by precedence. Callers must not
// modify them.
type Snapshot struct {
	Version  int
	Source   string
	LoadedAt time.Time

	// Eligibility holds eligibility and pricing rules.
	Eligibility []rules.Rule

	// Matching holds matching rules.
	Matching []rules.Rule

	// Inactive counts rules present in the document but switched off.
	Inactive int
}

func newSnapshot(set *rules.RuleSet, source string, now time.Time) *Snapshot {
	snap := &Snapshot{
		Version:     set.Version,
		Source:      source,
		LoadedAt:    now,
		Eligibility: rules.Select(set.Rules, rules.TypeEligibility, rules.TypePricing),
		Matching:    rules.Select(set.Rules, rules.TypeMatching),
	}
	for _, r := range set.Rules {
		if !r.Active {
			snap.Inactive++
		}
	}
	return snap
}

// Counts returns the number of active rules per type.
func (s *Snapshot) Counts() map[string]int {
	counts := map[string]int{
		string(rules.TypeEligibility): 0,
		string(rules.TypePricing):     0,
		string(rules.TypeMatching):    len(s.Matching),
	}
	for _, r := range s.Eligibility {
		counts[string(r.Type)]++
	}
	return counts
}
