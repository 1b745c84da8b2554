package matching

import (
	"strings"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/ledger"
	"github.com/amanaz3/customer-hub-flow-sub006/pkg/rules"
)

// Score is the confidence that two records belong together.
type Score struct {
	Confidence float64         `json:"confidence"`
	Reasons    []ledger.Reason `json:"reasons"`
}

// Scorer scores record pairs. It holds no state besides its configuration
// and is safe for concurrent use.
type Scorer struct {
	defaultCurrency string
}

// NewScorer returns a scorer that treats an empty record currency as
// defaultCurrency.
func NewScorer(defaultCurrency string) *Scorer {
	return &Scorer{defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// Score computes the confidence for (src, tgt) from matching rules given in
// precedence order. Rules of other types, inactive rules and rules whose
// scope excludes the pair are ignored. Reasons list the contributing rules
// in the order given.
func (s *Scorer) Score(src, tgt ledger.Record, rs []rules.Rule) Score {
	scope := scopeOf(src.Kind)

	var (
		weighted float64
		weights  float64
		reasons  []ledger.Reason
	)
	for _, r := range rs {
		if r.Type != rules.TypeMatching || !r.Active || !r.Scope.Includes(scope) {
			continue
		}
		w := r.Weight()
		if w <= 0 {
			continue
		}
		score, detail := s.scoreRule(r, &src, &tgt)
		if score <= 0 {
			continue
		}
		weighted += score * float64(w)
		weights += float64(w)
		reasons = append(reasons, ledger.Reason{
			RuleID: r.ID,
			Rule:   r.Name,
			Score:  score,
			Detail: detail,
		})
	}

	if weights == 0 {
		return Score{Confidence: 0, Reasons: []ledger.Reason{}}
	}
	return Score{Confidence: weighted / weights, Reasons: reasons}
}

// scoreRule is the minimum of the rule's criteria. A rule without criteria
// has no evidence to offer.
func (s *Scorer) scoreRule(r rules.Rule, src, tgt *ledger.Record) (float64, string) {
	if len(r.Criteria) == 0 {
		return 0, ""
	}
	score := 1.0
	details := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		v, detail := s.scoreCriterion(c, src, tgt)
		score = min(score, v)
		details = append(details, detail)
		if score == 0 {
			break
		}
	}
	return score, strings.Join(details, "; ")
}

func scopeOf(k ledger.Kind) rules.Scope {
	for _, p := range ledger.Pairs {
		if p.Source == k {
			return p.Scope
		}
	}
	return rules.ScopeAll
}
