package rules

import "fmt"

// Severity of a lint finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is a lint result for a compiled rule. Findings never prevent a
// rule set from loading.
type Finding struct {
	RuleID   string   `json:"ruleId" yaml:"ruleId"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: rule %s: %s", f.Severity, f.RuleID, f.Message)
}

// Lint reports rules that load but probably do not do what their author
// meant: conditions that can never match, matching rules that never
// contribute, and rules that fire for every context.
func Lint(rs []Rule) []Finding {
	var out []Finding
	priorities := make(map[RuleType]map[int]string)

	for _, r := range rs {
		for _, c := range r.Conditions {
			if c.Field == FieldUnknown {
				out = append(out, Finding{r.ID, SeverityWarning,
					fmt.Sprintf("unknown field %q never matches", c.RawField)})
			}
			if c.Operator == OperatorUnknown {
				out = append(out, Finding{r.ID, SeverityWarning,
					fmt.Sprintf("unknown operator %q never matches", c.RawOperator)})
			}
		}

		if r.Type == TypeMatching && r.Weight() <= 0 {
			out = append(out, Finding{r.ID, SeverityWarning,
				fmt.Sprintf("priority %d gives weight %d, rule never contributes", r.Priority, r.Weight())})
		}
		if r.Type != TypeMatching && len(r.Conditions) == 0 && r.Active {
			out = append(out, Finding{r.ID, SeverityInfo, "no conditions, fires for every context"})
		}
		if !r.Active {
			out = append(out, Finding{r.ID, SeverityInfo, "inactive"})
		}

		if priorities[r.Type] == nil {
			priorities[r.Type] = make(map[int]string)
		}
		if other, ok := priorities[r.Type][r.Priority]; ok {
			out = append(out, Finding{r.ID, SeverityInfo,
				fmt.Sprintf("shares priority %d with %s, ordered by id", r.Priority, other)})
		} else {
			priorities[r.Type][r.Priority] = r.ID
		}
	}
	return out
}
