package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const sampleYAML = `
version: 3
rules:
  - id: freezone-uplift
    name: Freezone uplift
    type: pricing
    priority: 20
    isActive: true
    conditions:
      - {field: jurisdiction_type, operator: equals, value: freezone}
    actions:
      - {type: multiply_price, value: 1.1}
  - id: high-risk-fee
    name: High risk fee
    type: pricing
    priority: 10
    conditions:
      - {field: risk_level, operator: equals, value: high}
    actions:
      - {type: add_fee, value: 500}
      - {type: require_document, value: source_of_funds}
      - {type: set_processing_time, processingDays: 10}
  - id: sanctioned
    name: Sanctioned nationality
    type: eligibility
    priority: 1
    isActive: false
    conditions:
      - {field: country, operator: in, value: [KP, IR]}
    actions:
      - {type: block, message: Not eligible}
      - {type: set_flag, name: manual_review}
  - id: amount-tolerance
    name: Amount within 2%
    type: matching
    priority: 50
    scope: payable
    criteria:
      - {type: amount_tolerance, tolerancePercent: 2}
`

func TestDecodeYAML(t *testing.T) {
	set, err := Decode([]byte(sampleYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if set.Version != 3 {
		t.Errorf("Version = %d, want 3", set.Version)
	}

	var ids []string
	for _, r := range set.Rules {
		ids = append(ids, r.ID)
	}
	wantIDs := []string{"sanctioned", "high-risk-fee", "freezone-uplift", "amount-tolerance"}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Errorf("rule order = %v, want %v", ids, wantIDs)
	}

	sanctioned := set.Rules[0]
	if sanctioned.Active {
		t.Error("sanctioned rule should be inactive")
	}
	if got := sanctioned.Conditions[0]; got.Field != FieldNationality || got.Operator != OperatorIn || !reflect.DeepEqual(got.Value, Set("KP", "IR")) {
		t.Errorf("sanctioned condition = %+v", got)
	}
	wantActions := []Action{Block{Message: "Not eligible"}, SetFlag{Name: "manual_review", Value: true}}
	if !reflect.DeepEqual(sanctioned.Actions, wantActions) {
		t.Errorf("sanctioned actions = %#v, want %#v", sanctioned.Actions, wantActions)
	}

	fee := set.Rules[1]
	if !fee.Active {
		t.Error("isActive defaults to true")
	}
	wantFee := []Action{AddFee{Amount: 500}, RequireDocument{Name: "source_of_funds"}, SetProcessingTime{Days: 10}}
	if !reflect.DeepEqual(fee.Actions, wantFee) {
		t.Errorf("fee actions = %#v, want %#v", fee.Actions, wantFee)
	}

	match := set.Rules[3]
	if match.Scope != ScopePayable || match.Weight() != 50 {
		t.Errorf("matching rule scope=%q weight=%d", match.Scope, match.Weight())
	}
	if !reflect.DeepEqual(match.Criteria, []Criterion{AmountTolerance{TolerancePercent: 2}}) {
		t.Errorf("criteria = %#v", match.Criteria)
	}
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"version": 1, "rules": [
		{"id": "r1", "name": "Dubai plan", "type": "eligibility", "priority": 5, "isActive": true,
		 "conditions": [{"field": "emirate", "operator": "equals", "value": "dubai"}],
		 "actions": [{"type": "show_warning", "message": "Dubai permits take longer"},
		             {"type": "set_processing_time", "value": 14}]}]}`

	set, err := Decode([]byte(doc), FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []Action{ShowWarning{Message: "Dubai permits take longer"}, SetProcessingTime{Days: 14}}
	if !reflect.DeepEqual(set.Rules[0].Actions, want) {
		t.Errorf("actions = %#v, want %#v", set.Rules[0].Actions, want)
	}
}

func TestDecodeKeepsUnknownNames(t *testing.T) {
	doc := `
rules:
  - id: odd
    name: Odd rule
    type: eligibility
    priority: 1
    conditions:
      - {field: shoe_size, operator: equals, value: "42"}
      - {field: emirate, operator: resembles, value: dubai}
    actions:
      - {type: show_warning, message: never}
`
	set, err := Decode([]byte(doc), FormatYAML)
	if err != nil {
		t.Fatalf("unknown fields and operators must not fail decoding: %v", err)
	}
	conds := set.Rules[0].Conditions
	if conds[0].Field != FieldUnknown || conds[1].Operator != OperatorUnknown {
		t.Errorf("conditions = %+v", conds)
	}

	findings := Lint(set.Rules)
	var warnings int
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("Lint() warnings = %d, want 2: %v", warnings, findings)
	}
}

func TestDecodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name:    "missing id",
			doc:     "rules:\n  - {name: x, type: pricing, priority: 1}\n",
			wantMsg: "required",
		},
		{
			name:    "bad type",
			doc:     "rules:\n  - {id: a, name: x, type: discount, priority: 1}\n",
			wantMsg: "oneof",
		},
		{
			name:    "negative factor",
			doc:     "rules:\n  - {id: a, name: x, type: pricing, priority: 1, actions: [{type: multiply_price, value: -2}]}\n",
			wantMsg: "must not be negative",
		},
		{
			name:    "non numeric fee",
			doc:     "rules:\n  - {id: a, name: x, type: pricing, priority: 1, actions: [{type: add_fee, value: lots}]}\n",
			wantMsg: "not a number",
		},
		{
			name:    "matching without criteria",
			doc:     "rules:\n  - {id: a, name: x, type: matching, priority: 1}\n",
			wantMsg: "at least one criterion",
		},
		{
			name:    "duplicate ids",
			doc:     "rules:\n  - {id: a, name: x, type: pricing, priority: 1}\n  - {id: a, name: y, type: pricing, priority: 2}\n",
			wantMsg: "duplicate rule id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc), FormatYAML)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Decode() error = %v, want *ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	rs := []Rule{
		{ID: "c", Type: TypePricing, Priority: 30, Active: true},
		{ID: "m", Type: TypeMatching, Priority: 1, Active: true},
		{ID: "a", Type: TypeEligibility, Priority: 10, Active: true},
		{ID: "off", Type: TypePricing, Priority: 5, Active: false},
		{ID: "b", Type: TypePricing, Priority: 10, Active: true},
	}

	got := Select(rs, TypeEligibility, TypePricing)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Select() = %v, want %v", ids, want)
	}
	if rs[0].ID != "c" {
		t.Error("Select must not reorder its input")
	}
}
