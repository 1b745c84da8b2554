package rules

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a rule document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Document is the wire form of a versioned rule set.
type Document struct {
	Version int            `yaml:"version" json:"version" validate:"gte=0"`
	Rules   []DocumentRule `yaml:"rules" json:"rules" validate:"dive"`
}

// DocumentRule is the wire form of a rule.
type DocumentRule struct {
	ID         string              `yaml:"id" json:"id" validate:"required"`
	Name       string              `yaml:"name" json:"name" validate:"required"`
	Type       string              `yaml:"type" json:"type" validate:"required,oneof=eligibility pricing matching"`
	Priority   int                 `yaml:"priority" json:"priority" validate:"gte=0"`
	IsActive   *bool               `yaml:"isActive,omitempty" json:"isActive,omitempty"`
	Scope      string              `yaml:"scope,omitempty" json:"scope,omitempty" validate:"omitempty,oneof=all payable receivable"`
	Conditions []DocumentCondition `yaml:"conditions,omitempty" json:"conditions,omitempty" validate:"dive"`
	Actions    []DocumentAction    `yaml:"actions,omitempty" json:"actions,omitempty" validate:"dive"`
	Criteria   []DocumentCriterion `yaml:"criteria,omitempty" json:"criteria,omitempty" validate:"dive"`
}

// DocumentCondition is the wire form of a condition. Value is a scalar or
// a list.
type DocumentCondition struct {
	Field    string `yaml:"field" json:"field" validate:"required"`
	Operator string `yaml:"operator" json:"operator" validate:"required"`
	Value    any    `yaml:"value" json:"value"`
}

// DocumentAction is the wire form of an action.
type DocumentAction struct {
	Type           string `yaml:"type" json:"type" validate:"required,oneof=multiply_price add_fee set_flag require_document show_warning block set_processing_time"`
	Value          any    `yaml:"value,omitempty" json:"value,omitempty"`
	Name           string `yaml:"name,omitempty" json:"name,omitempty"`
	Message        string `yaml:"message,omitempty" json:"message,omitempty"`
	ProcessingDays *int   `yaml:"processingDays,omitempty" json:"processingDays,omitempty" validate:"omitempty,gte=0"`
}

// DocumentCriterion is the wire form of a matching criterion.
type DocumentCriterion struct {
	Type             string  `yaml:"type" json:"type" validate:"required,oneof=amount_exact amount_tolerance date_range reference_match currency_match"`
	TolerancePercent float64 `yaml:"tolerancePercent,omitempty" json:"tolerancePercent,omitempty" validate:"gte=0"`
	DaysBefore       int     `yaml:"daysBefore,omitempty" json:"daysBefore,omitempty" validate:"gte=0"`
	DaysAfter        int     `yaml:"daysAfter,omitempty" json:"daysAfter,omitempty" validate:"gte=0"`
	PartialMatch     bool    `yaml:"partialMatch,omitempty" json:"partialMatch,omitempty"`
}

// RuleSet is a decoded, validated rule document.
type RuleSet struct {
	Version int
	Rules   []Rule
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseDocument unmarshals a document without validating it.
func ParseDocument(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s rule document: %w", format, err)
	}
	return &doc, nil
}

// Decode parses, validates and converts a rule document.
func Decode(data []byte, format Format) (*RuleSet, error) {
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return doc.Compile()
}

// Compile validates the document and converts it into typed rules.
func (d *Document) Compile() (*RuleSet, error) {
	verr := &ValidationError{}

	if err := validate.Struct(d); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				verr.add(fe.Namespace(), "failed %q validation", fe.Tag())
			}
		} else {
			return nil, fmt.Errorf("failed to validate rule document: %w", err)
		}
	}

	set := &RuleSet{Version: d.Version, Rules: make([]Rule, 0, len(d.Rules))}
	seen := make(map[string]bool, len(d.Rules))
	for i, dr := range d.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if dr.ID != "" && seen[dr.ID] {
			verr.add(path+".id", "duplicate rule id %q", dr.ID)
		}
		seen[dr.ID] = true

		rule, ok := dr.compile(path, verr)
		if ok {
			set.Rules = append(set.Rules, rule)
		}
	}

	if verr.HasProblems() {
		return nil, verr
	}
	SortByPriority(set.Rules)
	return set, nil
}

func (dr DocumentRule) compile(path string, verr *ValidationError) (Rule, bool) {
	before := len(verr.Problems)
	r := Rule{
		ID:       dr.ID,
		Name:     dr.Name,
		Type:     RuleType(dr.Type),
		Priority: dr.Priority,
		Active:   dr.IsActive == nil || *dr.IsActive,
		Scope:    Scope(dr.Scope),
	}

	for _, dc := range dr.Conditions {
		r.Conditions = append(r.Conditions, Condition{
			Field:       ResolveField(dc.Field),
			Operator:    ParseOperator(dc.Operator),
			Value:       toValue(dc.Value),
			RawField:    dc.Field,
			RawOperator: dc.Operator,
		})
	}

	switch r.Type {
	case TypeMatching:
		if len(dr.Criteria) == 0 {
			verr.add(path+".criteria", "matching rule needs at least one criterion")
		}
		if len(dr.Actions) > 0 {
			verr.add(path+".actions", "matching rules take criteria, not actions")
		}
		for _, dc := range dr.Criteria {
			if c := dc.compile(); c != nil {
				r.Criteria = append(r.Criteria, c)
			}
		}
	default:
		if len(dr.Criteria) > 0 {
			verr.add(path+".criteria", "%s rules take actions, not criteria", r.Type)
		}
		for j, da := range dr.Actions {
			a, err := da.compile()
			if err != nil {
				verr.add(fmt.Sprintf("%s.actions[%d]", path, j), "%v", err)
				continue
			}
			if a != nil {
				r.Actions = append(r.Actions, a)
			}
		}
	}

	return r, len(verr.Problems) == before
}

func (da DocumentAction) compile() (Action, error) {
	switch ActionKind(da.Type) {
	case ActionMultiplyPrice:
		f, err := toFloat(da.Value)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, fmt.Errorf("price factor must not be negative, got %v", f)
		}
		return MultiplyPrice{Factor: f}, nil
	case ActionAddFee:
		f, err := toFloat(da.Value)
		if err != nil {
			return nil, err
		}
		return AddFee{Amount: f}, nil
	case ActionSetFlag:
		name := da.Name
		value := true
		switch v := da.Value.(type) {
		case bool:
			value = v
		case string:
			if name == "" {
				name = v
			}
		}
		if name == "" {
			name = da.Message
		}
		if name == "" {
			return nil, fmt.Errorf("set_flag needs a flag name")
		}
		return SetFlag{Name: name, Value: value}, nil
	case ActionRequireDocument:
		name := firstNonEmpty(da.Name, scalarString(da.Value), da.Message)
		if name == "" {
			return nil, fmt.Errorf("require_document needs a document name")
		}
		return RequireDocument{Name: name}, nil
	case ActionShowWarning:
		return ShowWarning{Message: firstNonEmpty(da.Message, scalarString(da.Value))}, nil
	case ActionBlock:
		return Block{Message: firstNonEmpty(da.Message, scalarString(da.Value))}, nil
	case ActionSetProcessingTime:
		if da.ProcessingDays != nil {
			return SetProcessingTime{Days: *da.ProcessingDays}, nil
		}
		f, err := toFloat(da.Value)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, fmt.Errorf("processing days must not be negative, got %v", f)
		}
		return SetProcessingTime{Days: int(f)}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", da.Type)
	}
}

func (dc DocumentCriterion) compile() Criterion {
	switch CriterionKind(dc.Type) {
	case CriterionAmountExact:
		return AmountExact{}
	case CriterionAmountTolerance:
		return AmountTolerance{TolerancePercent: dc.TolerancePercent}
	case CriterionDateRange:
		return DateRange{DaysBefore: dc.DaysBefore, DaysAfter: dc.DaysAfter}
	case CriterionReferenceMatch:
		return ReferenceMatch{Partial: dc.PartialMatch}
	case CriterionCurrencyMatch:
		return CurrencyMatch{}
	default:
		return nil
	}
}

// toValue converts a decoded YAML or JSON operand into a Value.
func toValue(v any) Value {
	switch t := v.(type) {
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			items = append(items, scalarString(item))
		}
		return Set(items...)
	case []string:
		return Set(t...)
	default:
		return Scalar(scalarString(v))
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", t)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("value is required")
	default:
		return 0, fmt.Errorf("value %v is not a number", t)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
