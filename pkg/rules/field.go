package rules

import "strings"

// Field is a recognized evaluation context attribute.
type Field int

const (
	// FieldUnknown is any field name that is not recognized. Conditions on
	// it never match.
	FieldUnknown Field = iota
	FieldNationality
	FieldEmirate
	FieldJurisdictionType
	FieldActivityCode
	FieldRiskLevel
	FieldPlanCode
)

// fieldNames maps canonical names and synonyms to fields.
var fieldNames = map[string]Field{
	"nationality":         FieldNationality,
	"country":             FieldNationality,
	"emirate":             FieldEmirate,
	"jurisdiction_type":   FieldJurisdictionType,
	"jurisdiction":        FieldJurisdictionType,
	"location_type":       FieldJurisdictionType,
	"activity_code":       FieldActivityCode,
	"risk_level":          FieldRiskLevel,
	"activity_risk_level": FieldRiskLevel,
	"plan_code":           FieldPlanCode,
	"plan":                FieldPlanCode,
}

// ResolveField maps a field name, canonical or synonym, to a Field.
// Lookup is case-insensitive and ignores surrounding whitespace.
func ResolveField(name string) Field {
	if f, ok := fieldNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f
	}
	return FieldUnknown
}

// String returns the canonical field name.
func (f Field) String() string {
	switch f {
	case FieldNationality:
		return "nationality"
	case FieldEmirate:
		return "emirate"
	case FieldJurisdictionType:
		return "jurisdiction_type"
	case FieldActivityCode:
		return "activity_code"
	case FieldRiskLevel:
		return "risk_level"
	case FieldPlanCode:
		return "plan_code"
	default:
		return "unknown"
	}
}

// Context holds the known attributes of the entity being evaluated.
// An empty string means the attribute is absent.
type Context struct {
	Nationality      string `json:"nationality,omitempty"`
	Emirate          string `json:"emirate,omitempty"`
	JurisdictionType string `json:"jurisdiction_type,omitempty"`
	ActivityCode     string `json:"activity_code,omitempty"`
	RiskLevel        string `json:"risk_level,omitempty"`
	PlanCode         string `json:"plan_code,omitempty"`
}

// ContextFromMap builds a Context from a free-form attribute map. Synonyms
// are resolved and unrecognized keys are ignored. When a field is given
// under several names the canonical name wins.
func ContextFromMap(m map[string]string) Context {
	var c Context
	canonical := make(map[Field]bool)
	for key, value := range m {
		f := ResolveField(key)
		if f == FieldUnknown {
			continue
		}
		isCanonical := strings.EqualFold(strings.TrimSpace(key), f.String())
		if canonical[f] && !isCanonical {
			continue
		}
		if isCanonical {
			canonical[f] = true
		}
		c.set(f, value)
	}
	return c
}

// Value returns the attribute for f and whether it is present.
func (c Context) Value(f Field) (string, bool) {
	var v string
	switch f {
	case FieldNationality:
		v = c.Nationality
	case FieldEmirate:
		v = c.Emirate
	case FieldJurisdictionType:
		v = c.JurisdictionType
	case FieldActivityCode:
		v = c.ActivityCode
	case FieldRiskLevel:
		v = c.RiskLevel
	case FieldPlanCode:
		v = c.PlanCode
	default:
		return "", false
	}
	return v, v != ""
}

func (c *Context) set(f Field, v string) {
	switch f {
	case FieldNationality:
		c.Nationality = v
	case FieldEmirate:
		c.Emirate = v
	case FieldJurisdictionType:
		c.JurisdictionType = v
	case FieldActivityCode:
		c.ActivityCode = v
	case FieldRiskLevel:
		c.RiskLevel = v
	case FieldPlanCode:
		c.PlanCode = v
	}
}
