package rules

// ActionKind names an action variant on the wire.
type ActionKind string

const (
	ActionMultiplyPrice     ActionKind = "multiply_price"
	ActionAddFee            ActionKind = "add_fee"
	ActionSetFlag           ActionKind = "set_flag"
	ActionRequireDocument   ActionKind = "require_document"
	ActionShowWarning       ActionKind = "show_warning"
	ActionBlock             ActionKind = "block"
	ActionSetProcessingTime ActionKind = "set_processing_time"
)

// Accumulator receives the effects of fired actions. Every action variant
// maps to exactly one method, so a new variant cannot be added without the
// eligibility result learning how to apply it.
type Accumulator interface {
	MultiplyPrice(factor float64)
	AddFee(amount float64)
	SetFlag(name string, value bool)
	RequireDocument(name string)
	AddWarning(message string)
	Block(message string)
	ProcessingTime(days int)
}

// Action is one effect of a fired eligibility or pricing rule.
// The set of implementations is closed to this package.
type Action interface {
	Kind() ActionKind
	Apply(acc Accumulator)
	sealed()
}

// MultiplyPrice scales the price multiplier. Factor is never negative.
type MultiplyPrice struct{ Factor float64 }

// AddFee adds a flat fee.
type AddFee struct{ Amount float64 }

// SetFlag sets a named boolean flag.
type SetFlag struct {
	Name  string
	Value bool
}

// RequireDocument appends a required document.
type RequireDocument struct{ Name string }

// ShowWarning appends a warning for display.
type ShowWarning struct{ Message string }

// Block marks the context as blocked. Evaluation of later rules continues.
type Block struct{ Message string }

// SetProcessingTime proposes a processing time in days; the longest wins.
type SetProcessingTime struct{ Days int }

func (MultiplyPrice) Kind() ActionKind     { return ActionMultiplyPrice }
func (AddFee) Kind() ActionKind            { return ActionAddFee }
func (SetFlag) Kind() ActionKind           { return ActionSetFlag }
func (RequireDocument) Kind() ActionKind   { return ActionRequireDocument }
func (ShowWarning) Kind() ActionKind       { return ActionShowWarning }
func (Block) Kind() ActionKind             { return ActionBlock }
func (SetProcessingTime) Kind() ActionKind { return ActionSetProcessingTime }

func (a MultiplyPrice) Apply(acc Accumulator)     { acc.MultiplyPrice(a.Factor) }
func (a AddFee) Apply(acc Accumulator)            { acc.AddFee(a.Amount) }
func (a SetFlag) Apply(acc Accumulator)           { acc.SetFlag(a.Name, a.Value) }
func (a RequireDocument) Apply(acc Accumulator)   { acc.RequireDocument(a.Name) }
func (a ShowWarning) Apply(acc Accumulator)       { acc.AddWarning(a.Message) }
func (a Block) Apply(acc Accumulator)             { acc.Block(a.Message) }
func (a SetProcessingTime) Apply(acc Accumulator) { acc.ProcessingTime(a.Days) }

func (MultiplyPrice) sealed()     {}
func (AddFee) sealed()            {}
func (SetFlag) sealed()           {}
func (RequireDocument) sealed()   {}
func (ShowWarning) sealed()       {}
func (Block) sealed()             {}
func (SetProcessingTime) sealed() {}
