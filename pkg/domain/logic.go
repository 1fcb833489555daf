package domain

// Logic combines the rules of a Condition.
type Logic string

const (
	LogicAll Logic = "all"
	LogicAny Logic = "any"
)

// Condition is a rule-set evaluated against the variable store.
type Condition struct {
	Logic Logic  `json:"logic" yaml:"logic" mapstructure:"logic"`
	Rules []Rule `json:"rules" yaml:"rules" mapstructure:"rules"`
}

// Rule compares one variable against a literal with an operator of the
// variable's kind.
type Rule struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id"`
	Variable string `json:"variable" yaml:"variable" mapstructure:"variable"`
	Operator string `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value    any    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

// RuleResult is the per-rule detail of a condition evaluation.
type RuleResult struct {
	RuleID   string `json:"rule_id"`
	Passed   bool   `json:"passed"`
	Variable string `json:"variable"`
	Operator string `json:"operator"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual"`
	Missing  bool   `json:"missing,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Assignment operand types.
const (
	ValueLiteral     = "literal"
	ValueVariableRef = "variable_ref"
)

// Assignment mutates one variable.
type Assignment struct {
	ID            string `json:"id" yaml:"id" mapstructure:"id"`
	Variable      string `json:"variable" yaml:"variable" mapstructure:"variable"`
	Operator      string `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value         any    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	ValueType     string `json:"value_type,omitempty" yaml:"value_type,omitempty" mapstructure:"value_type"`
	ValueVariable string `json:"value_variable,omitempty" yaml:"value_variable,omitempty" mapstructure:"value_variable"`
}

// Change records one applied assignment.
type Change struct {
	AssignmentID string `json:"assignment_id"`
	Variable     string `json:"variable"`
	Operator     string `json:"operator"`
	OldValue     any    `json:"old_value"`
	NewValue     any    `json:"new_value"`
}

// AssignmentError records one skipped assignment.
type AssignmentError struct {
	AssignmentID string `json:"assignment_id"`
	Variable     string `json:"variable"`
	Reason       string `json:"reason"`
}

func (e AssignmentError) Error() string {
	return "assignment " + e.AssignmentID + " on " + e.Variable + ": " + e.Reason
}
