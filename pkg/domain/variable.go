package domain

import "slices"

// Kind is the declared value kind of a variable. It disambiguates which
// operator family applies to the variable in conditions and assignments.
type Kind string

const (
	KindNumber      Kind = "number"
	KindBoolean     Kind = "boolean"
	KindText        Kind = "text"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multi_select"
	KindDate        Kind = "date"
)

// Source records where the current value of a variable came from.
type Source string

const (
	SourceInitial      Source = "initial"
	SourceUserOverride Source = "user_override"
	SourceInstruction  Source = "instruction"
)

// Variable is one entry of the variable store, keyed by "owner.name".
type Variable struct {
	Key           string   `json:"key" yaml:"key"`
	Kind          Kind     `json:"kind" yaml:"kind"`
	Value         any      `json:"value" yaml:"value"`
	InitialValue  any      `json:"initial_value" yaml:"initial_value"`
	// PreviousValue is the value before the most recent engine step.
	PreviousValue any      `json:"previous_value" yaml:"previous_value"`
	Source        Source   `json:"source" yaml:"source"`
	Options       []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// NewVariable declares a variable whose current and initial value are value.
func NewVariable(key string, kind Kind, value any) Variable {
	return Variable{
		Key:           key,
		Kind:          kind,
		Value:         CloneValue(value),
		InitialValue:  CloneValue(value),
		PreviousValue: CloneValue(value),
		Source:        SourceInitial,
	}
}

// Clone returns a deep copy of v.
func (v Variable) Clone() Variable {
	out := v
	out.Value = CloneValue(v.Value)
	out.InitialValue = CloneValue(v.InitialValue)
	out.PreviousValue = CloneValue(v.PreviousValue)
	out.Options = slices.Clone(v.Options)
	return out
}

// CloneVariables deep-copies a variable map.
func CloneVariables(src map[string]Variable) map[string]Variable {
	out := make(map[string]Variable, len(src))
	for k, v := range src {
		out[k] = v.Clone()
	}
	return out
}

// CloneValue copies the mutable containers a variable value may hold.
func CloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return slices.Clone(val)
	case []any:
		return slices.Clone(val)
	default:
		return v
	}
}
