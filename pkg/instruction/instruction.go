// Package instruction applies batches of variable assignments.
//
// Assignments run in declaration order against a working copy of the store,
// so each one sees the results of the previous ones. A bad assignment never
// aborts the batch: it is skipped and reported in Outcome.Errors.
package instruction

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/storyflow/pkg/condition"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/schema"
)

// Operator names.
const (
	OpSet      = "set"
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpSetTrue  = "set_true"
	OpSetFalse = "set_false"
	OpToggle   = "toggle"
	OpClear    = "clear"
	OpRemove   = "remove"
)

var families = map[domain.Kind][]string{
	domain.KindNumber:      {OpSet, OpAdd, OpSubtract},
	domain.KindBoolean:     {OpSetTrue, OpSetFalse, OpToggle},
	domain.KindText:        {OpSet, OpClear},
	domain.KindSelect:      {OpSet},
	domain.KindMultiSelect: {OpSet, OpAdd, OpRemove},
	domain.KindDate:        {OpSet},
}

// Operators returns the assignment operators supported by kind.
func Operators(kind domain.Kind) []string {
	return append([]string(nil), families[kind]...)
}

// Supports reports whether op can be applied to a variable of kind.
func Supports(kind domain.Kind, op string) bool {
	return slices.Contains(families[kind], op)
}

// Outcome is the result of executing a batch.
type Outcome struct {
	// Variables is the new store. The input map is left untouched.
	Variables map[string]domain.Variable
	// Changes lists applied assignments in order.
	Changes []domain.Change
	// Errors lists skipped assignments in order, one entry each.
	Errors []domain.AssignmentError
	// Effects holds one entry per assignment, in batch order.
	Effects []Effect
}

// Effect is the outcome of one assignment: exactly one field is set.
type Effect struct {
	Change *domain.Change
	Error  *domain.AssignmentError
}

// Execute applies assignments to a copy of vars.
func Execute(assignments []domain.Assignment, vars map[string]domain.Variable) Outcome {
	out := Outcome{Variables: domain.CloneVariables(vars)}

	for _, a := range assignments {
		change, err := apply(a, out.Variables)
		if err != nil {
			ae := domain.AssignmentError{
				AssignmentID: a.ID,
				Variable:     a.Variable,
				Reason:       err.Error(),
			}
			out.Errors = append(out.Errors, ae)
			out.Effects = append(out.Effects, Effect{Error: &ae})
			continue
		}
		out.Changes = append(out.Changes, change)
		out.Effects = append(out.Effects, Effect{Change: &change})
	}
	return out
}

func apply(a domain.Assignment, working map[string]domain.Variable) (domain.Change, error) {
	if a.Variable == "" {
		return domain.Change{}, fmt.Errorf("no target variable")
	}
	target, ok := working[a.Variable]
	if !ok {
		return domain.Change{}, fmt.Errorf("variable %q not found", a.Variable)
	}
	if !Supports(target.Kind, a.Operator) {
		return domain.Change{}, fmt.Errorf("operator %q is not supported for %s variables", a.Operator, target.Kind)
	}

	operand, err := resolveOperand(a, working)
	if err != nil {
		return domain.Change{}, err
	}

	next, err := compute(target, a.Operator, operand)
	if err != nil {
		return domain.Change{}, err
	}
	next, err = schema.ValidateValue(a.Variable, target.Kind, target.Options, next)
	if err != nil {
		return domain.Change{}, err
	}

	old := domain.CloneValue(target.Value)
	target.PreviousValue = old
	target.Value = next
	target.Source = domain.SourceInstruction
	working[a.Variable] = target

	return domain.Change{
		AssignmentID: a.ID,
		Variable:     a.Variable,
		Operator:     a.Operator,
		OldValue:     old,
		NewValue:     domain.CloneValue(next),
	}, nil
}

// resolveOperand returns the literal, or the current value of the referenced
// variable in the working store.
func resolveOperand(a domain.Assignment, working map[string]domain.Variable) (any, error) {
	if a.ValueType != domain.ValueVariableRef {
		return a.Value, nil
	}
	if a.ValueVariable == "" {
		return nil, fmt.Errorf("no referenced variable")
	}
	ref, ok := working[a.ValueVariable]
	if !ok {
		return nil, fmt.Errorf("referenced variable %q not found", a.ValueVariable)
	}
	return domain.CloneValue(ref.Value), nil
}

func compute(target domain.Variable, op string, operand any) (any, error) {
	switch target.Kind {
	case domain.KindNumber:
		return computeNumber(target.Value, op, operand)
	case domain.KindBoolean:
		current, _ := target.Value.(bool)
		switch op {
		case OpSetTrue:
			return true, nil
		case OpSetFalse:
			return false, nil
		case OpToggle:
			return !current, nil
		}
	case domain.KindText:
		if op == OpClear {
			return "", nil
		}
		if operand == nil {
			return nil, nil
		}
		return fmt.Sprint(operand), nil
	case domain.KindSelect, domain.KindDate:
		if operand == nil {
			return nil, nil
		}
		return fmt.Sprint(operand), nil
	case domain.KindMultiSelect:
		return computeMultiSelect(target.Value, op, operand)
	}
	return nil, fmt.Errorf("unsupported kind %q", target.Kind)
}

func computeNumber(current any, op string, operand any) (any, error) {
	if op == OpSet && operand == nil {
		return nil, nil
	}
	n, ok := condition.ToNumber(operand)
	if !ok {
		return nil, fmt.Errorf("value %v is not a number", operand)
	}
	if op == OpSet {
		return n, nil
	}
	// An unset number counts as zero for arithmetic.
	base, _ := condition.ToNumber(current)
	if op == OpAdd {
		return base + n, nil
	}
	return base - n, nil
}

func computeMultiSelect(current any, op string, operand any) (any, error) {
	items := toList(operand)
	switch op {
	case OpSet:
		return items, nil
	case OpAdd:
		out := append([]string(nil), toList(current)...)
		for _, item := range items {
			if !slices.Contains(out, item) {
				out = append(out, item)
			}
		}
		return out, nil
	case OpRemove:
		var out []string
		for _, item := range toList(current) {
			if !slices.Contains(items, item) {
				out = append(out, item)
			}
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

func toList(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if out == nil {
			out = []string{}
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}
