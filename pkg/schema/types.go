package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/storyflow/pkg/domain"
)

// DateLayout is the layout of date variables.
const DateLayout = "2006-01-02"

// Type defines the contract for value validation.
// Implementations determine how values are validated against a kind.
type Type interface {
	// Name returns the kind name (e.g., "number", "select").
	Name() string
	// Validate checks if a normalised value conforms to this type.
	// A nil value is always accepted: it represents an unset variable.
	Validate(value any) error
}

// --- Built-in Type Implementations ---

// NumberType validates numeric values.
type NumberType struct{}

func (t *NumberType) Name() string { return string(domain.KindNumber) }

func (t *NumberType) Validate(value any) error {
	if value == nil {
		return nil
	}
	if _, ok := value.(float64); !ok {
		return fmt.Errorf("expected number, got %T", value)
	}
	return nil
}

// BooleanType validates boolean values.
type BooleanType struct{}

func (t *BooleanType) Name() string { return string(domain.KindBoolean) }

func (t *BooleanType) Validate(value any) error {
	if value == nil {
		return nil
	}
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

// TextType validates free text.
type TextType struct{}

func (t *TextType) Name() string { return string(domain.KindText) }

func (t *TextType) Validate(value any) error {
	if value == nil {
		return nil
	}
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected text, got %T", value)
	}
	return nil
}

// SelectType validates a single choice among options.
// An empty option list accepts any string.
type SelectType struct {
	options []string
}

func (t *SelectType) Name() string { return string(domain.KindSelect) }

func (t *SelectType) Validate(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected select option, got %T", value)
	}
	if len(t.options) > 0 && !slices.Contains(t.options, s) {
		return fmt.Errorf("%q is not one of %v", s, t.options)
	}
	return nil
}

// MultiSelectType validates a set of choices among options.
type MultiSelectType struct {
	options []string
}

func (t *MultiSelectType) Name() string { return string(domain.KindMultiSelect) }

func (t *MultiSelectType) Validate(value any) error {
	if value == nil {
		return nil
	}
	list, ok := value.([]string)
	if !ok {
		return fmt.Errorf("expected list of options, got %T", value)
	}
	if len(t.options) == 0 {
		return nil
	}
	for i, s := range list {
		if !slices.Contains(t.options, s) {
			return fmt.Errorf("element %d: %q is not one of %v", i, s, t.options)
		}
	}
	return nil
}

// DateType validates ISO-8601 calendar dates.
type DateType struct{}

func (t *DateType) Name() string { return string(domain.KindDate) }

func (t *DateType) Validate(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected date, got %T", value)
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("expected date as %s, got %q", DateLayout, s)
	}
	return nil
}

// --- Factory Functions ---

// ForKind returns the validator of a declared kind.
func ForKind(kind domain.Kind, options []string) (Type, error) {
	switch kind {
	case domain.KindNumber:
		return &NumberType{}, nil
	case domain.KindBoolean:
		return &BooleanType{}, nil
	case domain.KindText:
		return &TextType{}, nil
	case domain.KindSelect:
		return &SelectType{options: options}, nil
	case domain.KindMultiSelect:
		return &MultiSelectType{options: options}, nil
	case domain.KindDate:
		return &DateType{}, nil
	default:
		return nil, fmt.Errorf("unsupported kind: %q", kind)
	}
}

// Normalize converts decoder-produced values into the canonical Go type of
// the kind. Values it cannot convert are returned unchanged for Validate to reject.
func Normalize(kind domain.Kind, value any) any {
	switch kind {
	case domain.KindNumber:
		switch v := value.(type) {
		case int:
			return float64(v)
		case int8:
			return float64(v)
		case int16:
			return float64(v)
		case int32:
			return float64(v)
		case int64:
			return float64(v)
		case uint:
			return float64(v)
		case uint32:
			return float64(v)
		case uint64:
			return float64(v)
		case float32:
			return float64(v)
		}
	case domain.KindMultiSelect:
		if list, ok := value.([]any); ok {
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return value
				}
				out = append(out, s)
			}
			return out
		}
	case domain.KindDate:
		if t, ok := value.(time.Time); ok {
			return t.Format(DateLayout)
		}
	}
	return value
}

// Parse converts raw user text into a value of the kind.
// The literal "nil" (or an empty string for non-text kinds) clears the value.
func Parse(kind domain.Kind, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "nil" || (trimmed == "" && kind != domain.KindText) {
		return nil, nil
	}
	switch kind {
	case domain.KindNumber:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		return f, nil
	case domain.KindBoolean:
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", raw)
		}
		return b, nil
	case domain.KindMultiSelect:
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	case domain.KindText:
		return raw, nil
	case domain.KindSelect, domain.KindDate:
		return trimmed, nil
	default:
		return nil, fmt.Errorf("unsupported kind: %q", kind)
	}
}
