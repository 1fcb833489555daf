package schema

import (
	"sort"

	"github.com/aretw0/storyflow/pkg/domain"
)

// ValidateValue normalises value for kind and checks it.
// It returns the normalised value.
func ValidateValue(key string, kind domain.Kind, options []string, value any) (any, error) {
	typ, err := ForKind(kind, options)
	if err != nil {
		return nil, &ValidationError{Key: key, Reason: err.Error(), Value: value}
	}
	normalized := Normalize(kind, value)
	if err := typ.Validate(normalized); err != nil {
		return nil, &ValidationError{Key: key, Reason: err.Error(), Value: value}
	}
	return normalized, nil
}

// ValidateVariables checks every variable of the store and returns a copy
// with normalised values. All failures are reported together.
func ValidateVariables(vars map[string]domain.Variable) (map[string]domain.Variable, error) {
	out := make(map[string]domain.Variable, len(vars))
	var errs []error

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := vars[key]
		value, err := ValidateValue(key, v.Kind, v.Options, v.Value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		initial, err := ValidateValue(key, v.Kind, v.Options, v.InitialValue)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nv := v.Clone()
		nv.Key = key
		nv.Value = value
		nv.InitialValue = initial
		nv.PreviousValue = Normalize(v.Kind, v.PreviousValue)
		if nv.Source == "" {
			nv.Source = domain.SourceInitial
		}
		out[key] = nv
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}
