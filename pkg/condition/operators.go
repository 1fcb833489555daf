package condition

import "github.com/aretw0/storyflow/pkg/domain"

// Operator names.
const (
	OpEquals             = "equals"
	OpNotEquals          = "not_equals"
	OpGreaterThan        = "greater_than"
	OpLessThan           = "less_than"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpLessThanOrEqual    = "less_than_or_equal"
	OpIsTrue             = "is_true"
	OpIsFalse            = "is_false"
	OpIsNil              = "is_nil"
	OpContains           = "contains"
	OpNotContains        = "not_contains"
	OpStartsWith         = "starts_with"
	OpEndsWith           = "ends_with"
	OpIsEmpty            = "is_empty"
	OpBefore             = "before"
	OpAfter              = "after"
)

// kindOrder is the lookup order used to infer a kind from an operator when the
// variable is absent from the store.
var kindOrder = []domain.Kind{
	domain.KindNumber,
	domain.KindBoolean,
	domain.KindText,
	domain.KindSelect,
	domain.KindMultiSelect,
	domain.KindDate,
}

var families = map[domain.Kind][]string{
	domain.KindNumber:      {OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual},
	domain.KindBoolean:     {OpIsTrue, OpIsFalse, OpIsNil},
	domain.KindText:        {OpEquals, OpContains, OpStartsWith, OpEndsWith, OpIsEmpty},
	domain.KindSelect:      {OpEquals, OpNotEquals, OpIsNil},
	domain.KindMultiSelect: {OpContains, OpNotContains, OpIsEmpty},
	domain.KindDate:        {OpEquals, OpBefore, OpAfter},
}

// Operators returns the operators supported by kind.
func Operators(kind domain.Kind) []string {
	return append([]string(nil), families[kind]...)
}

// Supports reports whether op belongs to the operator family of kind.
func Supports(kind domain.Kind, op string) bool {
	for _, candidate := range families[kind] {
		if candidate == op {
			return true
		}
	}
	return false
}

// KindForOperator returns the first kind, in declaration order, whose family
// contains op.
func KindForOperator(op string) (domain.Kind, bool) {
	for _, kind := range kindOrder {
		if Supports(kind, op) {
			return kind, true
		}
	}
	return "", false
}
