package condition

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/storyflow/pkg/domain"
)

const dateLayout = "2006-01-02"

// Evaluate checks cond against vars. It returns the combined outcome and the
// detail of every rule, in declaration order. An empty rule list is true.
func Evaluate(cond domain.Condition, vars map[string]domain.Variable) (bool, []domain.RuleResult) {
	if len(cond.Rules) == 0 {
		return true, nil
	}

	results := make([]domain.RuleResult, 0, len(cond.Rules))
	passed := 0
	for _, rule := range cond.Rules {
		r := EvaluateRule(rule, vars)
		if r.Passed {
			passed++
		}
		results = append(results, r)
	}

	if cond.Logic == domain.LogicAny {
		return passed > 0, results
	}
	return passed == len(results), results
}

// EvaluateRule checks a single rule. It never fails: problems are reported
// through RuleResult.Reason and a false outcome.
func EvaluateRule(rule domain.Rule, vars map[string]domain.Variable) domain.RuleResult {
	res := domain.RuleResult{
		RuleID:   rule.ID,
		Variable: rule.Variable,
		Operator: rule.Operator,
		Expected: rule.Value,
	}

	if rule.Variable == "" || rule.Operator == "" {
		res.Reason = "incomplete rule"
		return res
	}

	v, ok := vars[rule.Variable]
	var kind domain.Kind
	if ok {
		kind = v.Kind
		res.Actual = domain.CloneValue(v.Value)
	} else {
		res.Missing = true
		kind, ok = KindForOperator(rule.Operator)
		if !ok {
			res.Reason = fmt.Sprintf("unknown operator %q", rule.Operator)
			return res
		}
	}

	if !Supports(kind, rule.Operator) {
		res.Reason = fmt.Sprintf("operator %q is not supported for %s variables", rule.Operator, kind)
		return res
	}

	passed, reason := compare(kind, rule.Operator, res.Actual, rule.Value)
	res.Passed = passed
	res.Reason = reason
	return res
}

func compare(kind domain.Kind, op string, actual, expected any) (bool, string) {
	switch kind {
	case domain.KindNumber:
		return compareNumber(op, actual, expected)
	case domain.KindBoolean:
		return compareBoolean(op, actual)
	case domain.KindText:
		return compareText(op, actual, expected)
	case domain.KindSelect:
		return compareSelect(op, actual, expected)
	case domain.KindMultiSelect:
		return compareMultiSelect(op, actual, expected)
	case domain.KindDate:
		return compareDate(op, actual, expected)
	}
	return false, fmt.Sprintf("unsupported kind %q", kind)
}

func compareNumber(op string, actual, expected any) (bool, string) {
	want, ok := ToNumber(expected)
	if !ok {
		return false, fmt.Sprintf("literal %v is not a number", expected)
	}
	got, ok := ToNumber(actual)
	if !ok {
		// nil equals nothing, so only not_equals holds.
		return op == OpNotEquals, ""
	}
	switch op {
	case OpEquals:
		return got == want, ""
	case OpNotEquals:
		return got != want, ""
	case OpGreaterThan:
		return got > want, ""
	case OpLessThan:
		return got < want, ""
	case OpGreaterThanOrEqual:
		return got >= want, ""
	case OpLessThanOrEqual:
		return got <= want, ""
	}
	return false, ""
}

func compareBoolean(op string, actual any) (bool, string) {
	b, isBool := actual.(bool)
	switch op {
	case OpIsTrue:
		return isBool && b, ""
	case OpIsFalse:
		return isBool && !b, ""
	case OpIsNil:
		return actual == nil, ""
	}
	return false, ""
}

func compareText(op string, actual, expected any) (bool, string) {
	got, isString := actual.(string)
	want := literalString(expected)
	switch op {
	case OpEquals:
		return isString && got == want, ""
	case OpContains:
		return isString && strings.Contains(got, want), ""
	case OpStartsWith:
		return isString && strings.HasPrefix(got, want), ""
	case OpEndsWith:
		return isString && strings.HasSuffix(got, want), ""
	case OpIsEmpty:
		return !isString || got == "", ""
	}
	return false, ""
}

func compareSelect(op string, actual, expected any) (bool, string) {
	got, isString := actual.(string)
	want := literalString(expected)
	switch op {
	case OpEquals:
		return isString && got == want, ""
	case OpNotEquals:
		return !isString || got != want, ""
	case OpIsNil:
		return !isString || got == "", ""
	}
	return false, ""
}

func compareMultiSelect(op string, actual, expected any) (bool, string) {
	list := toStrings(actual)
	want := literalString(expected)
	switch op {
	case OpContains:
		return slices.Contains(list, want), ""
	case OpNotContains:
		return !slices.Contains(list, want), ""
	case OpIsEmpty:
		return len(list) == 0, ""
	}
	return false, ""
}

func compareDate(op string, actual, expected any) (bool, string) {
	got, isString := actual.(string)
	if !isString || got == "" {
		return false, ""
	}
	want := literalString(expected)
	cmp := compareDates(got, want)
	switch op {
	case OpEquals:
		return cmp == 0, ""
	case OpBefore:
		return cmp < 0, ""
	case OpAfter:
		return cmp > 0, ""
	}
	return false, ""
}

// compareDates orders two dates, falling back to string order when either
// side is not an ISO date.
func compareDates(a, b string) int {
	ta, errA := time.Parse(dateLayout, a)
	tb, errB := time.Parse(dateLayout, b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return ta.Compare(tb)
}

// ToNumber converts numeric values and numeric strings to float64.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func literalString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, literalString(item))
		}
		return out
	}
	return nil
}
