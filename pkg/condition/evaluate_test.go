package condition_test

import (
	"testing"

	"github.com/aretw0/storyflow/pkg/condition"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func store() map[string]domain.Variable {
	return map[string]domain.Variable{
		"mc.health":  domain.NewVariable("mc.health", domain.KindNumber, 80.0),
		"mc.has_key": domain.NewVariable("mc.has_key", domain.KindBoolean, false),
		"mc.name":    domain.NewVariable("mc.name", domain.KindText, "Aria Vale"),
		"mc.class":   domain.NewVariable("mc.class", domain.KindSelect, "rogue"),
		"mc.traits":  domain.NewVariable("mc.traits", domain.KindMultiSelect, []string{"brave", "curious"}),
		"world.date": domain.NewVariable("world.date", domain.KindDate, "2024-06-15"),
		"mc.title":   domain.NewVariable("mc.title", domain.KindText, nil),
	}
}

func TestEvaluate_BranchScenario(t *testing.T) {
	cond := domain.Condition{
		Logic: domain.LogicAll,
		Rules: []domain.Rule{
			{ID: "r1", Variable: "mc.health", Operator: condition.OpGreaterThan, Value: "50"},
			{ID: "r2", Variable: "mc.has_key", Operator: condition.OpIsTrue},
		},
	}

	ok, details := condition.Evaluate(cond, store())
	assert.False(t, ok)
	require.Len(t, details, 2)

	assert.Equal(t, "r1", details[0].RuleID)
	assert.True(t, details[0].Passed)
	assert.Equal(t, 80.0, details[0].Actual)

	assert.Equal(t, "r2", details[1].RuleID)
	assert.False(t, details[1].Passed)
	assert.Equal(t, false, details[1].Actual)
}

func TestEvaluate_Logic(t *testing.T) {
	pass := domain.Rule{ID: "p", Variable: "mc.health", Operator: condition.OpEquals, Value: 80}
	fail := domain.Rule{ID: "f", Variable: "mc.health", Operator: condition.OpLessThan, Value: 10}

	tests := []struct {
		name  string
		logic domain.Logic
		rules []domain.Rule
		want  bool
	}{
		{"all empty", domain.LogicAll, nil, true},
		{"any empty", domain.LogicAny, nil, true},
		{"all passing", domain.LogicAll, []domain.Rule{pass, pass}, true},
		{"all with one failure", domain.LogicAll, []domain.Rule{pass, fail}, false},
		{"any with one pass", domain.LogicAny, []domain.Rule{fail, pass}, true},
		{"any all failing", domain.LogicAny, []domain.Rule{fail, fail}, false},
		{"missing logic defaults to all", "", []domain.Rule{pass, fail}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, details := condition.Evaluate(domain.Condition{Logic: tt.logic, Rules: tt.rules}, store())
			assert.Equal(t, tt.want, got)
			assert.Len(t, details, len(tt.rules))

			// The outcome must always agree with the per-rule detail.
			passed := 0
			for _, d := range details {
				if d.Passed {
					passed++
				}
			}
			if tt.logic == domain.LogicAny {
				assert.Equal(t, len(details) == 0 || passed > 0, got)
			} else {
				assert.Equal(t, passed == len(details), got)
			}
		})
	}
}

func TestEvaluateRule_Operators(t *testing.T) {
	tests := []struct {
		variable string
		op       string
		value    any
		want     bool
	}{
		{"mc.health", condition.OpEquals, "80", true},
		{"mc.health", condition.OpNotEquals, 80.0, false},
		{"mc.health", condition.OpGreaterThanOrEqual, 80, true},
		{"mc.health", condition.OpLessThanOrEqual, "79.5", false},
		{"mc.health", condition.OpLessThan, 100, true},
		{"mc.has_key", condition.OpIsFalse, nil, true},
		{"mc.has_key", condition.OpIsNil, nil, false},
		{"mc.name", condition.OpEquals, "Aria Vale", true},
		{"mc.name", condition.OpContains, "Val", true},
		{"mc.name", condition.OpStartsWith, "Aria", true},
		{"mc.name", condition.OpEndsWith, "Aria", false},
		{"mc.name", condition.OpIsEmpty, nil, false},
		{"mc.title", condition.OpIsEmpty, nil, true},
		{"mc.class", condition.OpEquals, "rogue", true},
		{"mc.class", condition.OpNotEquals, "mage", true},
		{"mc.class", condition.OpIsNil, nil, false},
		{"mc.traits", condition.OpContains, "brave", true},
		{"mc.traits", condition.OpNotContains, "brave", false},
		{"mc.traits", condition.OpIsEmpty, nil, false},
		{"world.date", condition.OpEquals, "2024-06-15", true},
		{"world.date", condition.OpBefore, "2024-12-01", true},
		{"world.date", condition.OpAfter, "2025-01-01", false},
	}

	vars := store()
	for _, tt := range tests {
		r := condition.EvaluateRule(domain.Rule{ID: "r", Variable: tt.variable, Operator: tt.op, Value: tt.value}, vars)
		assert.Equal(t, tt.want, r.Passed, "%s %s %v: %+v", tt.variable, tt.op, tt.value, r)
	}
}

func TestEvaluateRule_Absent(t *testing.T) {
	vars := store()

	r := condition.EvaluateRule(domain.Rule{ID: "r", Variable: "ghost.hp", Operator: condition.OpGreaterThan, Value: 1}, vars)
	assert.False(t, r.Passed)
	assert.True(t, r.Missing)
	assert.Nil(t, r.Actual)

	r = condition.EvaluateRule(domain.Rule{ID: "r", Variable: "ghost.flag", Operator: condition.OpIsNil}, vars)
	assert.True(t, r.Passed, "absent boolean is nil")

	r = condition.EvaluateRule(domain.Rule{ID: "r", Variable: "ghost.hp", Operator: condition.OpNotEquals, Value: 3}, vars)
	assert.True(t, r.Passed, "nil differs from any number")
}

func TestEvaluateRule_Invalid(t *testing.T) {
	vars := store()

	r := condition.EvaluateRule(domain.Rule{ID: "r", Variable: "mc.health", Operator: condition.OpStartsWith, Value: "8"}, vars)
	assert.False(t, r.Passed)
	assert.Contains(t, r.Reason, "not supported")

	r = condition.EvaluateRule(domain.Rule{ID: "r", Operator: condition.OpEquals}, vars)
	assert.False(t, r.Passed)
	assert.Equal(t, "incomplete rule", r.Reason)

	r = condition.EvaluateRule(domain.Rule{ID: "r", Variable: "mc.health", Operator: condition.OpEquals, Value: "lots"}, vars)
	assert.False(t, r.Passed)
	assert.Contains(t, r.Reason, "not a number")

	r = condition.EvaluateRule(domain.Rule{ID: "r", Variable: "ghost.x", Operator: "teleport"}, vars)
	assert.False(t, r.Passed)
	assert.Contains(t, r.Reason, "unknown operator")
}

func TestEvaluate_DoesNotMutate(t *testing.T) {
	vars := store()
	cond := domain.Condition{Rules: []domain.Rule{{ID: "r", Variable: "mc.traits", Operator: condition.OpContains, Value: "brave"}}}
	_, details := condition.Evaluate(cond, vars)
	details[0].Actual.([]string)[0] = "changed"
	assert.Equal(t, []string{"brave", "curious"}, vars["mc.traits"].Value)
}

func TestDescribe(t *testing.T) {
	r := domain.RuleResult{Variable: "mc.health", Operator: "greater_than", Expected: "50", Actual: 80.0, Passed: true}
	assert.Equal(t, "mc.health greater_than 50: passed (actual 80)", condition.Describe(r))

	r = domain.RuleResult{Variable: "ghost.x", Operator: "is_true", Missing: true}
	assert.Equal(t, "ghost.x is_true: failed (actual absent)", condition.Describe(r))
}
