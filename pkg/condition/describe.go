package condition

import (
	"fmt"
	"strings"

	"github.com/aretw0/storyflow/pkg/domain"
)

// Describe renders a rule result as one console line, e.g.
// "mc.health greater_than 50: passed (actual 80)".
func Describe(r domain.RuleResult) string {
	var sb strings.Builder
	sb.WriteString(r.Variable)
	sb.WriteString(" ")
	sb.WriteString(r.Operator)
	if r.Expected != nil {
		fmt.Fprintf(&sb, " %v", r.Expected)
	}
	if r.Passed {
		sb.WriteString(": passed")
	} else {
		sb.WriteString(": failed")
	}
	if r.Missing {
		sb.WriteString(" (actual absent)")
	} else {
		fmt.Fprintf(&sb, " (actual %v)", formatValue(r.Actual))
	}
	if r.Reason != "" {
		sb.WriteString(" - ")
		sb.WriteString(r.Reason)
	}
	return sb.String()
}

// Summarize joins the descriptions of the rules matching passed.
func Summarize(results []domain.RuleResult, passed bool) string {
	var parts []string
	for _, r := range results {
		if r.Passed == passed {
			parts = append(parts, Describe(r))
		}
	}
	return strings.Join(parts, "; ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
