package runtime_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/storyflow/internal/runtime"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/stretchr/testify/require"
)

func heroVars() map[string]domain.Variable {
	return map[string]domain.Variable{
		"mc.health":  domain.NewVariable("mc.health", domain.KindNumber, 80),
		"mc.has_key": domain.NewVariable("mc.has_key", domain.KindBoolean, false),
		"mc.gold":    domain.NewVariable("mc.gold", domain.KindNumber, 5),
	}
}

// graphSet resolves graphs by id, like a host would through a loader.
type graphSet map[string]*domain.Graph

// stepN steps n times, failing the test on contract errors.
func stepN(t *testing.T, e *runtime.Engine, graphs graphSet, state *domain.State, n int) (domain.Result, *domain.State) {
	t.Helper()
	var res domain.Result
	for i := 0; i < n; i++ {
		var err error
		res, state, err = e.Step(context.Background(), state, graphs[state.GraphID])
		require.NoError(t, err)
	}
	return res, state
}

// runUntilHalt steps until a result that stops auto-play.
func runUntilHalt(t *testing.T, e *runtime.Engine, graphs graphSet, state *domain.State) (domain.Result, *domain.State) {
	t.Helper()
	for i := 0; i < 200; i++ {
		res, next, err := e.Step(context.Background(), state, graphs[state.GraphID])
		require.NoError(t, err)
		state = next
		if res.Halts() {
			return res, state
		}
	}
	t.Fatal("flow did not halt")
	return domain.Result{}, nil
}

func lastEntry(s *domain.State) domain.ConsoleEntry {
	if len(s.Console) == 0 {
		return domain.ConsoleEntry{}
	}
	return s.Console[len(s.Console)-1]
}

func hasEntry(s *domain.State, sev domain.Severity, substr string) bool {
	for _, c := range s.Console {
		if c.Severity == sev && strings.Contains(c.Message, substr) {
			return true
		}
	}
	return false
}
