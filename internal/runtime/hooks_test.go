package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/storyflow/internal/runtime"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var entered []string
	var steps []domain.ResultKind
	var changes []*domain.VariableEvent

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.GraphID+"/"+e.NodeID)
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			steps = append(steps, e.Result)
		},
		OnVariableChange: func(ctx context.Context, e *domain.VariableEvent) {
			changes = append(changes, e)
		},
	}

	e := runtime.NewEngine(runtime.WithLifecycleHooks(hooks))
	graphs := shopGraphs()
	state, err := e.Init(context.Background(), graphs["main"], "", heroVars())
	require.NoError(t, err)
	state.SessionID = "s1"

	_, _ = runUntilHalt(t, e, graphs, state)

	assert.Equal(t, []string{
		"main/start", "main/call",
		"shop/shop_start", "shop/check", "shop/pay", "shop/bought",
		"main/happy",
	}, entered)

	require.Len(t, steps, 8)
	assert.Equal(t, domain.ResultEnteredGraph, steps[1])
	assert.Equal(t, domain.ResultReturnedToCaller, steps[6])
	assert.Equal(t, domain.ResultFinished, steps[7])

	require.Len(t, changes, 1)
	assert.Equal(t, "s1", changes[0].SessionID)
	assert.Equal(t, "pay", changes[0].NodeID)
	assert.Equal(t, "mc.gold", changes[0].Variable)
	assert.Equal(t, 5.0, changes[0].OldValue)
	assert.Equal(t, 2.0, changes[0].NewValue)
}
