package storyflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/storyflow"
	"github.com/aretw0/storyflow/pkg/adapters/memory"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = `
name: Crossroads
variables:
  mc.gold: {kind: number, value: 3}
graphs:
  - id: road
    nodes:
      - {id: start, type: entry}
      - id: fork
        type: dialogue
        data:
          text: Left or right?
          responses:
            - {id: left, text: Left.}
            - {id: right, text: Right.}
      - {id: market, type: subflow, data: {referenced_flow_id: market}}
      - {id: end, type: exit}
    connections:
      - {source: start, source_pin: output, target: fork}
      - {source: fork, source_pin: left, target: market}
      - {source: fork, source_pin: right, target: end}
      - {source: market, source_pin: output, target: end}
  - id: market
    nodes:
      - {id: enter, type: entry}
      - id: spend
        type: instruction
        data:
          assignments: [{id: a1, variable: mc.gold, operator: subtract, value: 1}]
      - {id: leave, type: exit, data: {exit_mode: caller_return}}
    connections:
      - {source: enter, source_pin: output, target: spend}
      - {source: spend, source_pin: output, target: leave}
`

func writeProject(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crossroads.yaml")
	require.NoError(t, os.WriteFile(path, []byte(project), 0644))
	return path
}

func TestFacade_Integration(t *testing.T) {
	engine, err := storyflow.New(writeProject(t))
	require.NoError(t, err)
	assert.Equal(t, "Crossroads", engine.Name)

	ctx := context.Background()
	state, err := engine.Start(ctx, "s1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "s1", state.SessionID)
	assert.Equal(t, "road", state.GraphID)
	assert.Equal(t, "start", state.CurrentNodeID)
	assert.Equal(t, 3.0, state.Variables["mc.gold"].Value)

	res, state, err := engine.Step(ctx, state)
	require.NoError(t, err)
	res, state, err = engine.Step(ctx, state)
	require.NoError(t, err)
	require.Equal(t, domain.ResultWaitingForChoice, res.Kind)

	res, state, err = engine.ChooseResponse(ctx, state, "left")
	require.NoError(t, err)
	assert.Equal(t, "market", res.NodeID)

	// The facade resolves the callee graph on its own.
	for !state.Terminated() {
		res, state, err = engine.Step(ctx, state)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.ResultFinished, res.Kind)
	assert.Equal(t, 2.0, state.Variables["mc.gold"].Value)
	assert.Equal(t, "road", state.GraphID)

	back, err := engine.StepBack(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "end", back.CurrentNodeID)
	assert.Equal(t, domain.StatusPaused, back.Status)
}

func TestFacade_WithLoader(t *testing.T) {
	b := dsl.New("solo")
	b.Add("start").Entry().Go("loop")
	b.Add("loop").Hub("loop").Go("start")
	loader, err := memory.NewLoader(b.MustBuild())
	require.NoError(t, err)

	engine, err := storyflow.New("", storyflow.WithLoader(loader), storyflow.WithMaxSteps(4))
	require.NoError(t, err)

	ctx := context.Background()
	state, err := engine.Start(ctx, "s1", "", "")
	require.NoError(t, err)
	assert.Equal(t, 4, state.MaxSteps)

	var res domain.Result
	for i := 0; i < 5; i++ {
		res, state, err = engine.Step(ctx, state)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.ResultLimitReached, res.Kind)

	state = engine.ExtendStepLimit(ctx, state)
	res, _, err = engine.Step(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultAdvanced, res.Kind)
}

func TestFacade_Errors(t *testing.T) {
	_, err := storyflow.New("")
	assert.Error(t, err)

	_, err = storyflow.New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	engine, err := storyflow.New(writeProject(t))
	require.NoError(t, err)

	_, err = engine.Start(context.Background(), "s1", "nowhere", "")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	_, _, err = engine.Step(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNilState)
}
