package runtime_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/storyflow/internal/runtime"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shopGraphs() graphSet {
	main := dsl.New("main")
	main.Add("start").Entry().Go("call")
	main.Add("call").Subflow("shop").
		Pin("bought", "happy").
		Go("after")
	main.Add("happy").Exit(domain.ExitTerminal, "")
	main.Add("after").Exit(domain.ExitTerminal, "")

	shop := dsl.New("shop")
	shop.Add("shop_start").Entry().Go("check")
	shop.Add("check").Condition(dsl.All(dsl.Rule("mc.gold", "greater_than", 3))).
		Pin(domain.PinTrue, "pay").
		Pin(domain.PinFalse, "leave")
	shop.Add("pay").Instruction(dsl.Assign("mc.gold", "subtract", 3)).Go("bought")
	shop.Add("bought").Exit(domain.ExitCallerReturn, "")
	shop.Add("leave").Exit(domain.ExitCallerReturn, "")

	return graphSet{"main": main.MustBuild(), "shop": shop.MustBuild()}
}

func TestEngine_Subflow_CallAndReturn(t *testing.T) {
	e := runtime.NewEngine()
	graphs := shopGraphs()

	state, err := e.Init(context.Background(), graphs["main"], "", heroVars())
	require.NoError(t, err)

	res, state := stepN(t, e, graphs, state, 2)
	require.Equal(t, domain.ResultEnteredGraph, res.Kind)
	assert.Equal(t, "shop", res.GraphID)
	assert.Equal(t, "shop", state.GraphID)
	assert.Empty(t, state.CurrentNodeID)
	require.Len(t, state.CallStack, 1)
	assert.Equal(t, "main", state.CallStack[0].GraphID)
	assert.Equal(t, "call", state.CallStack[0].ReturnNodeID)

	t.Run("The caller graph is rejected while in the callee", func(t *testing.T) {
		_, _, err := e.Step(context.Background(), state, graphs["main"])
		assert.ErrorIs(t, err, domain.ErrGraphMismatch)
	})

	res, state = stepN(t, e, graphs, state, 1)
	assert.Equal(t, domain.ResultAdvanced, res.Kind)
	assert.Equal(t, "shop_start", res.NodeID)

	// entry, check, pay, bought
	res, state = stepN(t, e, graphs, state, 4)
	require.Equal(t, domain.ResultReturnedToCaller, res.Kind)
	assert.Equal(t, "main", res.GraphID)
	assert.Equal(t, "happy", res.NodeID, "return pin named after the exit node")
	assert.Empty(t, state.CallStack)
	assert.Equal(t, []string{"start", "call", "happy"}, state.ExecutionPath)
	assert.Equal(t, 2.0, state.Variables["mc.gold"].Value)

	res, state = stepN(t, e, graphs, state, 1)
	assert.Equal(t, domain.ResultFinished, res.Kind)
	assert.Equal(t, domain.StatusFinished, state.Status)
}

func TestEngine_Subflow_ReturnFallsBackToOutput(t *testing.T) {
	e := runtime.NewEngine()
	graphs := shopGraphs()

	vars := heroVars()
	vars["mc.gold"] = domain.NewVariable("mc.gold", domain.KindNumber, 0)
	state, err := e.Init(context.Background(), graphs["main"], "", vars)
	require.NoError(t, err)

	res, _ := runUntilHalt(t, e, graphs, state)
	assert.Equal(t, domain.ResultFinished, res.Kind)
	assert.Equal(t, "after", res.NodeID)
}

func TestEngine_Subflow_StepBackAcrossGraphs(t *testing.T) {
	e := runtime.NewEngine()
	graphs := shopGraphs()

	state, err := e.Init(context.Background(), graphs["main"], "", heroVars())
	require.NoError(t, err)

	_, inCallee := stepN(t, e, graphs, state, 3)
	require.Equal(t, "shop", inCallee.GraphID)

	back, err := e.StepBack(context.Background(), inCallee)
	require.NoError(t, err)
	back, err = e.StepBack(context.Background(), back)
	require.NoError(t, err)
	assert.Equal(t, "main", back.GraphID)
	assert.Equal(t, "call", back.CurrentNodeID)
	assert.Empty(t, back.CallStack)
}

func TestEngine_Exit_CallerReturnWithEmptyStack(t *testing.T) {
	b := dsl.New("main")
	b.Add("out").Exit(domain.ExitCallerReturn, "")
	g := b.MustBuild()

	e := runtime.NewEngine()
	state, err := e.Init(context.Background(), g, "out", nil)
	require.NoError(t, err)

	res, next, err := e.Step(context.Background(), state, g)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFinished, res.Kind)
	assert.Equal(t, domain.StatusFinished, next.Status)
	assert.False(t, hasEntry(next, domain.SeverityError, ""))
}

func TestEngine_Exit_FlowReference(t *testing.T) {
	act1 := dsl.New("act1")
	act1.Add("start").Entry().Go("next")
	act1.Add("next").Exit(domain.ExitFlowReference, "act2")
	act2 := dsl.New("act2")
	act2.Add("begin").Entry().Go("end")
	act2.Add("end").Exit(domain.ExitTerminal, "")
	graphs := graphSet{"act1": act1.MustBuild(), "act2": act2.MustBuild()}

	e := runtime.NewEngine()
	state, err := e.Init(context.Background(), graphs["act1"], "", nil)
	require.NoError(t, err)

	res, state := stepN(t, e, graphs, state, 2)
	assert.Equal(t, domain.ResultEnteredGraph, res.Kind)
	assert.Equal(t, "act2", res.GraphID)
	assert.Empty(t, state.CallStack, "flow references push no frame")

	res, state = runUntilHalt(t, e, graphs, state)
	assert.Equal(t, domain.ResultFinished, res.Kind)
	assert.Equal(t, []string{"begin", "end"}, state.ExecutionPath)
}

func TestEngine_Subflow_Errors(t *testing.T) {
	t.Run("No target", func(t *testing.T) {
		b := dsl.New("main")
		b.Add("call").Subflow("")
		g := b.MustBuild()

		e := runtime.NewEngine()
		state, err := e.Init(context.Background(), g, "call", nil)
		require.NoError(t, err)
		res, next, err := e.Step(context.Background(), state, g)
		require.NoError(t, err)
		assert.Equal(t, domain.ResultError, res.Kind)
		assert.Equal(t, domain.StatusFinished, next.Status)
	})

	t.Run("Entered graph without entry", func(t *testing.T) {
		main := dsl.New("main")
		main.Add("call").Subflow("empty")
		empty := dsl.New("empty")
		empty.Add("lonely").Hub("x")
		graphs := graphSet{"main": main.MustBuild(), "empty": empty.MustBuild()}

		e := runtime.NewEngine()
		state, err := e.Init(context.Background(), graphs["main"], "call", nil)
		require.NoError(t, err)
		res, state := stepN(t, e, graphs, state, 2)
		assert.Equal(t, domain.ResultError, res.Kind)
		assert.True(t, hasEntry(state, domain.SeverityError, `Flow "empty" has no entry node`))
	})

	t.Run("Call depth limit", func(t *testing.T) {
		b := dsl.New("loop")
		b.Add("start").Entry().Go("again")
		b.Add("again").Subflow("loop")
		graphs := graphSet{"loop": b.MustBuild()}

		e := runtime.NewEngine(runtime.WithMaxCallDepth(3))
		state, err := e.Init(context.Background(), graphs["loop"], "", nil)
		require.NoError(t, err)

		res, state := runUntilHalt(t, e, graphs, state)
		assert.Equal(t, domain.ResultError, res.Kind)
		assert.Equal(t, fmt.Sprintf("Call depth limit of %d exceeded entering flow %q", 3, "loop"), res.Reason)
		assert.Len(t, state.CallStack, 3)
	})
}
