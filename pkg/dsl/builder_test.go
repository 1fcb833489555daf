package dsl_test

import (
	"testing"

	"github.com/aretw0/storyflow/internal/compiler"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := dsl.New("intro").Name("Intro")

	b.Add("start").Entry().Go("greet")
	b.Add("greet").
		Dialogue("Halt!").
		Speaker("guard").
		Response("friend", "A friend.").
		ResponseIf("bribe", "Take this.", dsl.All(dsl.Rule("mc.gold", "greater_than", 10))).
		Pin("friend", "end").
		Pin("bribe", "end")
	b.Add("end").Exit(domain.ExitTerminal, "")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "intro", g.ID)
	assert.Equal(t, "Intro", g.Name)
	assert.Len(t, g.Nodes, 3)
	assert.Nil(t, g.Nodes["start"].Data)

	entry, ok := g.EntryNode()
	require.True(t, ok)
	assert.Equal(t, "start", entry.ID)

	assert.Equal(t, []domain.Connection{
		{Source: "start", SourcePin: "output", Target: "greet"},
		{Source: "greet", SourcePin: "friend", Target: "end"},
		{Source: "greet", SourcePin: "bribe", Target: "end"},
	}, g.Connections)

	data, err := compiler.NewParser().Dialogue(g.Nodes["greet"])
	require.NoError(t, err)
	require.Len(t, data.Responses, 2)
	require.NotNil(t, data.Responses[1].Condition)
	assert.Equal(t, "r1", data.Responses[1].Condition.Rules[0].ID)
}

func TestBuilder_Instruction(t *testing.T) {
	b := dsl.New("g")
	b.Add("hit").Instruction(
		dsl.Assign("mc.health", "subtract", 20),
		dsl.AssignRef("mc.health", "add", "mc.bonus"),
	)

	g, err := b.Build()
	require.NoError(t, err)

	data, err := compiler.NewParser().Instruction(g.Nodes["hit"])
	require.NoError(t, err)
	require.Len(t, data.Assignments, 2)
	assert.Equal(t, "hit.1", data.Assignments[0].ID)
	assert.Equal(t, domain.ValueVariableRef, data.Assignments[1].ValueType)
	assert.Equal(t, "mc.bonus", data.Assignments[1].ValueVariable)
}

func TestBuilder_Invalid(t *testing.T) {
	b := dsl.New("broken")
	b.Add("untyped")
	b.Add("start").Entry().Go("ghost")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "untyped": invalid type`)
	assert.Contains(t, err.Error(), `unknown target "ghost"`)
}
