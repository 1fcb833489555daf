package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/storyflow/internal/presentation/graph"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/dsl"
	"github.com/stretchr/testify/assert"
)

func sample() *domain.Graph {
	b := dsl.New("main")
	b.Add("start").Entry().Go("ask")
	b.Add("ask").Dialogue("Who goes there?").Speaker("Guard").
		Response("friend", "A friend.").
		Pin("friend", "check")
	b.Add("check").Condition(dsl.All(dsl.Rule("mc.health", "greater_than", 0))).
		Pin(domain.PinTrue, "loop").
		Pin(domain.PinFalse, "call")
	b.Add("loop").Hub("again").Go("back")
	b.Add("back").Jump("again")
	b.Add("call").Subflow("shop").Go("end")
	b.Add("end").Exit(domain.ExitTerminal, "")
	b.Add("my-node.v2").Hub("orphan")
	return b.MustBuild()
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	out := graph.GenerateMermaid(sample(), nil)

	for _, want := range []string{
		"graph TD\n",
		`start(("start"))`,
		`ask[/"ask <br/> Guard"/]`,
		`check{"check"}`,
		`loop(["loop <br/> hub again"])`,
		`back["back <br/> jump again"]`,
		`call[["call <br/> call shop"]]`,
		`end((("end")))`,
		"my_node_v2",
		"start --> ask",
		`ask -- "friend" --> check`,
		`check -- "true" --> loop`,
		"back -.-> loop",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Overlay Styles")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	state := domain.NewState("s1", "main", "start", nil)
	state.ExecutionPath = []string{"start", "ask", "check", "ask", "elsewhere"}
	state.CurrentNodeID = "check"
	state.ErroredNodes = []string{"back"}
	state.Breakpoints = map[string]*domain.Condition{"call": nil}

	out := graph.GenerateMermaid(sample(), graph.OverlayFromState(state))

	assert.Contains(t, out, "class start visited;")
	assert.Equal(t, 1, strings.Count(out, "class ask visited;"))
	assert.NotContains(t, out, "elsewhere")
	assert.Contains(t, out, "class back errored;")
	assert.Contains(t, out, "class call breakpoint;")
	assert.Contains(t, out, "class check current;")
}

func TestGenerateMermaid_Nil(t *testing.T) {
	assert.Equal(t, "graph TD\n", graph.GenerateMermaid(nil, nil))
	assert.Nil(t, graph.OverlayFromState(nil))
}
