package runtime

import (
	"context"
	"strings"

	"github.com/aretw0/storyflow/internal/compiler"
	"github.com/aretw0/storyflow/pkg/condition"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/instruction"
)

// evaluate dispatches the current node to the evaluator of its type.
func (e *Engine) evaluate(ctx context.Context, state *domain.State, graph *domain.Graph) domain.Result {
	node, ok := graph.Node(state.CurrentNodeID)
	if !ok {
		return e.fail(state, state.CurrentNodeID, "Node %q not found in flow %q", state.CurrentNodeID, graph.ID)
	}

	e.emitNodeEnter(ctx, state, node)
	e.logger.Debug("evaluating node", "session_id", state.SessionID, "graph_id", graph.ID, "node_id", node.ID, "type", node.Type)

	switch node.Type {
	case domain.NodeTypeEntry:
		state.Log(domain.SeverityInfo, node.ID, "Flow started")
		return e.follow(state, graph, node.ID, domain.PinOutput)
	case domain.NodeTypeDialogue:
		return e.evalDialogue(ctx, state, graph, node)
	case domain.NodeTypeCondition:
		return e.evalCondition(state, graph, node)
	case domain.NodeTypeSwitch:
		return e.evalSwitch(state, graph, node)
	case domain.NodeTypeInstruction:
		return e.evalInstruction(ctx, state, graph, node)
	case domain.NodeTypeHub:
		return e.follow(state, graph, node.ID, domain.PinOutput)
	case domain.NodeTypeJump:
		return e.evalJump(state, graph, node)
	case domain.NodeTypeScene:
		return e.evalScene(state, graph, node)
	case domain.NodeTypeSubflow:
		return e.evalSubflow(state, graph, node)
	case domain.NodeTypeExit:
		return e.evalExit(state, graph, node)
	default:
		return e.fail(state, node.ID, "Unknown node type %q", node.Type)
	}
}

// unparseable reports a payload that could not be decoded and moves on
// through the output pin when one is connected.
func (e *Engine) unparseable(state *domain.State, graph *domain.Graph, node domain.Node, err error) domain.Result {
	e.logger.Warn("unparseable node payload", "graph_id", graph.ID, "node_id", node.ID, "err", err)
	if hasPin(graph, node.ID, domain.PinOutput) {
		state.Log(domain.SeverityError, node.ID, "%v", err)
		state.MarkErrored(node.ID)
		return e.follow(state, graph, node.ID, domain.PinOutput)
	}
	return e.fail(state, node.ID, "%v", err)
}

func (e *Engine) evalDialogue(ctx context.Context, state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Dialogue(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}

	if data.InputCondition != nil {
		passed, rules := e.evaluateCondition(state, node.ID, *data.InputCondition)
		if !passed {
			if state.ViewMode == domain.ViewPlayer {
				state.LogRules(domain.SeverityInfo, node.ID, rules, "Input condition failed; dialogue skipped")
				return e.follow(state, graph, node.ID, domain.PinOutput)
			}
			state.MarkErrored(node.ID)
			state.LogRules(domain.SeverityWarning, node.ID, rules, "Input condition failed; continuing for analysis")
		}
	}

	state.Log(domain.SeverityInfo, node.ID, "%s", dialogueLine(data))
	e.applyAssignments(ctx, state, node.ID, data.OutputInstruction)

	if len(data.Responses) == 0 {
		return e.follow(state, graph, node.ID, domain.PinOutput)
	}

	var candidates []domain.ResponseCandidate
	for _, r := range data.Responses {
		c := domain.ResponseCandidate{ID: r.ID, Text: r.Text, Valid: true}
		if r.Condition != nil {
			c.Valid, c.Rules = e.evaluateCondition(state, node.ID, *r.Condition)
		}
		if state.ViewMode == domain.ViewPlayer && !c.Valid {
			continue
		}
		candidates = append(candidates, c)
	}

	if state.ViewMode == domain.ViewPlayer {
		switch len(candidates) {
		case 0:
			state.Log(domain.SeverityWarning, node.ID, "No valid responses")
			if hasPin(graph, node.ID, domain.PinOutput) {
				return e.follow(state, graph, node.ID, domain.PinOutput)
			}
			return e.finish(state, node.ID, "Flow finished")
		case 1:
			response, _ := findResponse(data, candidates[0].ID)
			state.Log(domain.SeverityInfo, node.ID, "Auto-selected the only valid response %q", response.ID)
			return e.choose(ctx, state, graph, node, response)
		}
	}

	state.Status = domain.StatusWaitingForChoice
	state.PendingChoices = candidates
	return domain.Result{
		Kind:       domain.ResultWaitingForChoice,
		NodeID:     node.ID,
		GraphID:    graph.ID,
		Candidates: append([]domain.ResponseCandidate(nil), candidates...),
	}
}

// choose applies a response and follows its pin.
func (e *Engine) choose(ctx context.Context, state *domain.State, graph *domain.Graph, node domain.Node, r compiler.Response) domain.Result {
	text := r.Text
	if text == "" {
		text = r.ID
	}
	state.Log(domain.SeverityInfo, node.ID, "> %s", text)
	e.applyAssignments(ctx, state, node.ID, r.Instruction)
	return e.follow(state, graph, node.ID, r.ID)
}

func (e *Engine) evalCondition(state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Condition(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}

	passed, rules := e.evaluateCondition(state, node.ID, data.Condition)
	if summary := condition.Summarize(rules, passed); summary != "" {
		state.LogRules(domain.SeverityInfo, node.ID, rules, "Condition is %t: %s", passed, summary)
	} else {
		state.LogRules(domain.SeverityInfo, node.ID, rules, "Condition is %t", passed)
	}

	taken, other := domain.PinTrue, domain.PinFalse
	if !passed {
		taken, other = other, taken
	}
	if !hasPin(graph, node.ID, taken) && hasPin(graph, node.ID, domain.PinDefault) {
		taken = domain.PinDefault
	}

	res := e.follow(state, graph, node.ID, taken)
	if res.Kind == domain.ResultAdvanced && state.ViewMode == domain.ViewAnalysis {
		res.Flagged = graph.Outgoing(node.ID, other)
	}
	return res
}

func (e *Engine) evalSwitch(state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Switch(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}

	pin := domain.PinDefault
	for _, c := range data.Cases {
		passed, rules := e.evaluateCondition(state, node.ID, c.Condition)
		if passed {
			state.LogRules(domain.SeverityInfo, node.ID, rules, "Case %q matched", caseName(c))
			pin = c.ID
			break
		}
		state.LogRules(domain.SeverityInfo, node.ID, rules, "Case %q failed", caseName(c))
	}
	if pin == domain.PinDefault {
		state.Log(domain.SeverityInfo, node.ID, "No case matched; following default")
	}

	res := e.follow(state, graph, node.ID, pin)
	if res.Kind == domain.ResultAdvanced && state.ViewMode == domain.ViewAnalysis {
		for _, c := range data.Cases {
			if c.ID != pin {
				res.Flagged = append(res.Flagged, graph.Outgoing(node.ID, c.ID)...)
			}
		}
		if pin != domain.PinDefault {
			res.Flagged = append(res.Flagged, graph.Outgoing(node.ID, domain.PinDefault)...)
		}
	}
	return res
}

func (e *Engine) evalInstruction(ctx context.Context, state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Instruction(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}
	e.applyAssignments(ctx, state, node.ID, data.Assignments)
	return e.follow(state, graph, node.ID, domain.PinOutput)
}

// applyAssignments runs a batch against the store and records each applied
// change in the history with nodeID as its cause.
func (e *Engine) applyAssignments(ctx context.Context, state *domain.State, nodeID string, assignments []domain.Assignment) {
	if len(assignments) == 0 {
		return
	}

	out := instruction.Execute(assignments, state.Variables)
	state.Variables = out.Variables

	for _, eff := range out.Effects {
		if ae := eff.Error; ae != nil {
			state.Log(domain.SeverityError, nodeID, "Assignment failed: %s", ae.Error())
			state.MarkErrored(nodeID)
			continue
		}
		ch := eff.Change
		state.History = append(state.History, domain.HistoryEntry{
			Step:     state.StepCount,
			Variable: ch.Variable,
			OldValue: ch.OldValue,
			NewValue: ch.NewValue,
			NodeID:   nodeID,
			GraphID:  state.GraphID,
			Source:   domain.SourceInstruction,
		})
		state.Log(domain.SeverityInfo, nodeID, "%s %s: %v -> %v", ch.Variable, ch.Operator, ch.OldValue, ch.NewValue)
		e.emitVariableChange(ctx, state, nodeID, ch.Variable, ch.OldValue, ch.NewValue)
	}
}

func (e *Engine) evalJump(state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Jump(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}
	if data.TargetHubID == "" {
		return e.fail(state, node.ID, "Jump has no target hub")
	}

	for _, id := range graph.NodeIDs() {
		candidate := graph.Nodes[id]
		if candidate.Type != domain.NodeTypeHub {
			continue
		}
		hub, err := e.parser.Hub(candidate)
		if err != nil || hub.HubID != data.TargetHubID {
			continue
		}
		state.Log(domain.SeverityInfo, node.ID, "Jumping to hub %q", data.TargetHubID)
		return e.moveTo(state, graph, node.ID, candidate.ID)
	}
	return e.fail(state, node.ID, "Jump target hub %q not found", data.TargetHubID)
}

func (e *Engine) evalScene(state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Scene(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}
	state.Log(domain.SeverityInfo, node.ID, "%s", SceneHeading(data))
	if data.Description != "" {
		state.Log(domain.SeverityInfo, node.ID, "%s", data.Description)
	}
	return e.follow(state, graph, node.ID, domain.PinOutput)
}

func (e *Engine) evalSubflow(state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Subflow(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}
	if data.ReferencedFlowID == "" {
		return e.fail(state, node.ID, "Subflow has no referenced flow")
	}
	return e.enterGraph(state, graph, node, data.ReferencedFlowID, true)
}

func (e *Engine) evalExit(state *domain.State, graph *domain.Graph, node domain.Node) domain.Result {
	data, err := e.parser.Exit(node)
	if err != nil {
		return e.unparseable(state, graph, node, err)
	}

	switch data.ExitMode {
	case domain.ExitFlowReference:
		if data.ReferencedFlowID == "" {
			return e.fail(state, node.ID, "Exit has no referenced flow")
		}
		return e.enterGraph(state, graph, node, data.ReferencedFlowID, false)
	case domain.ExitCallerReturn:
		if len(state.CallStack) == 0 {
			return e.finish(state, node.ID, "Flow finished (no caller to return to)")
		}
		return e.returnToCaller(state, node.ID)
	default:
		return e.finish(state, node.ID, "Flow finished")
	}
}

// evaluateCondition evaluates cond against the store and warns about every
// rule that referenced an absent variable.
func (e *Engine) evaluateCondition(state *domain.State, nodeID string, cond domain.Condition) (bool, []domain.RuleResult) {
	passed, rules := condition.Evaluate(cond, state.Variables)
	for _, r := range rules {
		if r.Missing {
			state.Log(domain.SeverityWarning, nodeID, "Variable %q is not defined; evaluated as nil", r.Variable)
		}
	}
	return passed, rules
}

func findResponse(data compiler.DialogueData, id string) (compiler.Response, bool) {
	for _, r := range data.Responses {
		if r.ID == id {
			return r, true
		}
	}
	return compiler.Response{}, false
}

func dialogueLine(data compiler.DialogueData) string {
	var b strings.Builder
	if data.StageDirections != "" {
		b.WriteString("(" + data.StageDirections + ") ")
	}
	if data.Speaker != "" {
		b.WriteString(data.Speaker + ": ")
	}
	text := data.Text
	if text == "" {
		text = data.MenuText
	}
	b.WriteString(text)
	return strings.TrimSpace(b.String())
}

func caseName(c compiler.Case) string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// SceneHeading formats a scene in screenplay style, e.g.
// "INT. TAVERN - BACK ROOM - NIGHT".
func SceneHeading(s compiler.SceneData) string {
	parts := []string{}
	for _, p := range []string{s.Location, s.SubLocation, s.TimeOfDay} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, strings.ToUpper(p))
		}
	}
	heading := strings.Join(parts, " - ")
	if prefix := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s.IntExt)), "."); prefix != "" {
		heading = prefix + ". " + heading
	}
	if heading == "" {
		return "SCENE"
	}
	return heading
}
