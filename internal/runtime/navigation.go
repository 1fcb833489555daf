package runtime

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/storyflow/pkg/domain"
)

// follow moves the session along pin of nodeID. Without a connection the
// session finishes with an error; with several, the first one wins.
func (e *Engine) follow(state *domain.State, graph *domain.Graph, nodeID, pin string) domain.Result {
	conns := graph.Outgoing(nodeID, pin)
	if len(conns) == 0 {
		return e.fail(state, nodeID, "No outgoing connection from pin %q", pin)
	}
	if len(conns) > 1 {
		state.Log(domain.SeverityWarning, nodeID,
			"Pin %q has %d connections; following the first to %q", pin, len(conns), conns[0].Target)
	}
	return e.moveTo(state, graph, nodeID, conns[0].Target)
}

// moveTo positions the session on target.
func (e *Engine) moveTo(state *domain.State, graph *domain.Graph, fromID, target string) domain.Result {
	if _, ok := graph.Node(target); !ok {
		return e.fail(state, fromID, "Connection target %q not found in flow %q", target, graph.ID)
	}
	state.CurrentNodeID = target
	state.ExecutionPath = append(state.ExecutionPath, target)
	state.Status = domain.StatusPaused
	return domain.Result{Kind: domain.ResultAdvanced, NodeID: target, GraphID: graph.ID}
}

// hasPin reports whether pin of nodeID is connected.
func hasPin(graph *domain.Graph, nodeID, pin string) bool {
	return len(graph.Outgoing(nodeID, pin)) > 0
}

// fail logs an error on nodeID and finishes the session.
func (e *Engine) fail(state *domain.State, nodeID, format string, args ...any) domain.Result {
	reason := fmt.Sprintf(format, args...)
	state.Log(domain.SeverityError, nodeID, "%s", reason)
	if nodeID != "" {
		state.MarkErrored(nodeID)
	}
	state.Status = domain.StatusFinished
	e.logger.Debug("session stopped on error", "session_id", state.SessionID, "graph_id", state.GraphID, "node_id", nodeID, "reason", reason)
	return domain.Result{Kind: domain.ResultError, NodeID: nodeID, GraphID: state.GraphID, Reason: reason}
}

// finish ends the session normally on nodeID.
func (e *Engine) finish(state *domain.State, nodeID, message string) domain.Result {
	state.Log(domain.SeverityInfo, nodeID, "%s", message)
	state.Status = domain.StatusFinished
	return domain.Result{Kind: domain.ResultFinished, NodeID: nodeID, GraphID: state.GraphID}
}

// enterEntry resolves the entry node of a graph the session just entered.
func (e *Engine) enterEntry(ctx context.Context, state *domain.State, graph *domain.Graph) domain.Result {
	entry, ok := graph.EntryNode()
	if !ok {
		return e.fail(state, "", "Flow %q has no entry node", graph.ID)
	}
	state.CurrentNodeID = entry.ID
	state.ExecutionPath = append(state.ExecutionPath, entry.ID)
	state.Status = domain.StatusPaused
	return domain.Result{Kind: domain.ResultAdvanced, NodeID: entry.ID, GraphID: graph.ID}
}

// enterGraph switches the session to targetID. With call set, the current
// graph is pushed as a frame so an exit in caller_return mode resumes on node.
func (e *Engine) enterGraph(state *domain.State, graph *domain.Graph, node domain.Node, targetID string, call bool) domain.Result {
	if call {
		if len(state.CallStack) >= e.maxCallDepth {
			return e.fail(state, node.ID, "Call depth limit of %d exceeded entering flow %q", e.maxCallDepth, targetID)
		}
		state.CallStack = append(state.CallStack, domain.CallFrame{
			GraphID:       graph.ID,
			ReturnNodeID:  node.ID,
			Nodes:         maps.Clone(graph.Nodes),
			Connections:   append([]domain.Connection(nil), graph.Connections...),
			ExecutionPath: append([]string(nil), state.ExecutionPath...),
		})
		state.Log(domain.SeverityInfo, node.ID, "Entering flow %q", targetID)
	} else {
		state.Log(domain.SeverityInfo, node.ID, "Continuing in flow %q", targetID)
	}

	state.GraphID = targetID
	state.CurrentNodeID = ""
	state.ExecutionPath = nil
	state.Status = domain.StatusPaused
	return domain.Result{Kind: domain.ResultEnteredGraph, NodeID: node.ID, GraphID: targetID}
}

// returnToCaller pops the top frame and resumes its subflow node on the pin
// named after exitID, or on its output pin.
func (e *Engine) returnToCaller(state *domain.State, exitID string) domain.Result {
	frame := state.CallStack[len(state.CallStack)-1]
	caller := frame.Graph()

	pin := exitID
	if !hasPin(caller, frame.ReturnNodeID, pin) {
		pin = domain.PinOutput
	}
	conns := caller.Outgoing(frame.ReturnNodeID, pin)
	if len(conns) == 0 {
		return e.fail(state, exitID, "No outgoing connection from pin %q of subflow node %q in flow %q",
			domain.PinOutput, frame.ReturnNodeID, frame.GraphID)
	}

	callee := state.GraphID
	state.CallStack = state.CallStack[:len(state.CallStack)-1]
	state.GraphID = frame.GraphID
	state.ExecutionPath = frame.ExecutionPath
	state.Log(domain.SeverityInfo, exitID, "Returned from flow %q", callee)

	if len(conns) > 1 {
		state.Log(domain.SeverityWarning, frame.ReturnNodeID,
			"Pin %q has %d connections; following the first to %q", pin, len(conns), conns[0].Target)
	}
	res := e.moveTo(state, caller, frame.ReturnNodeID, conns[0].Target)
	if res.Kind == domain.ResultAdvanced {
		res.Kind = domain.ResultReturnedToCaller
	}
	return res
}
