package domain

import "sort"

// NodeType is the closed set of node kinds the engine knows how to evaluate.
type NodeType string

const (
	// NodeTypeEntry marks where a graph starts.
	NodeTypeEntry NodeType = "entry"
	// NodeTypeDialogue presents text and, optionally, responses (hard step).
	NodeTypeDialogue NodeType = "dialogue"
	// NodeTypeCondition is a boolean branch with "true" and "false" pins.
	NodeTypeCondition NodeType = "condition"
	// NodeTypeSwitch is a multi-way branch with one pin per case plus "default".
	NodeTypeSwitch NodeType = "switch"
	// NodeTypeInstruction mutates variables.
	NodeTypeInstruction NodeType = "instruction"
	// NodeTypeHub is a pass-through layout marker and jump target.
	NodeTypeHub NodeType = "hub"
	// NodeTypeJump resumes execution at a hub of the same graph.
	NodeTypeJump NodeType = "jump"
	// NodeTypeScene is a screenplay scene heading (pass-through).
	NodeTypeScene NodeType = "scene"
	// NodeTypeSubflow calls another graph and returns to the caller.
	NodeTypeSubflow NodeType = "subflow"
	// NodeTypeExit ends, continues or returns from a graph.
	NodeTypeExit NodeType = "exit"
)

// NodeTypes lists every valid node type in declaration order.
var NodeTypes = []NodeType{
	NodeTypeEntry,
	NodeTypeDialogue,
	NodeTypeCondition,
	NodeTypeSwitch,
	NodeTypeInstruction,
	NodeTypeHub,
	NodeTypeJump,
	NodeTypeScene,
	NodeTypeSubflow,
	NodeTypeExit,
}

// Valid reports whether t belongs to the closed set of node types.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Well-known output pins.
const (
	PinOutput  = "output"
	PinTrue    = "true"
	PinFalse   = "false"
	PinDefault = "default"
)

// Exit modes carried by exit nodes.
const (
	ExitTerminal      = "terminal"
	ExitFlowReference = "flow_reference"
	ExitCallerReturn  = "caller_return"
)

// Node represents a logical unit in the graph.
// Data is the type-specific payload; the engine decodes it on demand and
// never writes to it.
type Node struct {
	ID   string         `json:"id" yaml:"id"`
	Type NodeType       `json:"type" yaml:"type"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Connection is a directed edge from a named output pin of Source to Target.
type Connection struct {
	Source    string `json:"source" yaml:"source"`
	SourcePin string `json:"source_pin" yaml:"source_pin"`
	Target    string `json:"target" yaml:"target"`
}

// Graph is a read-only view of one flow: its nodes and connections.
type Graph struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes       map[string]Node `json:"nodes" yaml:"nodes"`
	Connections []Connection    `json:"connections" yaml:"connections"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	n, ok := g.Nodes[id]
	return n, ok
}

// EntryNode returns the entry node of the graph. When several exist the one
// with the lowest id wins so the choice is deterministic.
func (g *Graph) EntryNode() (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	ids := g.NodeIDs()
	for _, id := range ids {
		if g.Nodes[id].Type == NodeTypeEntry {
			return g.Nodes[id], true
		}
	}
	return Node{}, false
}

// NodeIDs returns all node ids sorted.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Outgoing returns every connection leaving pin of the source node, in list order.
func (g *Graph) Outgoing(source, pin string) []Connection {
	return OutgoingFrom(g.Connections, source, pin)
}

// OutgoingFrom filters conns by source node and pin, preserving order.
func OutgoingFrom(conns []Connection, source, pin string) []Connection {
	var out []Connection
	for _, c := range conns {
		if c.Source == source && c.SourcePin == pin {
			out = append(out, c)
		}
	}
	return out
}
