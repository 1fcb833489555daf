// Package validator checks graphs for authoring mistakes before they are run.
package validator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/storyflow/internal/compiler"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/ports"
)

// Level grades an issue.
type Level string

const (
	// LevelError marks a problem the engine reports at run time.
	LevelError Level = "error"
	// LevelWarning marks a suspicious construct the engine tolerates.
	LevelWarning Level = "warning"
)

// Issue is one finding.
type Issue struct {
	Level   Level  `json:"level"`
	GraphID string `json:"graph_id"`
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return fmt.Sprintf("%s: %s: %s", i.Level, i.GraphID, i.Message)
	}
	return fmt.Sprintf("%s: %s/%s: %s", i.Level, i.GraphID, i.NodeID, i.Message)
}

// Report collects the issues of one or more graphs.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Errors counts issues of LevelError.
func (r *Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Level == LevelError {
			n++
		}
	}
	return n
}

// Err returns an error summarising the report when it holds errors.
func (r *Report) Err() error {
	n := r.Errors()
	if n == 0 {
		return nil
	}
	lines := make([]string, 0, n)
	for _, i := range r.Issues {
		if i.Level == LevelError {
			lines = append(lines, i.String())
		}
	}
	return fmt.Errorf("found %d errors:\n- %s", n, strings.Join(lines, "\n- "))
}

// Validate checks every graph the loader knows. Subflow and exit references
// are resolved against the loader's graph ids.
func Validate(ctx context.Context, loader ports.GraphLoader) (*Report, error) {
	ids, err := loader.ListGraphs(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	report := &Report{}
	for _, id := range ids {
		g, err := loader.GetGraph(ctx, id)
		if err != nil {
			return nil, err
		}
		report.Issues = append(report.Issues, ValidateGraph(g, known)...)
	}
	return report, nil
}

// ValidateGraph checks one graph. knownGraphs resolves cross-graph
// references; a nil map skips that check.
func ValidateGraph(g *domain.Graph, knownGraphs map[string]bool) []Issue {
	c := &checker{g: g, parser: compiler.NewParser(), known: knownGraphs, hubs: make(map[string]string)}
	c.run()
	return c.issues
}

type checker struct {
	g      *domain.Graph
	parser *compiler.Parser
	known  map[string]bool
	hubs   map[string]string // hub id -> node id
	jumps  map[string]string // jump node id -> hub node id
	pins   map[string]map[string]bool
	issues []Issue
}

func (c *checker) add(level Level, nodeID, format string, args ...any) {
	c.issues = append(c.issues, Issue{Level: level, GraphID: c.g.ID, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) run() {
	c.checkEntry()

	c.pins = make(map[string]map[string]bool)
	for _, id := range c.g.NodeIDs() {
		node := c.g.Nodes[id]
		if !node.Type.Valid() {
			c.add(LevelError, id, "unknown node type %q", node.Type)
			continue
		}
		c.pins[id] = c.checkPayload(node)
	}

	c.checkJumps()
	c.checkConnections()
	c.checkReachability()
}

func (c *checker) checkEntry() {
	var entries []string
	for _, id := range c.g.NodeIDs() {
		if c.g.Nodes[id].Type == domain.NodeTypeEntry {
			entries = append(entries, id)
		}
	}
	switch len(entries) {
	case 0:
		c.add(LevelError, "", "no entry node")
	case 1:
	default:
		c.add(LevelWarning, "", "%d entry nodes; %q is used", len(entries), entries[0])
	}
}

// checkPayload decodes the node payload and returns the output pins the
// node can take.
func (c *checker) checkPayload(node domain.Node) map[string]bool {
	pins := map[string]bool{domain.PinOutput: true}

	decoded, err := c.parser.Parse(node)
	if err != nil {
		c.add(LevelError, node.ID, "%v", err)
		return pins
	}

	switch d := decoded.(type) {
	case compiler.DialogueData:
		for _, r := range d.Responses {
			pins[r.ID] = true
		}
	case compiler.ConditionData:
		pins = map[string]bool{domain.PinTrue: true, domain.PinFalse: true}
	case compiler.SwitchData:
		pins = map[string]bool{domain.PinDefault: true}
		for _, cs := range d.Cases {
			pins[cs.ID] = true
		}
	case compiler.HubData:
		if d.HubID == "" {
			c.add(LevelWarning, node.ID, "hub has no hub id")
		} else if other, dup := c.hubs[d.HubID]; dup {
			c.add(LevelWarning, node.ID, "hub id %q already used by %q", d.HubID, other)
		} else {
			c.hubs[d.HubID] = node.ID
		}
	case compiler.JumpData:
		pins = map[string]bool{}
	case compiler.SubflowData:
		if d.ReferencedFlowID == "" {
			c.add(LevelError, node.ID, "subflow has no referenced flow")
		} else {
			c.checkGraphRef(node.ID, d.ReferencedFlowID)
		}
	case compiler.ExitData:
		pins = map[string]bool{}
		if d.ExitMode == domain.ExitFlowReference {
			if d.ReferencedFlowID == "" {
				c.add(LevelError, node.ID, "flow reference exit has no referenced flow")
			} else {
				c.checkGraphRef(node.ID, d.ReferencedFlowID)
			}
		}
	}
	return pins
}

func (c *checker) checkGraphRef(nodeID, graphID string) {
	if c.known != nil && !c.known[graphID] {
		c.add(LevelError, nodeID, "referenced flow %q not found", graphID)
	}
}

func (c *checker) checkJumps() {
	c.jumps = make(map[string]string)
	for _, id := range c.g.NodeIDs() {
		node := c.g.Nodes[id]
		if node.Type != domain.NodeTypeJump {
			continue
		}
		d, err := c.parser.Jump(node)
		if err != nil {
			continue
		}
		switch hub, ok := c.hubs[d.TargetHubID]; {
		case d.TargetHubID == "":
			c.add(LevelError, id, "jump has no target hub")
		case !ok:
			c.add(LevelError, id, "jump target hub %q not found", d.TargetHubID)
		default:
			c.jumps[id] = hub
		}
	}
}

func (c *checker) checkConnections() {
	seen := make(map[[2]string]int)
	for _, conn := range c.g.Connections {
		source, ok := c.g.Nodes[conn.Source]
		if !ok {
			c.add(LevelError, conn.Source, "connection from unknown node %q", conn.Source)
			continue
		}
		if _, ok := c.g.Nodes[conn.Target]; !ok {
			c.add(LevelError, conn.Source, "pin %q connects to unknown node %q", conn.SourcePin, conn.Target)
		}

		// Subflow pins are named after the exits of the called graph.
		pins := c.pins[conn.Source]
		if pins != nil && source.Type != domain.NodeTypeSubflow && !pins[conn.SourcePin] {
			c.add(LevelWarning, conn.Source, "%s node has no pin %q", source.Type, conn.SourcePin)
		}

		key := [2]string{conn.Source, conn.SourcePin}
		seen[key]++
		if seen[key] == 2 {
			c.add(LevelWarning, conn.Source, "pin %q has more than one connection; only the first is followed", conn.SourcePin)
		}
	}
}

func (c *checker) checkReachability() {
	entry, ok := c.g.EntryNode()
	if !ok {
		return
	}

	edges := make(map[string][]string)
	for _, conn := range c.g.Connections {
		edges[conn.Source] = append(edges[conn.Source], conn.Target)
	}
	for jump, hub := range c.jumps {
		edges[jump] = append(edges[jump], hub)
	}

	visited := map[string]bool{entry.ID: true}
	queue := []string{entry.ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range edges[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	var unreachable []string
	for id := range c.g.Nodes {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		c.add(LevelWarning, id, "unreachable from entry %q", entry.ID)
	}
}
