package graph

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/storyflow/internal/compiler"
	"github.com/aretw0/storyflow/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	ErroredNodes []string
	Breakpoints  []string
}

// OverlayFromState builds the overlay of state for the graph it is executing.
func OverlayFromState(state *domain.State) *GraphOverlay {
	if state == nil {
		return nil
	}
	bps := make([]string, 0, len(state.Breakpoints))
	for id := range state.Breakpoints {
		bps = append(bps, id)
	}
	sort.Strings(bps)
	return &GraphOverlay{
		VisitedNodes: slices.Clone(state.ExecutionPath),
		CurrentNode:  state.CurrentNodeID,
		ErroredNodes: slices.Clone(state.ErroredNodes),
		Breakpoints:  bps,
	}
}

// GenerateMermaid produces a Mermaid flowchart of g.
// It applies semantic styling:
// - Entry: ((Circle))
// - Dialogue: [/Parallelogram/]
// - Condition: {Rhombus}
// - Switch: {{Hexagon}}
// - Subflow: [[Subroutine]]
// - Hub: ([Stadium])
// - Exit: (((Double circle)))
// - Default: [Rectangle]
// Jumps are drawn as dotted edges to their hub. The overlay adds
// visited, current, errored and breakpoint classes.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if g == nil {
		return sb.String()
	}

	parser := compiler.NewParser()
	hubs := make(map[string]string)
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if node.Type != domain.NodeTypeHub {
			continue
		}
		if data, err := parser.Hub(node); err == nil && data.HubID != "" {
			hubs[data.HubID] = node.ID
		}
	}

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeEntry:
			opener, closer = "((", "))"
		case domain.NodeTypeDialogue:
			opener, closer = "[/", "/]"
		case domain.NodeTypeCondition:
			opener, closer = "{", "}"
		case domain.NodeTypeSwitch:
			opener, closer = "{{", "}}"
		case domain.NodeTypeSubflow:
			opener, closer = "[[", "]]"
		case domain.NodeTypeHub:
			opener, closer = "([", "])"
		case domain.NodeTypeExit:
			opener, closer = "(((", ")))"
		}

		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(nodeLabel(parser, node)), closer)

		if node.Type == domain.NodeTypeJump {
			if data, err := parser.Jump(node); err == nil {
				if hub, ok := hubs[data.TargetHubID]; ok {
					fmt.Fprintf(&sb, "    %s -.-> %s\n", safeID, sanitizeMermaidID(hub))
				}
			}
		}
	}

	for _, c := range g.Connections {
		arrow := "-->"
		if c.SourcePin != domain.PinOutput {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(c.SourcePin))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(c.Source), arrow, sanitizeMermaidID(c.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef errored fill:#ffcdd2,stroke:#b71c1c,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef breakpoint stroke:#d32f2f,stroke-width:3px,stroke-dasharray:4;\n")

		writeClass(&sb, g, overlay.VisitedNodes, "visited")
		writeClass(&sb, g, overlay.ErroredNodes, "errored")
		writeClass(&sb, g, overlay.Breakpoints, "breakpoint")
		if overlay.CurrentNode != "" {
			writeClass(&sb, g, []string{overlay.CurrentNode}, "current")
		}
	}

	return sb.String()
}

// writeClass styles the ids that belong to g, once each.
func writeClass(sb *strings.Builder, g *domain.Graph, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		if _, ok := g.Nodes[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(sb, "    class %s %s;\n", sanitizeMermaidID(id), class)
	}
}

func nodeLabel(p *compiler.Parser, node domain.Node) string {
	detail := ""
	switch node.Type {
	case domain.NodeTypeDialogue:
		if d, err := p.Dialogue(node); err == nil {
			detail = d.Speaker
		}
	case domain.NodeTypeHub:
		if d, err := p.Hub(node); err == nil {
			detail = "hub " + d.HubID
		}
	case domain.NodeTypeJump:
		if d, err := p.Jump(node); err == nil {
			detail = "jump " + d.TargetHubID
		}
	case domain.NodeTypeSubflow:
		if d, err := p.Subflow(node); err == nil {
			detail = "call " + d.ReferencedFlowID
		}
	case domain.NodeTypeExit:
		if d, err := p.Exit(node); err == nil && d.ExitMode != domain.ExitTerminal {
			detail = d.ExitMode
		}
	}
	if strings.TrimSpace(detail) == "" {
		return node.ID
	}
	return node.ID + " <br/> " + detail
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
