package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/storyflow/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	id    string
	name  string
	order []string
	nodes map[string]*NodeBuilder
	conns []domain.Connection
}

// New creates a new graph builder.
func New(graphID string) *Builder {
	return &Builder{
		id:    graphID,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name of the graph.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:   id,
			Data: make(map[string]any),
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Connect adds a connection from pin of source to target. Connections keep
// their insertion order.
func (b *Builder) Connect(source, pin, target string) *Builder {
	b.conns = append(b.conns, domain.Connection{Source: source, SourcePin: pin, Target: target})
	return b
}

// Build compiles the graph. Every node needs a type and every connection
// must reference existing nodes.
func (b *Builder) Build() (*domain.Graph, error) {
	g := &domain.Graph{
		ID:          b.id,
		Name:        b.name,
		Nodes:       make(map[string]domain.Node, len(b.nodes)),
		Connections: append([]domain.Connection(nil), b.conns...),
	}

	var errs []error
	for _, id := range b.order {
		n := b.nodes[id].node
		if !n.Type.Valid() {
			errs = append(errs, fmt.Errorf("node %q: invalid type %q", id, n.Type))
		}
		if len(n.Data) == 0 {
			n.Data = nil
		}
		g.Nodes[id] = n
	}
	for _, c := range g.Connections {
		if _, ok := b.nodes[c.Source]; !ok {
			errs = append(errs, fmt.Errorf("connection %s.%s: unknown source", c.Source, c.SourcePin))
		}
		if _, ok := b.nodes[c.Target]; !ok {
			errs = append(errs, fmt.Errorf("connection %s.%s: unknown target %q", c.Source, c.SourcePin, c.Target))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to build graph %q: %w", b.id, errors.Join(errs...))
	}
	return g, nil
}

// MustBuild is like Build but panics on error. It is meant for tests and
// package-level fixtures.
func (b *Builder) MustBuild() *domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
