package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/schema"
	"gopkg.in/yaml.v3"
)

type projectDoc struct {
	Name      string                 `yaml:"name"`
	Variables map[string]variableDoc `yaml:"variables"`
	Graphs    []graphDoc             `yaml:"graphs"`
}

type variableDoc struct {
	Kind    domain.Kind `yaml:"kind"`
	Value   any         `yaml:"value"`
	Options []string    `yaml:"options"`
}

type graphDoc struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Nodes       []domain.Node       `yaml:"nodes"`
	Connections []domain.Connection `yaml:"connections"`
}

// Project is a loaded project file. It implements ports.GraphLoader and
// ports.VariableProvider.
type Project struct {
	Name string

	path   string
	order  []string
	graphs map[string]*domain.Graph
	vars   map[string]domain.Variable
}

// Load reads and decodes the project at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.path = path
	return p, nil
}

// Parse decodes a project document.
func Parse(r io.Reader) (*Project, error) {
	var doc projectDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty project")
		}
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}

	p := &Project{
		Name:   doc.Name,
		graphs: make(map[string]*domain.Graph, len(doc.Graphs)),
	}

	declared := make(map[string]domain.Variable, len(doc.Variables))
	for key, v := range doc.Variables {
		nv := domain.NewVariable(key, v.Kind, v.Value)
		nv.Options = v.Options
		declared[key] = nv
	}
	vars, err := schema.ValidateVariables(declared)
	if err != nil {
		return nil, err
	}
	p.vars = vars

	for i, gd := range doc.Graphs {
		if gd.ID == "" {
			return nil, fmt.Errorf("graph %d has no id", i)
		}
		if _, dup := p.graphs[gd.ID]; dup {
			return nil, fmt.Errorf("duplicate graph id %q", gd.ID)
		}
		g := &domain.Graph{
			ID:          gd.ID,
			Name:        gd.Name,
			Nodes:       make(map[string]domain.Node, len(gd.Nodes)),
			Connections: gd.Connections,
		}
		for j, n := range gd.Nodes {
			if n.ID == "" {
				return nil, fmt.Errorf("graph %q: node %d has no id", gd.ID, j)
			}
			if _, dup := g.Nodes[n.ID]; dup {
				return nil, fmt.Errorf("graph %q: duplicate node id %q", gd.ID, n.ID)
			}
			g.Nodes[n.ID] = n
		}
		p.graphs[gd.ID] = g
		p.order = append(p.order, gd.ID)
	}

	return p, nil
}

// Path returns the file the project was loaded from, if any.
func (p *Project) Path() string { return p.path }

// DefaultGraphID returns the first graph declared in the file.
func (p *Project) DefaultGraphID() string {
	if len(p.order) == 0 {
		return ""
	}
	return p.order[0]
}

// Graphs returns every graph in declaration order.
func (p *Project) Graphs() []*domain.Graph {
	out := make([]*domain.Graph, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.graphs[id])
	}
	return out
}

// GetGraph retrieves a graph by ID.
func (p *Project) GetGraph(ctx context.Context, id string) (*domain.Graph, error) {
	g, ok := p.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	return g, nil
}

// ListGraphs returns all graph IDs, sorted.
func (p *Project) ListGraphs(ctx context.Context) ([]string, error) {
	ids := append([]string(nil), p.order...)
	sort.Strings(ids)
	return ids, nil
}

// Variables returns a copy of the declared variable store.
func (p *Project) Variables(ctx context.Context) (map[string]domain.Variable, error) {
	return domain.CloneVariables(p.vars), nil
}
