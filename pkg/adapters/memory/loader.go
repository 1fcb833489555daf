package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/storyflow/pkg/domain"
)

// Loader implements ports.GraphLoader and ports.VariableProvider using
// in-memory maps. Safe for concurrent use.
type Loader struct {
	mu     sync.RWMutex
	graphs map[string]*domain.Graph
	vars   map[string]domain.Variable
}

// NewLoader creates a loader serving graphs.
func NewLoader(graphs ...*domain.Graph) (*Loader, error) {
	l := &Loader{
		graphs: make(map[string]*domain.Graph, len(graphs)),
		vars:   make(map[string]domain.Variable),
	}
	for _, g := range graphs {
		if err := l.AddGraph(g); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddGraph registers or replaces a graph.
func (l *Loader) AddGraph(g *domain.Graph) error {
	if g == nil || g.ID == "" {
		return fmt.Errorf("graph missing ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.graphs[g.ID] = g
	return nil
}

// SetVariables replaces the declared variable store.
func (l *Loader) SetVariables(vars map[string]domain.Variable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vars = domain.CloneVariables(vars)
}

// GetGraph retrieves a graph by ID.
func (l *Loader) GetGraph(ctx context.Context, id string) (*domain.Graph, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	return g, nil
}

// ListGraphs returns all available graph IDs.
func (l *Loader) ListGraphs(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.graphs))
	for k := range l.graphs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}

// Variables returns a copy of the declared variable store.
func (l *Loader) Variables(ctx context.Context) (map[string]domain.Variable, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneVariables(l.vars), nil
}
