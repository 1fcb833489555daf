package ports

import (
	"context"

	"github.com/aretw0/storyflow/pkg/domain"
)

// GraphLoader defines how hosts retrieve graphs.
// The engine itself never loads graphs: hosts fetch the graph named by a
// cross-graph result and supply it on the next call.
type GraphLoader interface {
	// GetGraph returns the graph with the given id, or an error wrapping
	// domain.ErrGraphNotFound.
	GetGraph(ctx context.Context, id string) (*domain.Graph, error)

	// ListGraphs returns the ids of every available graph, sorted.
	ListGraphs(ctx context.Context) ([]string, error)
}

// VariableProvider is implemented by loaders that also declare the variable
// store sessions start from.
type VariableProvider interface {
	Variables(ctx context.Context) (map[string]domain.Variable, error)
}
