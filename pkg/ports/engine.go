package ports

import (
	"context"

	"github.com/aretw0/storyflow/pkg/domain"
)

// DebugEngine is the engine surface hosts drive. Every method returns a new
// State and leaves its input untouched. Graphs are resolved by the engine
// through its GraphLoader.
type DebugEngine interface {
	// Start creates the state of a new session on graphID.
	Start(ctx context.Context, sessionID, graphID, startNodeID string) (*domain.State, error)

	// Step evaluates the current node.
	Step(ctx context.Context, state *domain.State) (domain.Result, *domain.State, error)

	// ChooseResponse resolves a pending dialogue choice.
	ChooseResponse(ctx context.Context, state *domain.State, responseID string) (domain.Result, *domain.State, error)

	// StepBack restores the state saved before the last transition.
	StepBack(ctx context.Context, state *domain.State) (*domain.State, error)

	// Reset returns to the start of the session.
	Reset(ctx context.Context, state *domain.State) *domain.State

	// ExtendStepLimit raises the loop guard.
	ExtendStepLimit(ctx context.Context, state *domain.State) *domain.State

	// CheckBreakpoint reports whether the current node is a triggered breakpoint.
	// The returned state replaces the input either way; it may carry warnings.
	CheckBreakpoint(ctx context.Context, state *domain.State) (*domain.State, bool)
}
