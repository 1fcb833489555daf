package storyflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/storyflow/internal/logging"
	"github.com/aretw0/storyflow/internal/runtime"
	"github.com/aretw0/storyflow/pkg/adapters/file"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/ports"
)

// Engine is the high-level entry point for the storyflow library.
// It wraps the internal runtime and resolves graphs through a GraphLoader, so
// hosts only thread the State.
type Engine struct {
	runtime      *runtime.Engine
	loader       ports.GraphLoader
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	maxSteps     int
	maxCallDepth int
	Name         string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom GraphLoader, bypassing the project file.
func WithLoader(l ports.GraphLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps sets the initial step limit of sessions (default 1000).
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithMaxCallDepth bounds nested subflow calls (default 20).
func WithMaxCallDepth(n int) Option {
	return func(e *Engine) {
		e.maxCallDepth = n
	}
}

// New initializes a new Engine.
// By default, it loads the project file at projectPath.
// If WithLoader option is provided, projectPath can be empty and the file is skipped.
func New(projectPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if projectPath == "" {
			return nil, fmt.Errorf("projectPath is required when no custom loader is provided")
		}
		project, err := file.Load(projectPath)
		if err != nil {
			return nil, err
		}
		eng.loader = project
		eng.Name = project.Name
		if eng.Name == "" {
			eng.Name = filepath.Base(projectPath)
		}
	} else if projectPath != "" {
		eng.Name = filepath.Base(projectPath)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("project", eng.Name)
	}

	eng.runtime = runtime.NewEngine(
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithMaxSteps(eng.maxSteps),
		runtime.WithMaxCallDepth(eng.maxCallDepth),
	)

	return eng, nil
}

// Start creates the state of a new session. An empty graphID selects the
// first graph of a project file (or the first id listed by the loader); an
// empty startNodeID selects the graph's entry node. The variable store comes
// from the loader when it implements ports.VariableProvider.
func (e *Engine) Start(ctx context.Context, sessionID, graphID, startNodeID string) (*domain.State, error) {
	if graphID == "" {
		id, err := e.defaultGraphID(ctx)
		if err != nil {
			return nil, err
		}
		graphID = id
	}

	graph, err := e.loader.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}

	var vars map[string]domain.Variable
	if vp, ok := e.loader.(ports.VariableProvider); ok {
		if vars, err = vp.Variables(ctx); err != nil {
			return nil, fmt.Errorf("failed to load variables: %w", err)
		}
	}

	state, err := e.runtime.Init(ctx, graph, startNodeID, vars)
	if err != nil {
		return nil, err
	}
	state.SessionID = sessionID
	e.logger.Info("session started", "session_id", sessionID, "graph_id", graphID, "node_id", state.CurrentNodeID)
	return state, nil
}

// Step evaluates the current node of the session.
func (e *Engine) Step(ctx context.Context, state *domain.State) (domain.Result, *domain.State, error) {
	graph, err := e.graphOf(ctx, state)
	if err != nil {
		return domain.Result{}, nil, err
	}
	return e.runtime.Step(ctx, state, graph)
}

// ChooseResponse resolves a pending dialogue choice.
func (e *Engine) ChooseResponse(ctx context.Context, state *domain.State, responseID string) (domain.Result, *domain.State, error) {
	graph, err := e.graphOf(ctx, state)
	if err != nil {
		return domain.Result{}, nil, err
	}
	return e.runtime.ChooseResponse(ctx, state, graph, responseID)
}

// StepBack restores the state saved before the last transition.
func (e *Engine) StepBack(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.StepBack(ctx, state)
}

// Reset returns to the start of the session, keeping breakpoints and view mode.
func (e *Engine) Reset(ctx context.Context, state *domain.State) *domain.State {
	return e.runtime.Reset(ctx, state)
}

// ExtendStepLimit raises the step limit by one increment.
func (e *Engine) ExtendStepLimit(ctx context.Context, state *domain.State) *domain.State {
	return e.runtime.ExtendStepLimit(ctx, state)
}

// SetVariable overrides a variable value (undoable).
func (e *Engine) SetVariable(ctx context.Context, state *domain.State, key string, value any) (*domain.State, error) {
	return e.runtime.SetVariable(ctx, state, key, value)
}

// SetViewMode switches between analysis and player presentation.
func (e *Engine) SetViewMode(ctx context.Context, state *domain.State, mode domain.ViewMode) (*domain.State, error) {
	return e.runtime.SetViewMode(ctx, state, mode)
}

// ToggleBreakpoint adds or removes an unconditional breakpoint.
func (e *Engine) ToggleBreakpoint(ctx context.Context, state *domain.State, nodeID string) *domain.State {
	return e.runtime.ToggleBreakpoint(ctx, state, nodeID)
}

// SetBreakpointCondition places a guarded breakpoint.
func (e *Engine) SetBreakpointCondition(ctx context.Context, state *domain.State, nodeID string, guard *domain.Condition) *domain.State {
	return e.runtime.SetBreakpointCondition(ctx, state, nodeID, guard)
}

// ClearBreakpoints removes every breakpoint.
func (e *Engine) ClearBreakpoints(ctx context.Context, state *domain.State) *domain.State {
	return e.runtime.ClearBreakpoints(ctx, state)
}

// CheckBreakpoint reports whether the session sits on a triggered breakpoint.
func (e *Engine) CheckBreakpoint(ctx context.Context, state *domain.State) (*domain.State, bool) {
	return e.runtime.CheckBreakpoint(ctx, state)
}

// Graph returns the graph with the given id.
func (e *Engine) Graph(ctx context.Context, id string) (*domain.Graph, error) {
	return e.loader.GetGraph(ctx, id)
}

// Loader returns the underlying GraphLoader used by the engine.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) graphOf(ctx context.Context, state *domain.State) (*domain.Graph, error) {
	if state == nil {
		return nil, domain.ErrNilState
	}
	return e.loader.GetGraph(ctx, state.GraphID)
}

func (e *Engine) defaultGraphID(ctx context.Context) (string, error) {
	if p, ok := e.loader.(*file.Project); ok && p.DefaultGraphID() != "" {
		return p.DefaultGraphID(), nil
	}
	ids, err := e.loader.ListGraphs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: no graphs available", domain.ErrGraphNotFound)
	}
	return ids[0], nil
}

var _ ports.DebugEngine = (*Engine)(nil)
