package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storyflow/internal/compiler"
	"github.com/aretw0/storyflow/internal/logging"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/schema"
)

// DefaultMaxCallDepth bounds the call stack of nested subflows.
const DefaultMaxCallDepth = 20

// Engine is the flow interpreter. It holds no session data: every call takes
// a State and returns a new one, leaving the input untouched.
type Engine struct {
	parser       *compiler.Parser
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	maxSteps     int
	maxCallDepth int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the operator logger. Nil keeps the default no-op logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxSteps sets the initial step limit of new and reset sessions.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithMaxCallDepth bounds how many subflow calls may be nested.
func WithMaxCallDepth(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxCallDepth = n
		}
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		parser:       compiler.NewParser(),
		logger:       logging.NewNop(),
		maxSteps:     domain.DefaultMaxSteps,
		maxCallDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSteps returns the step limit given to new sessions.
func (e *Engine) MaxSteps() int { return e.maxSteps }

// Init creates the state of a new session positioned on startNodeID, or on
// the entry node of graph when startNodeID is empty.
func (e *Engine) Init(ctx context.Context, graph *domain.Graph, startNodeID string, vars map[string]domain.Variable) (*domain.State, error) {
	if graph == nil {
		return nil, domain.ErrNilGraph
	}

	if startNodeID == "" {
		entry, ok := graph.EntryNode()
		if !ok {
			return nil, fmt.Errorf("graph %q has no entry node", graph.ID)
		}
		startNodeID = entry.ID
	} else if _, ok := graph.Node(startNodeID); !ok {
		return nil, fmt.Errorf("start node %q not found in graph %q", startNodeID, graph.ID)
	}

	validated, err := schema.ValidateVariables(vars)
	if err != nil {
		return nil, fmt.Errorf("invalid variables: %w", err)
	}

	state := domain.NewState("", graph.ID, startNodeID, validated)
	state.MaxSteps = e.maxSteps

	e.logger.Debug("session initialised", "graph_id", graph.ID, "node_id", startNodeID, "variables", len(validated))
	return state, nil
}

// Step evaluates the current node and moves to the next one.
//
// graph must be the graph the state is executing. After a result of kind
// ResultEnteredGraph or ResultReturnedToCaller, the caller supplies the graph
// named by Result.GraphID on the next call.
func (e *Engine) Step(ctx context.Context, state *domain.State, graph *domain.Graph) (domain.Result, *domain.State, error) {
	if err := e.checkArgs(state, graph); err != nil {
		return domain.Result{}, nil, err
	}

	switch state.Status {
	case domain.StatusFinished:
		return domain.Result{Kind: domain.ResultFinished, NodeID: state.CurrentNodeID, GraphID: state.GraphID}, state, nil
	case domain.StatusWaitingForChoice:
		return domain.Result{
			Kind:       domain.ResultWaitingForChoice,
			NodeID:     state.CurrentNodeID,
			GraphID:    state.GraphID,
			Candidates: append([]domain.ResponseCandidate(nil), state.PendingChoices...),
		}, state, nil
	}

	if state.StepCount >= state.MaxSteps {
		next := state.Clone()
		next.Status = domain.StatusPaused
		next.Log(domain.SeverityWarning, next.CurrentNodeID,
			"Step limit of %d reached. Extend the limit to continue.", next.MaxSteps)
		e.logger.Warn("step limit reached", "session_id", next.SessionID, "max_steps", next.MaxSteps)
		res := domain.Result{Kind: domain.ResultLimitReached, NodeID: next.CurrentNodeID, GraphID: next.GraphID}
		e.emitStep(ctx, next, res)
		return res, next, nil
	}

	next := state.PushSnapshot()
	next.StepCount++

	var res domain.Result
	if next.CurrentNodeID == "" {
		res = e.enterEntry(ctx, next, graph)
	} else {
		res = e.evaluate(ctx, next, graph)
	}
	settlePreviousValues(state, next)

	e.emitStep(ctx, next, res)
	return res, next, nil
}

// ChooseResponse resolves a pending dialogue choice: it runs the response's
// instruction and follows the pin named after the response.
func (e *Engine) ChooseResponse(ctx context.Context, state *domain.State, graph *domain.Graph, responseID string) (domain.Result, *domain.State, error) {
	if err := e.checkArgs(state, graph); err != nil {
		return domain.Result{}, nil, err
	}
	if state.Status != domain.StatusWaitingForChoice {
		return domain.Result{}, nil, domain.ErrNotWaiting
	}

	var candidate *domain.ResponseCandidate
	for i := range state.PendingChoices {
		if state.PendingChoices[i].ID == responseID {
			candidate = &state.PendingChoices[i]
			break
		}
	}
	if candidate == nil {
		return domain.Result{}, nil, fmt.Errorf("%w: %q", domain.ErrUnknownResponse, responseID)
	}

	node, ok := graph.Node(state.CurrentNodeID)
	if !ok {
		return domain.Result{}, nil, fmt.Errorf("node %q not found in graph %q", state.CurrentNodeID, graph.ID)
	}
	data, err := e.parser.Dialogue(node)
	if err != nil {
		return domain.Result{}, nil, err
	}
	response, ok := findResponse(data, responseID)
	if !ok {
		return domain.Result{}, nil, fmt.Errorf("%w: %q", domain.ErrUnknownResponse, responseID)
	}

	next := state.PushSnapshot()
	next.StepCount++
	next.Status = domain.StatusPaused
	next.PendingChoices = nil

	if !candidate.Valid {
		next.LogRules(domain.SeverityWarning, node.ID, candidate.Rules,
			"Response %q chosen although its condition failed", responseID)
	}

	res := e.choose(ctx, next, graph, node, response)
	settlePreviousValues(state, next)
	e.emitStep(ctx, next, res)
	return res, next, nil
}

// StepBack restores the state saved before the last transition.
func (e *Engine) StepBack(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state == nil {
		return nil, domain.ErrNilState
	}
	prev, err := state.PopSnapshot()
	if err != nil {
		return nil, err
	}
	e.logger.Debug("stepped back", "session_id", prev.SessionID, "node_id", prev.CurrentNodeID, "remaining", len(prev.Snapshots))
	return prev, nil
}

// Reset returns a state positioned at the start of the session with every
// variable back to its initial value. Breakpoints and view mode survive.
func (e *Engine) Reset(ctx context.Context, state *domain.State) *domain.State {
	if state == nil {
		return nil
	}

	vars := make(map[string]domain.Variable, len(state.Variables))
	for key, v := range state.Variables {
		v = v.Clone()
		v.Value = domain.CloneValue(v.InitialValue)
		v.PreviousValue = domain.CloneValue(v.InitialValue)
		v.Source = domain.SourceInitial
		vars[key] = v
	}

	next := domain.NewState(state.SessionID, state.StartGraphID, state.StartNodeID, vars)
	next.ViewMode = state.ViewMode
	next.Breakpoints = state.Clone().Breakpoints
	next.MaxSteps = e.maxSteps
	return next
}

// ExtendStepLimit raises the step limit by one increment.
func (e *Engine) ExtendStepLimit(ctx context.Context, state *domain.State) *domain.State {
	if state == nil {
		return nil
	}
	next := state.Clone()
	next.MaxSteps += domain.StepLimitIncrement
	next.Log(domain.SeverityInfo, next.CurrentNodeID, "Step limit extended to %d", next.MaxSteps)
	return next
}

// settlePreviousValues sets PreviousValue of every variable to its value
// before the step that turned prev into next.
func settlePreviousValues(prev, next *domain.State) {
	for key, v := range next.Variables {
		before, ok := prev.Variables[key]
		if !ok {
			continue
		}
		v.PreviousValue = domain.CloneValue(before.Value)
		next.Variables[key] = v
	}
}

func (e *Engine) checkArgs(state *domain.State, graph *domain.Graph) error {
	if state == nil {
		return domain.ErrNilState
	}
	if graph == nil {
		return domain.ErrNilGraph
	}
	if graph.ID != state.GraphID {
		return fmt.Errorf("%w: executing %q, got %q", domain.ErrGraphMismatch, state.GraphID, graph.ID)
	}
	return nil
}

func (e *Engine) emitNodeEnter(ctx context.Context, state *domain.State, node domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter, SessionID: state.SessionID},
		GraphID:   state.GraphID,
		NodeID:    node.ID,
		NodeType:  node.Type,
	})
}

func (e *Engine) emitStep(ctx context.Context, state *domain.State, res domain.Result) {
	if e.hooks.OnStep == nil {
		return
	}
	e.hooks.OnStep(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStep, SessionID: state.SessionID},
		GraphID:   state.GraphID,
		NodeID:    state.CurrentNodeID,
		Result:    res.Kind,
		StepCount: state.StepCount,
	})
}

func (e *Engine) emitVariableChange(ctx context.Context, state *domain.State, nodeID, key string, oldValue, newValue any) {
	if e.hooks.OnVariableChange == nil {
		return
	}
	e.hooks.OnVariableChange(ctx, &domain.VariableEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventVariableChange, SessionID: state.SessionID},
		NodeID:    nodeID,
		Variable:  key,
		OldValue:  oldValue,
		NewValue:  newValue,
	})
}
