package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/storyflow/internal/logging"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/ports"
	"github.com/aretw0/storyflow/pkg/runner"
	"github.com/aretw0/storyflow/pkg/schema"
	"github.com/aretw0/storyflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultPlayTimeout bounds a single play tool call.
const DefaultPlayTimeout = 30 * time.Second

// GraphsURI is the resource listing the graph ids of the project.
const GraphsURI = "storyflow://graphs"

// Engine is the debugging surface the MCP server drives.
type Engine interface {
	ports.DebugEngine
	SetVariable(ctx context.Context, state *domain.State, key string, value any) (*domain.State, error)
	SetViewMode(ctx context.Context, state *domain.State, mode domain.ViewMode) (*domain.State, error)
	ToggleBreakpoint(ctx context.Context, state *domain.State, nodeID string) *domain.State
	Loader() ports.GraphLoader
}

// SessionResponse is the JSON text returned by every session tool.
type SessionResponse struct {
	Result *domain.Result    `json:"result,omitempty"`
	State  *domain.State     `json:"state"`
	Diff   *domain.StateDiff `json:"diff,omitempty"`
}

// Server exposes debugging sessions as MCP tools. Sessions live in the same
// session.Manager the HTTP host uses, so both can drive one session.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	runner    *runner.Runner
	mcpServer *server.MCPServer

	version     string
	playTimeout time.Duration
	logger      *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunner replaces the auto-play runner used by the play tool.
func WithRunner(r *runner.Runner) Option {
	return func(s *Server) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithVersion sets the version announced to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// WithPlayTimeout bounds a single play call.
func WithPlayTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.playTimeout = d
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		engine:      engine,
		sessions:    sessions,
		version:     "dev",
		playTimeout: DefaultPlayTimeout,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = runner.New(engine, runner.WithLogger(s.logger))
	}

	s.mcpServer = server.NewMCPServer("storyflow", s.version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on addr using Server-Sent Events until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop MCP server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	sessionID := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start"))

	s.mcpServer.AddTool(mcp.NewTool("start",
		mcp.WithDescription("Start a debugging session on a graph. Returns the new session state."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph to execute")),
		mcp.WithString("start_node_id", mcp.Description("Node to start from (defaults to the graph entry)")),
		mcp.WithString("view_mode", mcp.Description("analysis or player"), mcp.Enum("analysis", "player")),
	), s.handleStart)

	s.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Evaluate the current node and advance one transition."),
		sessionID,
	), s.handleStep)

	s.mcpServer.AddTool(mcp.NewTool("back",
		mcp.WithDescription("Undo the last transition."),
		sessionID,
	), s.handleBack)

	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Pick a response of the pending dialogue."),
		sessionID,
		mcp.WithString("response_id", mcp.Required(), mcp.Description("Id of the chosen response")),
	), s.handleChoose)

	s.mcpServer.AddTool(mcp.NewTool("play",
		mcp.WithDescription("Step until a choice, a breakpoint, the step limit or the end of the flow."),
		sessionID,
	), s.handlePlay)

	s.mcpServer.AddTool(mcp.NewTool("set_variable",
		mcp.WithDescription("Override a variable. The value is parsed according to the declared kind."),
		sessionID,
		mcp.WithString("key", mcp.Required(), mcp.Description("Variable key, e.g. mc.gold")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value as text; multi_select takes a comma separated list, nil clears")),
	), s.handleSetVariable)

	s.mcpServer.AddTool(mcp.NewTool("toggle_breakpoint",
		mcp.WithDescription("Add or remove a breakpoint on a node."),
		sessionID,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to toggle")),
	), s.handleToggleBreakpoint)

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Return the current state of a session."),
		sessionID,
	), s.handleGetSession)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphsURI, "Project graphs",
		mcp.WithMIMEType("application/json"),
	), s.readGraphs)
}

func (s *Server) readGraphs(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.engine.Loader().ListGraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	raw, err := json.Marshal(map[string][]string{"graphs": ids})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: GraphsURI, MIMEType: "application/json", Text: string(raw)},
	}, nil
}

func (s *Server) handleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	graphID, _ := args["graph_id"].(string)
	if graphID == "" {
		return mcp.NewToolResultError("graph_id argument is required"), nil
	}
	startNodeID, _ := args["start_node_id"].(string)
	mode, _ := args["view_mode"].(string)

	state, err := s.sessions.Create(ctx, func(id string) (*domain.State, error) {
		state, err := s.engine.Start(ctx, id, graphID, startNodeID)
		if err != nil {
			return nil, err
		}
		if mode != "" {
			return s.engine.SetViewMode(ctx, state, domain.ViewMode(mode))
		}
		return state, nil
	})
	if err != nil {
		return s.toolError("start", err), nil
	}
	s.logger.Info("session created", "session_id", state.SessionID, "graph_id", state.GraphID, "transport", "mcp")
	return s.toolResult(SessionResponse{State: state, Diff: domain.Diff(nil, state)}), nil
}

func (s *Server) handleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, missing := sessionArg(req)
	if missing != nil {
		return missing, nil
	}
	state, err := s.sessions.Load(ctx, id)
	if err != nil {
		return s.toolError("get_session", err), nil
	}
	return s.toolResult(SessionResponse{State: state}), nil
}

func (s *Server) handleStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apply(ctx, req, "step", func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		res, next, err := s.engine.Step(ctx, state)
		return &res, next, err
	}), nil
}

func (s *Server) handleBack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apply(ctx, req, "back", func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		next, err := s.engine.StepBack(ctx, state)
		return nil, next, err
	}), nil
}

func (s *Server) handleChoose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	responseID, _ := req.GetArguments()["response_id"].(string)
	if responseID == "" {
		return mcp.NewToolResultError("response_id argument is required"), nil
	}
	return s.apply(ctx, req, "choose", func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		res, next, err := s.engine.ChooseResponse(ctx, state, responseID)
		return &res, next, err
	}), nil
}

func (s *Server) handlePlay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apply(ctx, req, "play", func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		ctx, cancel := context.WithTimeout(ctx, s.playTimeout)
		defer cancel()

		res, next, err := s.runner.Play(ctx, state)
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("auto-play timed out", "session_id", state.SessionID, "steps", next.StepCount-state.StepCount)
			err = nil
		}
		return &res, next, err
	}), nil
}

func (s *Server) handleSetVariable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	key, _ := args["key"].(string)
	if key == "" {
		return mcp.NewToolResultError("key argument is required"), nil
	}
	raw, ok := args["value"].(string)
	if !ok {
		return mcp.NewToolResultError("value argument must be a string"), nil
	}
	return s.apply(ctx, req, "set_variable", func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		v, ok := state.Variables[key]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, key)
		}
		value, err := schema.Parse(v.Kind, raw)
		if err != nil {
			return nil, nil, err
		}
		next, err := s.engine.SetVariable(ctx, state, key, value)
		return nil, next, err
	}), nil
}

func (s *Server) handleToggleBreakpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, _ := req.GetArguments()["node_id"].(string)
	if nodeID == "" {
		return mcp.NewToolResultError("node_id argument is required"), nil
	}
	return s.apply(ctx, req, "toggle_breakpoint", func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		return nil, s.engine.ToggleBreakpoint(ctx, state, nodeID), nil
	}), nil
}

type operation func(context.Context, *domain.State) (*domain.Result, *domain.State, error)

// apply runs op on the stored session under its lock.
func (s *Server) apply(ctx context.Context, req mcp.CallToolRequest, tool string, op operation) *mcp.CallToolResult {
	id, missing := sessionArg(req)
	if missing != nil {
		return missing
	}

	var result *domain.Result
	var diff *domain.StateDiff
	state, err := s.sessions.Update(ctx, id, func(current *domain.State) (*domain.State, error) {
		res, next, err := op(ctx, current)
		if err != nil {
			return nil, err
		}
		result = res
		diff = domain.Diff(current, next)
		return next, nil
	})
	if err != nil {
		return s.toolError(tool, err)
	}
	if result != nil {
		s.logger.Debug("session operation", "tool", tool, "session_id", id, "result", result.Kind, "node_id", result.NodeID)
	}
	return s.toolResult(SessionResponse{Result: result, State: state, Diff: diff})
}

func sessionArg(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id, _ := req.GetArguments()["session_id"].(string)
	if id == "" {
		return "", mcp.NewToolResultError("session_id argument is required")
	}
	return id, nil
}

// toolError reports contract violations to the client as tool errors; the
// protocol call itself succeeds.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Debug("tool rejected", "tool", tool, "err", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

func (s *Server) toolResult(v any) *mcp.CallToolResult {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("response encode failed", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err))
	}
	return mcp.NewToolResultText(string(raw))
}
