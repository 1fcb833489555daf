package http

import (
	"context"
	_ "embed"
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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// OpenAPISpec documents every route of Handler.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

// DefaultPlayTimeout bounds a single auto-play request.
const DefaultPlayTimeout = 30 * time.Second

// Engine is the debugging surface the server drives.
type Engine interface {
	ports.DebugEngine
	SetVariable(ctx context.Context, state *domain.State, key string, value any) (*domain.State, error)
	SetViewMode(ctx context.Context, state *domain.State, mode domain.ViewMode) (*domain.State, error)
	ToggleBreakpoint(ctx context.Context, state *domain.State, nodeID string) *domain.State
	Loader() ports.GraphLoader
}

// Server exposes debugging sessions over HTTP.
type Server struct {
	engine   Engine
	sessions *session.Manager
	runner   *runner.Runner
	metrics  http.Handler

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

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRunner replaces the auto-play runner used by POST /sessions/{id}/play.
func WithRunner(r *runner.Runner) Option {
	return func(s *Server) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithPlayTimeout bounds a single auto-play request.
func WithPlayTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.playTimeout = d
		}
	}
}

// NewServer creates a Server. Sessions are kept by sessions.
func NewServer(engine Engine, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		engine:      engine,
		sessions:    sessions,
		playTimeout: DefaultPlayTimeout,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = runner.New(engine, runner.WithLogger(s.logger))
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", s.openAPI)
	r.Get("/graphs", s.listGraphs)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/step", s.step)
			r.Post("/back", s.back)
			r.Post("/choose", s.choose)
			r.Post("/reset", s.reset)
			r.Post("/extend", s.extend)
			r.Post("/play", s.play)
			r.Put("/mode", s.setMode)
			r.Put("/variables/{key}", s.setVariable)
			r.Post("/breakpoints/{node}", s.toggleBreakpoint)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	GraphID     string          `json:"graph_id"`
	StartNodeID string          `json:"start_node_id,omitempty"`
	ViewMode    domain.ViewMode `json:"view_mode,omitempty"`
}

// ChooseRequest is the body of POST /sessions/{id}/choose.
type ChooseRequest struct {
	ResponseID string `json:"response_id"`
}

// ValueRequest is the body of PUT /sessions/{id}/variables/{key}.
type ValueRequest struct {
	Value any `json:"value"`
}

// ModeRequest is the body of PUT /sessions/{id}/mode.
type ModeRequest struct {
	ViewMode domain.ViewMode `json:"view_mode"`
}

// SessionResponse is returned by every session operation.
type SessionResponse struct {
	Result *domain.Result    `json:"result,omitempty"`
	State  *domain.State     `json:"state"`
	Diff   *domain.StateDiff `json:"diff,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) openAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	if _, err := w.Write(OpenAPISpec); err != nil {
		s.logger.Error("failed to write OpenAPI spec", "err", err)
	}
}

func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Loader().ListGraphs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"graphs": ids})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if !s.decode(w, r, &body) {
		return
	}

	ctx := r.Context()
	state, err := s.sessions.Create(ctx, func(id string) (*domain.State, error) {
		state, err := s.engine.Start(ctx, id, body.GraphID, body.StartNodeID)
		if err != nil {
			return nil, err
		}
		if body.ViewMode != "" {
			return s.engine.SetViewMode(ctx, state, body.ViewMode)
		}
		return state, nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("session created", "session_id", state.SessionID, "graph_id", state.GraphID)
	s.writeJSON(w, http.StatusCreated, SessionResponse{State: state, Diff: domain.Diff(nil, state)})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{State: state})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) step(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		res, next, err := s.engine.Step(ctx, state)
		return &res, next, err
	})
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		next, err := s.engine.StepBack(ctx, state)
		return nil, next, err
	})
}

func (s *Server) choose(w http.ResponseWriter, r *http.Request) {
	var body ChooseRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		res, next, err := s.engine.ChooseResponse(ctx, state, body.ResponseID)
		return &res, next, err
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		return nil, s.engine.Reset(ctx, state), nil
	})
}

func (s *Server) extend(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		return nil, s.engine.ExtendStepLimit(ctx, state), nil
	})
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		ctx, cancel := context.WithTimeout(ctx, s.playTimeout)
		defer cancel()

		res, next, err := s.runner.Play(ctx, state)
		if errors.Is(err, context.DeadlineExceeded) {
			// Keep the progress made before the deadline.
			s.logger.Warn("auto-play timed out", "session_id", state.SessionID, "steps", next.StepCount-state.StepCount)
			err = nil
		}
		return &res, next, err
	})
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	var body ModeRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		next, err := s.engine.SetViewMode(ctx, state, body.ViewMode)
		return nil, next, err
	})
}

func (s *Server) setVariable(w http.ResponseWriter, r *http.Request) {
	var body ValueRequest
	if !s.decode(w, r, &body) {
		return
	}
	key := chi.URLParam(r, "key")
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		next, err := s.engine.SetVariable(ctx, state, key, body.Value)
		return nil, next, err
	})
}

func (s *Server) toggleBreakpoint(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")
	s.apply(w, r, func(ctx context.Context, state *domain.State) (*domain.Result, *domain.State, error) {
		return nil, s.engine.ToggleBreakpoint(ctx, state, node), nil
	})
}

type operation func(context.Context, *domain.State) (*domain.Result, *domain.State, error)

// apply runs op on the stored session under its lock and answers with the
// new state and its diff against the previous one.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, op operation) {
	id := chi.URLParam(r, "id")

	var result *domain.Result
	var diff *domain.StateDiff
	state, err := s.sessions.Update(r.Context(), id, func(current *domain.State) (*domain.State, error) {
		res, next, err := op(r.Context(), current)
		if err != nil {
			return nil, err
		}
		result = res
		diff = domain.Diff(current, next)
		return next, nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if result != nil {
		s.logger.Debug("session operation", "session_id", id, "result", result.Kind, "node_id", result.NodeID)
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{Result: result, State: state, Diff: diff})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func statusFor(err error) int {
	var validation *schema.ValidationError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrGraphNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotWaiting), errors.Is(err, domain.ErrNoHistory),
		errors.Is(err, runner.ErrNothingToPlay):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownResponse), errors.Is(err, domain.ErrUnknownVariable),
		errors.Is(err, domain.ErrInvalidViewMode), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
