package domain

import "fmt"

// ExecutionStatus defines the current mode of the engine mechanics.
type ExecutionStatus string

const (
	StatusPaused           ExecutionStatus = "paused"             // Ready for the next step
	StatusWaitingForChoice ExecutionStatus = "waiting_for_choice" // Suspended on a dialogue, waiting for a response
	StatusFinished         ExecutionStatus = "finished"           // Sink state reached
)

// ViewMode selects how invalid branches and responses are presented.
type ViewMode string

const (
	// ViewAnalysis shows invalid responses and non-taken branches, marked.
	ViewAnalysis ViewMode = "analysis"
	// ViewPlayer hides them, like the final player would experience.
	ViewPlayer ViewMode = "player"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewAnalysis || m == ViewPlayer
}

// Severity of a console entry.
type Severity string

const (
	SeverityInfo       Severity = "info"
	SeverityWarning    Severity = "warning"
	SeverityError      Severity = "error"
	SeverityBreakpoint Severity = "breakpoint"
)

// Default limits.
const (
	DefaultMaxSteps    = 1000
	StepLimitIncrement = 1000
)

// ConsoleEntry is one line of the user-visible debugger console.
type ConsoleEntry struct {
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
	NodeID   string       `json:"node_id,omitempty"`
	GraphID  string       `json:"graph_id,omitempty"`
	Step     int          `json:"step"`
	Rules    []RuleResult `json:"rules,omitempty"`
}

// HistoryEntry records one variable change and the node that caused it.
type HistoryEntry struct {
	Step     int    `json:"step"`
	Variable string `json:"variable"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
	NodeID   string `json:"node_id"`
	GraphID  string `json:"graph_id"`
	Source   Source `json:"source"`
}

// CallFrame is a suspended caller graph, resumed when the callee returns.
type CallFrame struct {
	GraphID       string          `json:"graph_id"`
	ReturnNodeID  string          `json:"return_node_id"`
	Nodes         map[string]Node `json:"nodes"`
	Connections   []Connection    `json:"connections"`
	ExecutionPath []string        `json:"execution_path"`
}

// Graph rebuilds the caller graph held by the frame.
func (f CallFrame) Graph() *Graph {
	return &Graph{ID: f.GraphID, Nodes: f.Nodes, Connections: f.Connections}
}

func (f CallFrame) clone() CallFrame {
	out := f
	out.Nodes = make(map[string]Node, len(f.Nodes))
	for k, v := range f.Nodes {
		out.Nodes[k] = v
	}
	out.Connections = append([]Connection(nil), f.Connections...)
	out.ExecutionPath = append([]string(nil), f.ExecutionPath...)
	return out
}

// ResponseCandidate is a dialogue response offered to the host.
type ResponseCandidate struct {
	ID    string       `json:"id"`
	Text  string       `json:"text"`
	Valid bool         `json:"valid"`
	Rules []RuleResult `json:"rules,omitempty"`
}

// State represents the execution record of one debugging session.
// Engine operations never mutate a State in place; they return a new one.
type State struct {
	SessionID    string `json:"session_id"`
	StartGraphID string `json:"start_graph_id"`
	StartNodeID  string `json:"start_node_id"`

	// GraphID is the graph currently executing.
	GraphID string `json:"graph_id"`
	// CurrentNodeID is the node evaluated by the next step. It is empty right
	// after entering another graph, until that graph's entry is resolved.
	CurrentNodeID string `json:"current_node_id"`

	Status   ExecutionStatus `json:"status"`
	ViewMode ViewMode        `json:"view_mode"`

	Variables     map[string]Variable `json:"variables"`
	Console       []ConsoleEntry      `json:"console"`
	History       []HistoryEntry      `json:"history"`
	ExecutionPath []string            `json:"execution_path"`
	Snapshots     []Snapshot          `json:"-"`

	StepCount int `json:"step_count"`
	MaxSteps  int `json:"max_steps"`

	CallStack   []CallFrame           `json:"call_stack"`
	Breakpoints map[string]*Condition `json:"breakpoints"`

	PendingChoices []ResponseCandidate `json:"pending_choices,omitempty"`
	ErroredNodes   []string            `json:"errored_nodes,omitempty"`
}

// NewState creates a clean paused state positioned on startNodeID of graphID.
func NewState(sessionID, graphID, startNodeID string, vars map[string]Variable) *State {
	s := &State{
		SessionID:     sessionID,
		StartGraphID:  graphID,
		StartNodeID:   startNodeID,
		GraphID:       graphID,
		CurrentNodeID: startNodeID,
		Status:        StatusPaused,
		ViewMode:      ViewAnalysis,
		Variables:     CloneVariables(vars),
		MaxSteps:      DefaultMaxSteps,
		Breakpoints:   make(map[string]*Condition),
	}
	if startNodeID != "" {
		s.ExecutionPath = []string{startNodeID}
	}
	return s
}

// Clone creates a deep copy of the state, snapshot stack included.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = CloneVariables(s.Variables)
	next.Console = append([]ConsoleEntry(nil), s.Console...)
	next.History = append([]HistoryEntry(nil), s.History...)
	next.ExecutionPath = append([]string(nil), s.ExecutionPath...)
	next.Snapshots = append([]Snapshot(nil), s.Snapshots...)
	next.CallStack = cloneCallStack(s.CallStack)
	next.Breakpoints = cloneBreakpoints(s.Breakpoints)
	next.PendingChoices = append([]ResponseCandidate(nil), s.PendingChoices...)
	next.ErroredNodes = append([]string(nil), s.ErroredNodes...)
	return &next
}

// Terminated reports whether the session reached a sink state.
func (s *State) Terminated() bool {
	return s.Status == StatusFinished
}

// Log appends a console entry tagged with the current position.
func (s *State) Log(sev Severity, nodeID, format string, args ...any) {
	s.Console = append(s.Console, ConsoleEntry{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		NodeID:   nodeID,
		GraphID:  s.GraphID,
		Step:     s.StepCount,
	})
}

// LogRules appends a console entry carrying per-rule detail.
func (s *State) LogRules(sev Severity, nodeID string, rules []RuleResult, format string, args ...any) {
	s.Log(sev, nodeID, format, args...)
	s.Console[len(s.Console)-1].Rules = append([]RuleResult(nil), rules...)
}

// MarkErrored flags nodeID as errored for display, once.
func (s *State) MarkErrored(nodeID string) {
	for _, id := range s.ErroredNodes {
		if id == nodeID {
			return
		}
	}
	s.ErroredNodes = append(s.ErroredNodes, nodeID)
}

// BreakpointAt returns the guard of a breakpoint on nodeID, and whether one exists.
func (s *State) BreakpointAt(nodeID string) (*Condition, bool) {
	cond, ok := s.Breakpoints[nodeID]
	return cond, ok
}

func cloneCallStack(src []CallFrame) []CallFrame {
	if src == nil {
		return nil
	}
	out := make([]CallFrame, len(src))
	for i, f := range src {
		out[i] = f.clone()
	}
	return out
}

func cloneBreakpoints(src map[string]*Condition) map[string]*Condition {
	out := make(map[string]*Condition, len(src))
	for id, cond := range src {
		if cond == nil {
			out[id] = nil
			continue
		}
		c := *cond
		c.Rules = append([]Rule(nil), cond.Rules...)
		out[id] = &c
	}
	return out
}
