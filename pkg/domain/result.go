package domain

// ResultKind tags the outcome of an engine operation.
type ResultKind string

const (
	ResultAdvanced         ResultKind = "advanced"
	ResultWaitingForChoice ResultKind = "waiting_for_choice"
	ResultEnteredGraph     ResultKind = "entered_graph"
	ResultReturnedToCaller ResultKind = "returned_to_caller"
	ResultFinished         ResultKind = "finished"
	ResultLimitReached     ResultKind = "limit_reached"
	ResultBreakpointHit    ResultKind = "breakpoint_hit"
	ResultError            ResultKind = "error"
)

// Result is the tagged value returned next to the new State.
type Result struct {
	Kind ResultKind `json:"kind"`

	// NodeID is the node the session is positioned on after the operation.
	NodeID string `json:"node_id,omitempty"`

	// GraphID is the graph to supply on the next step when Kind is
	// ResultEnteredGraph or ResultReturnedToCaller.
	GraphID string `json:"graph_id,omitempty"`

	// Candidates holds the responses offered when Kind is ResultWaitingForChoice.
	Candidates []ResponseCandidate `json:"candidates,omitempty"`

	// Reason explains ResultError.
	Reason string `json:"reason,omitempty"`

	// Flagged lists connections that were evaluated but not taken. Display only.
	Flagged []Connection `json:"flagged,omitempty"`
}

// Halts reports whether auto-play must stop after this result.
func (r Result) Halts() bool {
	switch r.Kind {
	case ResultAdvanced, ResultEnteredGraph, ResultReturnedToCaller:
		return false
	default:
		return true
	}
}
