package domain

import "errors"

var (
	// ErrNoHistory is returned by StepBack when the snapshot stack is empty.
	ErrNoHistory = errors.New("no history to step back to")

	// ErrNilState is returned when an operation receives a nil state.
	ErrNilState = errors.New("state is nil")

	// ErrNilGraph is returned when an operation receives a nil graph.
	ErrNilGraph = errors.New("graph is nil")

	// ErrGraphMismatch is returned when the supplied graph is not the one the state is executing.
	ErrGraphMismatch = errors.New("supplied graph does not match the executing graph")

	// ErrNotWaiting is returned when a response is chosen while no choice is pending.
	ErrNotWaiting = errors.New("session is not waiting for a choice")

	// ErrUnknownResponse is returned when the chosen response does not exist on the dialogue.
	ErrUnknownResponse = errors.New("unknown response")

	// ErrUnknownVariable is returned when overriding a variable absent from the store.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInvalidViewMode is returned when switching to an unknown view mode.
	ErrInvalidViewMode = errors.New("invalid view mode")

	// ErrGraphNotFound is returned by loaders when a graph id cannot be resolved.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)
