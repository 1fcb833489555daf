package domain

// MaxSnapshots caps the undo stack; the oldest snapshot is dropped on overflow.
const MaxSnapshots = 50

// Snapshot is a structural copy of the mutable fields of a State, taken right
// before a transition so that StepBack restores it exactly.
type Snapshot struct {
	GraphID        string
	CurrentNodeID  string
	Status         ExecutionStatus
	Variables      map[string]Variable
	Console        []ConsoleEntry
	History        []HistoryEntry
	ExecutionPath  []string
	StepCount      int
	CallStack      []CallFrame
	Breakpoints    map[string]*Condition
	PendingChoices []ResponseCandidate
	ErroredNodes   []string
}

// PushSnapshot returns a copy of s whose snapshot stack holds the current
// position on top.
func (s *State) PushSnapshot() *State {
	next := s.Clone()
	snap := Snapshot{
		GraphID:        s.GraphID,
		CurrentNodeID:  s.CurrentNodeID,
		Status:         s.Status,
		Variables:      CloneVariables(s.Variables),
		Console:        append([]ConsoleEntry(nil), s.Console...),
		History:        append([]HistoryEntry(nil), s.History...),
		ExecutionPath:  append([]string(nil), s.ExecutionPath...),
		StepCount:      s.StepCount,
		CallStack:      cloneCallStack(s.CallStack),
		Breakpoints:    cloneBreakpoints(s.Breakpoints),
		PendingChoices: append([]ResponseCandidate(nil), s.PendingChoices...),
		ErroredNodes:   append([]string(nil), s.ErroredNodes...),
	}
	next.Snapshots = append(next.Snapshots, snap)
	if over := len(next.Snapshots) - MaxSnapshots; over > 0 {
		next.Snapshots = append([]Snapshot(nil), next.Snapshots[over:]...)
	}
	return next
}

// PopSnapshot restores the most recent snapshot. It returns ErrNoHistory when
// the stack is empty.
func (s *State) PopSnapshot() (*State, error) {
	if s == nil || len(s.Snapshots) == 0 {
		return nil, ErrNoHistory
	}
	top := s.Snapshots[len(s.Snapshots)-1]

	next := s.Clone()
	next.Snapshots = next.Snapshots[:len(next.Snapshots)-1]
	if len(next.Snapshots) == 0 {
		next.Snapshots = nil
	}
	next.GraphID = top.GraphID
	next.CurrentNodeID = top.CurrentNodeID
	next.Status = top.Status
	next.Variables = CloneVariables(top.Variables)
	next.Console = append([]ConsoleEntry(nil), top.Console...)
	next.History = append([]HistoryEntry(nil), top.History...)
	next.ExecutionPath = append([]string(nil), top.ExecutionPath...)
	next.StepCount = top.StepCount
	next.CallStack = cloneCallStack(top.CallStack)
	next.Breakpoints = cloneBreakpoints(top.Breakpoints)
	next.PendingChoices = append([]ResponseCandidate(nil), top.PendingChoices...)
	next.ErroredNodes = append([]string(nil), top.ErroredNodes...)
	return next, nil
}

// CanStepBack reports whether there is a snapshot to restore.
func (s *State) CanStepBack() bool {
	return s != nil && len(s.Snapshots) > 0
}
