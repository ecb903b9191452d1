package policy

import "fmt"

// State is where a document is in the analysis lifecycle
type State string

const (
	StatePending    State = "pending"    // Loaded, not yet adjudicated
	StateAnalyzed   State = "analyzed"   // Has a verdict (classifier or fallback)
	StateReported   State = "reported"   // In the output list (terminal)
	StateSuppressed State = "suppressed" // Filtered out (terminal)
)

// IsValid checks if the state value is valid
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateAnalyzed, StateReported, StateSuppressed:
		return true
	}
	return false
}

// ValidTransitions defines the document state machine:
//
//	pending → analyzed → reported
//	   ↓                ↘ suppressed
//	suppressed
//
// A document with no candidates goes straight from pending to suppressed.
// There are no retries within a run, so terminal states have no exits.
func (s State) ValidTransitions() []State {
	switch s {
	case StatePending:
		return []State{StateAnalyzed, StateSuppressed}
	case StateAnalyzed:
		return []State{StateReported, StateSuppressed}
	default:
		return []State{} // Terminal state
	}
}

// CanTransitionTo checks if a transition from this state to the target state is valid
func (s State) CanTransitionTo(target State) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s State) IsTerminal() bool {
	return s == StateReported || s == StateSuppressed
}

// Tracker records the state of every document in one run. Each document is
// owned by a single goroutine, so Tracker slots are written without locks as
// long as callers only touch their own index.
type Tracker struct {
	ids    []string
	states []State
}

// NewTracker starts every document in StatePending
func NewTracker(ids []string) *Tracker {
	states := make([]State, len(ids))
	for i := range states {
		states[i] = StatePending
	}
	return &Tracker{ids: ids, states: states}
}

// Transition moves document i to target, rejecting invalid transitions
func (t *Tracker) Transition(i int, target State) error {
	current := t.states[i]
	if !current.CanTransitionTo(target) {
		return fmt.Errorf("invalid state transition for %s: %s -> %s (valid: %v)",
			t.ids[i], current, target, current.ValidTransitions())
	}
	t.states[i] = target
	return nil
}

// State returns the current state of document i
func (t *Tracker) State(i int) State {
	return t.states[i]
}

// Count returns how many documents are in s
func (t *Tracker) Count(s State) int {
	n := 0
	for _, st := range t.states {
		if st == s {
			n++
		}
	}
	return n
}
