package workflows

import "fmt"

// Certificate request statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusIssued   = "issued"
)

// StateMachine enforces certificate request status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a new state machine with allowed transitions
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			StatusPending:  {StatusAccepted, StatusRejected},
			StatusAccepted: {StatusRejected, StatusIssued}, // issued only via the issuance step
			StatusRejected: {StatusAccepted},
			StatusIssued:   {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// IsDecision reports whether status is one an organization may set directly.
func IsDecision(status string) bool {
	return status == StatusAccepted || status == StatusRejected
}

// IsTerminal reports whether no further transition leaves status.
func (sm *StateMachine) IsTerminal(status string) bool {
	allowed, exists := sm.allowedTransitions[status]
	return exists && len(allowed) == 0
}

// Decide validates an organization decision on a request currently in from.
// Re-deciding to the same status is accepted so the update stays idempotent.
func (sm *StateMachine) Decide(from, to string) error {
	if !IsDecision(to) {
		return fmt.Errorf("%q is not a decision", to)
	}
	if from == to {
		return nil
	}
	if !sm.CanTransition(from, to) {
		return fmt.Errorf("cannot move request from %s to %s", from, to)
	}
	return nil
}
