package domain

// LifecycleState is the lifecycle state of a reservation
type LifecycleState string

const (
	StatePendingQuote               LifecycleState = "PENDING_QUOTE"
	StateConfirmedPendingPayment    LifecycleState = "CONFIRMED_PENDING_PAYMENT"
	StatePaidPendingAssignment      LifecycleState = "PAID_PENDING_ASSIGNMENT"
	StateConfirmedPendingAssignment LifecycleState = "CONFIRMED_PENDING_ASSIGNMENT"
	StateAssignedPendingCompletion  LifecycleState = "ASSIGNED_PENDING_COMPLETION"
	StateCompleted                  LifecycleState = "COMPLETED"
	StateCancelled                  LifecycleState = "CANCELLED"
)

// AllLifecycleStates lists every lifecycle state
var AllLifecycleStates = []LifecycleState{
	StatePendingQuote,
	StateConfirmedPendingPayment,
	StatePaidPendingAssignment,
	StateConfirmedPendingAssignment,
	StateAssignedPendingCompletion,
	StateCompleted,
	StateCancelled,
}

// transitions is the adjacency of the reservation state machine.
// CONFIRMED_PENDING_ASSIGNMENT is the branch used by cash payments.
var transitions = map[LifecycleState][]LifecycleState{
	StatePendingQuote:               {StateConfirmedPendingPayment, StateCancelled},
	StateConfirmedPendingPayment:    {StatePaidPendingAssignment, StateConfirmedPendingAssignment, StateCancelled},
	StatePaidPendingAssignment:      {StateAssignedPendingCompletion, StateCancelled},
	StateConfirmedPendingAssignment: {StateAssignedPendingCompletion, StateCancelled},
	StateAssignedPendingCompletion:  {StateCompleted, StateCancelled},
	StateCompleted:                  {},
	StateCancelled:                  {},
}

// CanTransition reports whether the edge from -> to exists
func CanTransition(from, to LifecycleState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStates returns the states reachable from s in one step
func NextStates(s LifecycleState) []LifecycleState {
	next := transitions[s]
	out := make([]LifecycleState, len(next))
	copy(out, next)
	return out
}

// IsValid returns true for a known lifecycle state
func (s LifecycleState) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal returns true for COMPLETED and CANCELLED
func (s LifecycleState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}
