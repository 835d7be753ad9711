package domain

// PaymentState is the payment status, orthogonal to the lifecycle state
type PaymentState string

const (
	PaymentPending    PaymentState = "PENDING"
	PaymentProcessing PaymentState = "PROCESSING"
	PaymentApproved   PaymentState = "APPROVED"
	PaymentRejected   PaymentState = "REJECTED"
)

// AllPaymentStates lists every payment state
var AllPaymentStates = []PaymentState{
	PaymentPending,
	PaymentProcessing,
	PaymentApproved,
	PaymentRejected,
}

// IsTerminal returns true for APPROVED and REJECTED
func (s PaymentState) IsTerminal() bool {
	return s == PaymentApproved || s == PaymentRejected
}

// CanAdvanceTo reports whether a callback may move the payment state from s to next.
//
// APPROVED is never overwritten. REJECTED may only be superseded by APPROVED
// (a retried payment). Non-terminal states are last-writer-wins, but nothing
// regresses to PENDING. Writing the same state again is not an advance.
func (s PaymentState) CanAdvanceTo(next PaymentState) bool {
	if s == next || next == PaymentPending {
		return false
	}
	switch s {
	case PaymentApproved:
		return false
	case PaymentRejected:
		return next == PaymentApproved
	default:
		return true
	}
}

// PaymentPredecessors returns the states from which next may be written.
// Used to build the conditional update in the repositories.
func PaymentPredecessors(next PaymentState) []PaymentState {
	out := make([]PaymentState, 0, len(AllPaymentStates))
	for _, s := range AllPaymentStates {
		if s.CanAdvanceTo(next) {
			out = append(out, s)
		}
	}
	return out
}
