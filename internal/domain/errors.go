package domain

import "errors"

// Error taxonomy shared by all layers. Layer packages declare their own
// sentinels and wrap one of these, handlers map them with errors.Is.
var (
	// ErrValidation malformed or missing required input
	ErrValidation = errors.New("validation error")

	// ErrNotFound referenced aggregate does not exist
	ErrNotFound = errors.New("not found")

	// ErrIllegalTransition state change not permitted from the current state
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrPreconditionFailed operation attempted outside its eligible state or channel
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrSignatureMismatch presented signature is stale and needs regeneration
	ErrSignatureMismatch = errors.New("signature mismatch")
)
