package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentState_CanAdvanceTo(t *testing.T) {
	// Terminal states never regress to a non-terminal one
	for _, terminal := range []PaymentState{PaymentApproved, PaymentRejected} {
		assert.False(t, terminal.CanAdvanceTo(PaymentProcessing), "%s -> PROCESSING", terminal)
		assert.False(t, terminal.CanAdvanceTo(PaymentPending), "%s -> PENDING", terminal)
	}

	assert.False(t, PaymentApproved.CanAdvanceTo(PaymentRejected))
	assert.True(t, PaymentRejected.CanAdvanceTo(PaymentApproved))

	assert.True(t, PaymentPending.CanAdvanceTo(PaymentProcessing))
	assert.True(t, PaymentPending.CanAdvanceTo(PaymentApproved))
	assert.True(t, PaymentProcessing.CanAdvanceTo(PaymentRejected))

	for _, s := range AllPaymentStates {
		assert.False(t, s.CanAdvanceTo(s), "same state %s", s)
	}
}

func TestPaymentPredecessors(t *testing.T) {
	assert.ElementsMatch(t,
		[]PaymentState{PaymentPending, PaymentProcessing, PaymentRejected},
		PaymentPredecessors(PaymentApproved))
	assert.ElementsMatch(t,
		[]PaymentState{PaymentPending, PaymentProcessing},
		PaymentPredecessors(PaymentRejected))
	assert.ElementsMatch(t,
		[]PaymentState{PaymentPending},
		PaymentPredecessors(PaymentProcessing))
	assert.Empty(t, PaymentPredecessors(PaymentPending))
}
