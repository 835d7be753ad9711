package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_Adjacency(t *testing.T) {
	legal := []struct{ from, to LifecycleState }{
		{StatePendingQuote, StateConfirmedPendingPayment},
		{StatePendingQuote, StateCancelled},
		{StateConfirmedPendingPayment, StatePaidPendingAssignment},
		{StateConfirmedPendingPayment, StateConfirmedPendingAssignment},
		{StateConfirmedPendingPayment, StateCancelled},
		{StatePaidPendingAssignment, StateAssignedPendingCompletion},
		{StatePaidPendingAssignment, StateCancelled},
		{StateConfirmedPendingAssignment, StateAssignedPendingCompletion},
		{StateConfirmedPendingAssignment, StateCancelled},
		{StateAssignedPendingCompletion, StateCompleted},
		{StateAssignedPendingCompletion, StateCancelled},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct{ from, to LifecycleState }{
		{StatePendingQuote, StatePaidPendingAssignment},
		{StateConfirmedPendingAssignment, StateConfirmedPendingPayment},
		{StatePaidPendingAssignment, StateCompleted},
		{StateCompleted, StateCancelled},
		{StateCancelled, StateConfirmedPendingPayment},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransition_NoSelfLoopsAndTerminalClosure(t *testing.T) {
	for _, s := range AllLifecycleStates {
		assert.False(t, CanTransition(s, s), "self loop on %s", s)
	}

	for _, terminal := range []LifecycleState{StateCompleted, StateCancelled} {
		assert.True(t, terminal.IsTerminal())
		assert.Empty(t, NextStates(terminal))
		for _, to := range AllLifecycleStates {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestLifecycleState_IsValid(t *testing.T) {
	assert.True(t, StateConfirmedPendingAssignment.IsValid())
	assert.False(t, LifecycleState("SHIPPED").IsValid())
}

func TestBooking_CancellationAllowed(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	in := func(d time.Duration) *time.Time {
		at := now.Add(d)
		return &at
	}

	tests := []struct {
		name    string
		booking Booking
		want    bool
	}{
		{"quote stage is never time gated", Booking{State: StatePendingQuote, ScheduledAt: in(time.Hour)}, true},
		{"no schedule", Booking{State: StateConfirmedPendingPayment}, true},
		{"more than 24h ahead", Booking{State: StatePaidPendingAssignment, ScheduledAt: in(25 * time.Hour)}, true},
		{"exactly 24h ahead", Booking{State: StatePaidPendingAssignment, ScheduledAt: in(24 * time.Hour)}, false},
		{"within 24h", Booking{State: StateConfirmedPendingPayment, ScheduledAt: in(3 * time.Hour)}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.booking.CancellationAllowed(now))
		})
	}
}
