package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionSource identifies the operation that applied a lifecycle transition
type TransitionSource string

const (
	SourceReconciler   TransitionSource = "payment_reconciler"
	SourceMethodSwitch TransitionSource = "payment_method_switch"
	SourceAdmin        TransitionSource = "admin"
)

// TransitionEvent is emitted for every applied lifecycle transition
type TransitionEvent struct {
	Booking       *Booking
	OrderCode     *string
	PreviousState LifecycleState
	NewState      LifecycleState
	Source        TransitionSource
	OccurredAt    time.Time
}

// OutboxStatus delivery status of an outbox message
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxDead    OutboxStatus = "dead"
)

// OutboxMessage is a notification waiting for delivery to the broker
type OutboxMessage struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	BookingCode   string
	OrderCode     *string
	EventType     string
	PreviousState LifecycleState
	NewState      LifecycleState
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     *string
	CreatedAt     time.Time
	SentAt        *time.Time
}
