package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/pkg/logger"
	"github.com/m04kA/SMC-ReservationService/pkg/ptr"
)

type fakeOutbox struct {
	msgs []*domain.OutboxMessage
	err  error
}

func (f *fakeOutbox) Enqueue(_ context.Context, msg *domain.OutboxMessage) error {
	if f.err != nil {
		return f.err
	}
	msg.ID = uuid.New()
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeMetrics struct{ failures int }

func (f *fakeMetrics) IncNotificationFailure() { f.failures++ }

func event() domain.TransitionEvent {
	return domain.TransitionEvent{
		Booking: &domain.Booking{
			ID:            uuid.New(),
			Code:          "RESABC123",
			PaymentState:  domain.PaymentApproved,
			PaymentMethod: domain.MethodProvider,
			Currency:      "COP",
			Breakdown:     domain.Breakdown{Total: decimal.NewFromInt(121000)},
		},
		OrderCode:     ptr.Ptr("PEDAAA111"),
		PreviousState: domain.StateConfirmedPendingPayment,
		NewState:      domain.StatePaidPendingAssignment,
		Source:        domain.SourceReconciler,
		OccurredAt:    time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_TransitionApplied(t *testing.T) {
	outbox := &fakeOutbox{}
	m := &fakeMetrics{}
	d := NewDispatcher(outbox, m, logger.NewNop())

	d.TransitionApplied(context.Background(), event())

	require.Len(t, outbox.msgs, 1)
	msg := outbox.msgs[0]
	assert.Equal(t, EventStateChanged, msg.EventType)
	assert.Equal(t, domain.StatePaidPendingAssignment, msg.NewState)
	assert.Equal(t, domain.OutboxPending, msg.Status)
	assert.Equal(t, 0, m.failures)

	var payload StateChangedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "RESABC123", payload.BookingCode)
	assert.Equal(t, "payment_reconciler", payload.Source)
	assert.Equal(t, "APPROVED", payload.PaymentState)
	assert.True(t, decimal.NewFromInt(121000).Equal(payload.Total))
}

func TestDispatcher_SwallowsEnqueueFailure(t *testing.T) {
	m := &fakeMetrics{}
	d := NewDispatcher(&fakeOutbox{err: errors.New("insert failed")}, m, logger.NewNop())

	assert.NotPanics(t, func() { d.TransitionApplied(context.Background(), event()) })
	assert.Equal(t, 1, m.failures)
}

func TestNewEnvelope(t *testing.T) {
	id := uuid.New()
	msg := &domain.OutboxMessage{
		ID:          id,
		BookingCode: "RESABC123",
		OrderCode:   ptr.Ptr("PEDAAA111"),
		EventType:   EventStateChanged,
		Payload:     []byte(`{"booking_code":"RESABC123"}`),
		CreatedAt:   time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC),
	}

	env := NewEnvelope(msg)
	assert.Equal(t, id.String(), env.EventID)
	assert.Equal(t, "PEDAAA111", env.CorrelationID)
	assert.Equal(t, Producer, env.Producer)
	assert.Equal(t, EventVersion, env.EventVersion)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"payload":{"booking_code":"RESABC123"}`)

	msg.OrderCode = nil
	assert.Equal(t, "RESABC123", NewEnvelope(msg).CorrelationID)
}
