// Package notifications ставит уведомления о переходах состояний в outbox.
package notifications

import (
	"context"
	"encoding/json"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// Dispatcher ставит в outbox событие о каждом применённом переходе.
// Ошибки постановки логируются и не возвращаются: уведомление не должно откатывать переход
type Dispatcher struct {
	outbox  OutboxRepository
	metrics Metrics
	logger  Logger
}

func NewDispatcher(outbox OutboxRepository, metrics Metrics, logger Logger) *Dispatcher {
	return &Dispatcher{
		outbox:  outbox,
		metrics: metrics,
		logger:  logger,
	}
}

// TransitionApplied вызывается внутри транзакции, применившей переход
func (d *Dispatcher) TransitionApplied(ctx context.Context, ev domain.TransitionEvent) {
	b := ev.Booking

	payload, err := json.Marshal(StateChangedPayload{
		BookingID:     b.ID,
		BookingCode:   b.Code,
		OrderCode:     ev.OrderCode,
		PreviousState: string(ev.PreviousState),
		NewState:      string(ev.NewState),
		Source:        string(ev.Source),
		PaymentState:  string(b.PaymentState),
		PaymentMethod: string(b.PaymentMethod),
		Total:         b.Breakdown.Total,
		Currency:      b.Currency,
		CustomerEmail: b.CustomerEmail,
		OccurredAt:    ev.OccurredAt.UTC(),
	})
	if err != nil {
		d.fail(b.Code, ev, err)
		return
	}

	msg := &domain.OutboxMessage{
		BookingID:     b.ID,
		BookingCode:   b.Code,
		OrderCode:     ev.OrderCode,
		EventType:     EventStateChanged,
		PreviousState: ev.PreviousState,
		NewState:      ev.NewState,
		Payload:       payload,
		Status:        domain.OutboxPending,
		NextAttemptAt: ev.OccurredAt,
	}

	if err := d.outbox.Enqueue(ctx, msg); err != nil {
		d.fail(b.Code, ev, err)
		return
	}

	d.logger.Info("TransitionApplied: queued notification id=%s booking=%s %s -> %s (source=%s)",
		msg.ID, b.Code, ev.PreviousState, ev.NewState, ev.Source)
}

func (d *Dispatcher) fail(code string, ev domain.TransitionEvent, err error) {
	d.metrics.IncNotificationFailure()
	d.logger.Error("TransitionApplied: failed to queue notification booking=%s %s -> %s: %v",
		code, ev.PreviousState, ev.NewState, err)
}
