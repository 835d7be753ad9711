package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

const (
	EventStateChanged = "reservation.state_changed"
	EventVersion      = 1
	Producer          = "reservation-service"
)

// Envelope конверт события, публикуемого в брокер
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // код заказа, иначе код бронирования
	Payload       json.RawMessage `json:"payload"`
}

// StateChangedPayload полезная нагрузка события смены состояния бронирования
type StateChangedPayload struct {
	BookingID     uuid.UUID       `json:"booking_id"`
	BookingCode   string          `json:"booking_code"`
	OrderCode     *string         `json:"order_code,omitempty"`
	PreviousState string          `json:"previous_state"`
	NewState      string          `json:"new_state"`
	Source        string          `json:"source"`
	PaymentState  string          `json:"payment_state"`
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEnvelope заворачивает сообщение outbox в конверт. EventID совпадает с id сообщения,
// повторная доставка того же сообщения имеет тот же EventID
func NewEnvelope(msg *domain.OutboxMessage) Envelope {
	correlation := msg.BookingCode
	if msg.OrderCode != nil {
		correlation = *msg.OrderCode
	}

	return Envelope{
		EventID:       msg.ID.String(),
		EventType:     msg.EventType,
		EventVersion:  EventVersion,
		OccurredAt:    msg.CreatedAt.UTC(),
		Producer:      Producer,
		CorrelationID: correlation,
		Payload:       json.RawMessage(msg.Payload),
	}
}
