package reconcile_payment

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// Request входные данные колбэка провайдера, уже разобранные на границе
type Request struct {
	Target         domain.AggregateRef
	ProviderStatus string
	TransactionID  *string
	ReportedAmount *decimal.Decimal
	Currency       *string
}

// Outcome итог сверки
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"
	OutcomeIgnored Outcome = "ignored" // неизвестный статус провайдера
)

// Transition применённый переход бронирования
type Transition struct {
	BookingCode string               `json:"booking_code"`
	From        domain.LifecycleState `json:"from"`
	To          domain.LifecycleState `json:"to"`
}

// Discrepancy переход, который не удалось применить. Требует внимания оператора
type Discrepancy struct {
	BookingCode string               `json:"booking_code"`
	From        domain.LifecycleState `json:"from"`
	To          domain.LifecycleState `json:"to"`
	Reason      string               `json:"reason"`
}

// Result итог сверки
type Result struct {
	Kind           domain.AggregateKind
	Code           string
	PaymentState   domain.PaymentState
	Outcome        Outcome
	Transitions    []Transition
	Discrepancies  []Discrepancy
	AmountMismatch bool
}
