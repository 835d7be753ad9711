package payment_callback

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	reconcilePayment "github.com/m04kA/SMC-ReservationService/internal/usecase/reconcile_payment"
)

// WebhookRequest тело колбэка провайдера. order_id содержит код бронирования или заказа
type WebhookRequest struct {
	OrderID       string           `json:"order_id"`
	PaymentStatus string           `json:"payment_status"`
	TransactionID *string          `json:"transaction_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
}

// WebhookResponse итог сверки для провайдера и оператора
type WebhookResponse struct {
	Kind           string                         `json:"kind"`
	Code           string                         `json:"code"`
	PaymentState   string                         `json:"payment_state"`
	Outcome        string                         `json:"outcome"`
	Transitions    []reconcilePayment.Transition  `json:"transitions"`
	Discrepancies  []reconcilePayment.Discrepancy `json:"discrepancies"`
	AmountMismatch bool                           `json:"amount_mismatch"`
}

// ToUseCaseRequest конвертирует тело колбэка в модель use case
func (r *WebhookRequest) ToUseCaseRequest(ref domain.AggregateRef) *reconcilePayment.Request {
	return &reconcilePayment.Request{
		Target:         ref,
		ProviderStatus: r.PaymentStatus,
		TransactionID:  r.TransactionID,
		ReportedAmount: r.Amount,
		Currency:       r.Currency,
	}
}

// FromUseCaseResult конвертирует результат сверки в HTTP response
func FromUseCaseResult(res *reconcilePayment.Result) *WebhookResponse {
	resp := &WebhookResponse{
		Kind:           string(res.Kind),
		Code:           res.Code,
		PaymentState:   string(res.PaymentState),
		Outcome:        string(res.Outcome),
		Transitions:    res.Transitions,
		Discrepancies:  res.Discrepancies,
		AmountMismatch: res.AmountMismatch,
	}
	if resp.Transitions == nil {
		resp.Transitions = []reconcilePayment.Transition{}
	}
	if resp.Discrepancies == nil {
		resp.Discrepancies = []reconcilePayment.Discrepancy{}
	}
	return resp
}
