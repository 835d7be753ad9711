package payment_callback

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ReservationService/internal/domain"
	reconcilePayment "github.com/m04kA/SMC-ReservationService/internal/usecase/reconcile_payment"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidOrderID     = "некорректный order_id"
	msgInvalidInput       = "некорректные данные колбэка"
	msgNotFound           = "бронирование или заказ не найдены"
	msgBusy               = "платёж обрабатывается, повторите запрос позже"
)

type Handler struct {
	useCase ReconcilePaymentUseCase
	logger  Logger
}

func NewHandler(useCase ReconcilePaymentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/payments/webhook
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /payments/webhook - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	ref, err := domain.ParseAggregateRef(req.OrderID)
	if err != nil {
		h.logger.Warn("POST /payments/webhook - Invalid order_id %q: %v", req.OrderID, err)
		handlers.RespondBadRequest(w, msgInvalidOrderID)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(ref))
	if err != nil {
		switch {
		case errors.Is(err, reconcilePayment.ErrInvalidInput):
			h.logger.Warn("POST /payments/webhook - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, domain.ErrNotFound):
			h.logger.Warn("POST /payments/webhook - Aggregate not found: %s", ref.Code)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, reconcilePayment.ErrAggregateBusy):
			h.logger.Warn("POST /payments/webhook - Aggregate busy: %s", ref.Code)
			w.Header().Set("Retry-After", "1")
			handlers.RespondServiceUnavailable(w, msgBusy)

		default:
			h.logger.Error("POST /payments/webhook - Failed to reconcile %s: error=%v", ref.Code, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /payments/webhook - %s %s reconciled: outcome=%s, payment=%s, transitions=%d, discrepancies=%d",
		result.Kind, result.Code, result.Outcome, result.PaymentState, len(result.Transitions), len(result.Discrepancies))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResult(result))
}
