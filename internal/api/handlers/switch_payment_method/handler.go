package switch_payment_method

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers"
	switchPaymentMethod "github.com/m04kA/SMC-ReservationService/internal/usecase/switch_payment_method"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidInput       = "некорректный код бронирования или способ оплаты"
	msgNotFound           = "бронирование не найдено"
	msgInvalidState       = "способ оплаты можно сменить только до оплаты"
	msgChannelNotEligible = "канал продаж не допускает оплату наличными"
	msgOrderMember        = "бронирование оплачивается в составе заказа"
	msgIllegalTransition  = "бронирование нельзя перевести на оплату наличными"
	msgConflict           = "бронирование было изменено, повторите запрос"
)

type Handler struct {
	useCase SwitchPaymentMethodUseCase
	logger  Logger
}

func NewHandler(useCase SwitchPaymentMethodUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{code}/payment-method
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req SwitchRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/{code}/payment-method - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(code))
	if err != nil {
		switch {
		case errors.Is(err, switchPaymentMethod.ErrInvalidInput):
			h.logger.Warn("PATCH /bookings/{code}/payment-method - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, switchPaymentMethod.ErrBookingNotFound):
			h.logger.Warn("PATCH /bookings/{code}/payment-method - Booking not found: code=%s", code)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, switchPaymentMethod.ErrInvalidState):
			h.logger.Warn("PATCH /bookings/{code}/payment-method - Invalid state: code=%s", code)
			handlers.RespondUnprocessable(w, msgInvalidState)

		case errors.Is(err, switchPaymentMethod.ErrChannelNotEligible):
			h.logger.Warn("PATCH /bookings/{code}/payment-method - Channel not eligible: code=%s", code)
			handlers.RespondUnprocessable(w, msgChannelNotEligible)

		case errors.Is(err, switchPaymentMethod.ErrOrderMember):
			h.logger.Warn("PATCH /bookings/{code}/payment-method - Order member: code=%s", code)
			handlers.RespondUnprocessable(w, msgOrderMember)

		case errors.Is(err, switchPaymentMethod.ErrIllegalTransition):
			h.logger.Warn("PATCH /bookings/{code}/payment-method - Illegal transition: %v", err)
			handlers.RespondConflict(w, msgIllegalTransition)

		case errors.Is(err, switchPaymentMethod.ErrConcurrentModification):
			h.logger.Warn("PATCH /bookings/{code}/payment-method - Concurrent modification: code=%s", code)
			handlers.RespondConflict(w, msgConflict)

		default:
			h.logger.Error("PATCH /bookings/{code}/payment-method - Failed to switch method: code=%s, error=%v", code, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/{code}/payment-method - code=%s, method=%s, changed=%t",
		result.Booking.Code, result.Booking.PaymentMethod, result.Changed)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
