package create_checkout

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers"
	createCheckout "github.com/m04kA/SMC-ReservationService/internal/usecase/create_checkout"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidInput       = "некорректные данные корзины"
	msgServiceNotFound    = "услуга не найдена"
	msgVehicleNotFound    = "тип транспорта не найден"
	msgServiceInactive    = "услуга недоступна для заказа"
	msgChannelNotEligible = "канал продаж не допускает оплату наличными"
)

type Handler struct {
	useCase CreateCheckoutUseCase
	logger  Logger
}

func NewHandler(useCase CreateCheckoutUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/checkout
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /checkout - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest())
	if err != nil {
		switch {
		case errors.Is(err, createCheckout.ErrInvalidInput):
			h.logger.Warn("POST /checkout - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, createCheckout.ErrServiceNotFound):
			h.logger.Warn("POST /checkout - Service not found: %v", err)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, createCheckout.ErrVehicleNotFound):
			h.logger.Warn("POST /checkout - Vehicle not found: %v", err)
			handlers.RespondNotFound(w, msgVehicleNotFound)

		case errors.Is(err, createCheckout.ErrServiceInactive):
			h.logger.Warn("POST /checkout - Service inactive: %v", err)
			handlers.RespondUnprocessable(w, msgServiceInactive)

		case errors.Is(err, createCheckout.ErrChannelNotEligible):
			h.logger.Warn("POST /checkout - Channel not eligible: channel=%s", req.Channel)
			handlers.RespondUnprocessable(w, msgChannelNotEligible)

		default:
			h.logger.Error("POST /checkout - Failed to create checkout: error=%v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /checkout - Created %s %s", result.Kind, result.Code())
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
