package transition_state

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers"
	transitionState "github.com/m04kA/SMC-ReservationService/internal/usecase/transition_state"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidInput       = "некорректный код бронирования, состояние или причина"
	msgNotFound           = "бронирование не найдено"
	msgIllegalTransition  = "переход в указанное состояние недопустим"
	msgWindowClosed       = "отмена возможна не позднее чем за 24 часа до начала услуги"
	msgConflict           = "бронирование было изменено, повторите запрос"
)

type Handler struct {
	useCase TransitionStateUseCase
	logger  Logger
}

func NewHandler(useCase TransitionStateUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{code}/state
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req TransitionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/{code}/state - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(code))
	if err != nil {
		switch {
		case errors.Is(err, transitionState.ErrInvalidInput):
			h.logger.Warn("PATCH /bookings/{code}/state - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, transitionState.ErrBookingNotFound):
			h.logger.Warn("PATCH /bookings/{code}/state - Booking not found: code=%s", code)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, transitionState.ErrIllegalTransition):
			h.logger.Warn("PATCH /bookings/{code}/state - Illegal transition: code=%s, target=%s", code, req.State)
			handlers.RespondConflict(w, msgIllegalTransition)

		case errors.Is(err, transitionState.ErrCancellationWindowClosed):
			h.logger.Warn("PATCH /bookings/{code}/state - Cancellation window closed: code=%s", code)
			handlers.RespondUnprocessable(w, msgWindowClosed)

		case errors.Is(err, transitionState.ErrConcurrentModification):
			h.logger.Warn("PATCH /bookings/{code}/state - Concurrent modification: code=%s", code)
			handlers.RespondConflict(w, msgConflict)

		default:
			h.logger.Error("PATCH /bookings/{code}/state - Failed to transition: code=%s, error=%v", code, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/{code}/state - code=%s, %s -> %s",
		result.Booking.Code, result.PreviousState, result.Booking.State)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
