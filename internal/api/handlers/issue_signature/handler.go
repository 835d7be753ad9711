package issue_signature

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ReservationService/internal/service/bookings/models"
)

const (
	msgInvalidInput    = "укажите ровно один параметр: bookingId или orderId"
	msgBookingNotFound = "бронирование не найдено"
	msgOrderNotFound   = "заказ не найден"
	msgNotPayable      = "бронирование недоступно для оплаты"
)

type Handler struct {
	service SignatureService
	logger  Logger
}

func NewHandler(service SignatureService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/payments/signature?bookingId=&orderId=
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &models.IssueSignatureRequest{}
	if query.Has("bookingId") {
		v := query.Get("bookingId")
		req.BookingID = &v
	}
	if query.Has("orderId") {
		v := query.Get("orderId")
		req.OrderID = &v
	}

	resp, err := h.service.IssueSignature(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("GET /payments/signature - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("GET /payments/signature - Booking not found")
			handlers.RespondNotFound(w, msgBookingNotFound)

		case errors.Is(err, bookings.ErrOrderNotFound):
			h.logger.Warn("GET /payments/signature - Order not found")
			handlers.RespondNotFound(w, msgOrderNotFound)

		case errors.Is(err, bookings.ErrNotPayable):
			h.logger.Warn("GET /payments/signature - Not payable: %v", err)
			handlers.RespondUnprocessable(w, msgNotPayable)

		default:
			h.logger.Error("GET /payments/signature - Failed to issue signature: error=%v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /payments/signature - Signature issued: order_code=%s", resp.OrderCode)
	handlers.RespondJSON(w, http.StatusOK, resp)
}
