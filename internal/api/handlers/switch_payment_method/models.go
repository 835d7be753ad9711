package switch_payment_method

import (
	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/bookings/models"
	switchPaymentMethod "github.com/m04kA/SMC-ReservationService/internal/usecase/switch_payment_method"
)

// SwitchRequest HTTP request model
type SwitchRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

// SwitchResponse HTTP response model
type SwitchResponse struct {
	Changed bool                    `json:"changed"`
	Booking *models.BookingResponse `json:"booking"`
}

func (r *SwitchRequest) ToUseCaseRequest(code string) *switchPaymentMethod.Request {
	return &switchPaymentMethod.Request{
		BookingCode: code,
		Method:      domain.PaymentMethod(r.PaymentMethod),
	}
}

func FromUseCaseResponse(resp *switchPaymentMethod.Response) *SwitchResponse {
	return &SwitchResponse{
		Changed: resp.Changed,
		Booking: models.FromDomainBooking(resp.Booking),
	}
}
