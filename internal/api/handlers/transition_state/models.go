package transition_state

import (
	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/bookings/models"
	transitionState "github.com/m04kA/SMC-ReservationService/internal/usecase/transition_state"
)

// TransitionRequest HTTP request model
type TransitionRequest struct {
	State  string  `json:"state"`
	Reason *string `json:"reason,omitempty"`
}

// TransitionResponse HTTP response model
type TransitionResponse struct {
	PreviousState string                  `json:"previousState"`
	Booking       *models.BookingResponse `json:"booking"`
}

func (r *TransitionRequest) ToUseCaseRequest(code string) *transitionState.Request {
	return &transitionState.Request{
		BookingCode: code,
		Target:      domain.LifecycleState(r.State),
		Reason:      r.Reason,
	}
}

func FromUseCaseResponse(resp *transitionState.Response) *TransitionResponse {
	return &TransitionResponse{
		PreviousState: string(resp.PreviousState),
		Booking:       models.FromDomainBooking(resp.Booking),
	}
}
