package transition_state

import "github.com/m04kA/SMC-ReservationService/internal/domain"

// Request запрос администратора на смену состояния
type Request struct {
	BookingCode string
	Target      domain.LifecycleState
	Reason      *string
}

// Response результат перехода
type Response struct {
	Booking       *domain.Booking
	PreviousState domain.LifecycleState
}
