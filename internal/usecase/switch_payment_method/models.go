package switch_payment_method

import "github.com/m04kA/SMC-ReservationService/internal/domain"

// Request запрос на смену способа оплаты
type Request struct {
	BookingCode string
	Method      domain.PaymentMethod
}

// Response обновлённое бронирование
type Response struct {
	Booking *domain.Booking
	Changed bool // false для повторного запроса с тем же способом
}
