package create_checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// Item позиция корзины
type Item struct {
	ServiceID        int64
	VehicleID        *int64
	Municipality     string
	ScheduledAt      *time.Time
	AllyDiscount     decimal.Decimal
	AdditionalsTotal decimal.Decimal
}

// Request запрос на оформление корзины
type Request struct {
	Items         []Item
	Channel       string
	Method        domain.PaymentMethod // пустое значение означает PROVIDER
	CustomerEmail string
}

// Response созданное бронирование или заказ (для нескольких позиций)
type Response struct {
	Kind    domain.AggregateKind
	Booking *domain.Booking
	Order   *domain.Order
}

// Code код созданного агрегата
func (r *Response) Code() string {
	if r.Kind == domain.KindOrder {
		return r.Order.Code
	}
	return r.Booking.Code
}
