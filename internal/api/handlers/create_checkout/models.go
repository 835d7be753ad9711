package create_checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/bookings/models"
	createCheckout "github.com/m04kA/SMC-ReservationService/internal/usecase/create_checkout"
)

// CheckoutItemRequest позиция корзины
type CheckoutItemRequest struct {
	ServiceID        int64           `json:"serviceId"`
	VehicleID        *int64          `json:"vehicleId,omitempty"`
	Municipality     string          `json:"municipality"`
	ScheduledAt      *time.Time      `json:"scheduledAt,omitempty"` // RFC 3339
	AllyDiscount     decimal.Decimal `json:"allyDiscount"`
	AdditionalsTotal decimal.Decimal `json:"additionalsTotal"`
}

// CheckoutRequest HTTP request model
type CheckoutRequest struct {
	Items         []CheckoutItemRequest `json:"items"`
	Channel       string                `json:"channel"`
	PaymentMethod string                `json:"paymentMethod,omitempty"`
	CustomerEmail string                `json:"customerEmail"`
}

// CheckoutResponse HTTP response model: booking для одной позиции, order для нескольких
type CheckoutResponse struct {
	Kind    string                  `json:"kind"`
	Code    string                  `json:"code"`
	Booking *models.BookingResponse `json:"booking,omitempty"`
	Order   *models.OrderResponse   `json:"order,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CheckoutRequest) ToUseCaseRequest() *createCheckout.Request {
	items := make([]createCheckout.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = createCheckout.Item{
			ServiceID:        it.ServiceID,
			VehicleID:        it.VehicleID,
			Municipality:     it.Municipality,
			ScheduledAt:      it.ScheduledAt,
			AllyDiscount:     it.AllyDiscount,
			AdditionalsTotal: it.AdditionalsTotal,
		}
	}

	return &createCheckout.Request{
		Items:         items,
		Channel:       r.Channel,
		Method:        domain.PaymentMethod(r.PaymentMethod),
		CustomerEmail: r.CustomerEmail,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createCheckout.Response) *CheckoutResponse {
	return &CheckoutResponse{
		Kind:    string(resp.Kind),
		Code:    resp.Code(),
		Booking: models.FromDomainBooking(resp.Booking),
		Order:   models.FromDomainOrder(resp.Order),
	}
}
