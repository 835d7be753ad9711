package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// Request модели

// IssueSignatureRequest запрос подписи для оплаты: ровно один из идентификаторов
type IssueSignatureRequest struct {
	BookingID *string `json:"bookingId,omitempty"`
	OrderID   *string `json:"orderId,omitempty"`
}

// Response модели

// BreakdownResponse денежная разбивка бронирования
type BreakdownResponse struct {
	BasePrice           decimal.Decimal `json:"basePrice"`
	VehiclePrice        decimal.Decimal `json:"vehiclePrice"`
	AdditionalsTotal    decimal.Decimal `json:"additionalsTotal"`
	MunicipalityFee     decimal.Decimal `json:"municipalityFee"`
	NightSurcharge      decimal.Decimal `json:"nightSurcharge"`
	AllyDiscount        decimal.Decimal `json:"allyDiscount"`
	Commission          decimal.Decimal `json:"commission"`
	Total               decimal.Decimal `json:"total"`
	RequiresManualQuote bool            `json:"requiresManualQuote"`
}

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Code                  string     `json:"code"`
	OrderID               *uuid.UUID `json:"orderId,omitempty"`
	State                 string     `json:"state"`
	PaymentState          string     `json:"paymentState"`
	PaymentMethod         string     `json:"paymentMethod"`
	Channel               string     `json:"channel"`
	ManualPaymentEligible bool       `json:"manualPaymentEligible"`

	ServiceID    int64      `json:"serviceId"`
	ServiceName  string     `json:"serviceName"`
	VehicleID    *int64     `json:"vehicleId,omitempty"`
	Municipality string     `json:"municipality"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`

	Breakdown BreakdownResponse `json:"breakdown"`
	Currency  string            `json:"currency"`
	Signature string            `json:"signature"`

	TransactionID *string `json:"transactionId,omitempty"`
	CustomerEmail string  `json:"customerEmail"`

	CancellationReason *string `json:"cancellationReason,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"` // ISO 8601 format

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderResponse ответ с данными заказа и его бронированиями
type OrderResponse struct {
	ID            uuid.UUID         `json:"id"`
	Code          string            `json:"code"`
	PaymentState  string            `json:"paymentState"`
	TotalPrice    decimal.Decimal   `json:"totalPrice"`
	Currency      string            `json:"currency"`
	Signature     string            `json:"signature"`
	TransactionID *string           `json:"transactionId,omitempty"`
	CustomerEmail string            `json:"customerEmail"`
	Bookings      []BookingResponse `json:"bookings"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// SignatureResponse данные для формы оплаты у провайдера
type SignatureResponse struct {
	OrderCode     string          `json:"orderCode"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Signature     string          `json:"signature"`
	IntegrityMode string          `json:"integrityMode"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	resp := &BookingResponse{
		ID:                    b.ID,
		Code:                  b.Code,
		OrderID:               b.OrderID,
		State:                 string(b.State),
		PaymentState:          string(b.PaymentState),
		PaymentMethod:         string(b.PaymentMethod),
		Channel:               b.Channel,
		ManualPaymentEligible: b.ManualPaymentEligible,
		ServiceID:             b.ServiceID,
		ServiceName:           b.ServiceName,
		VehicleID:             b.VehicleID,
		Municipality:          b.Municipality,
		ScheduledAt:           b.ScheduledAt,
		Breakdown:             fromDomainBreakdown(b.Breakdown),
		Currency:              b.Currency,
		Signature:             b.Signature,
		TransactionID:         b.TransactionID,
		CustomerEmail:         b.CustomerEmail,
		CancellationReason:    b.CancellationReason,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}

	// Конвертируем CancelledAt в строку ISO 8601
	if b.CancelledAt != nil {
		cancelledStr := b.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &cancelledStr
	}

	return resp
}

// FromDomainOrder конвертирует заказ вместе с бронированиями
func FromDomainOrder(o *domain.Order) *OrderResponse {
	if o == nil {
		return nil
	}

	resp := &OrderResponse{
		ID:            o.ID,
		Code:          o.Code,
		PaymentState:  string(o.PaymentState),
		TotalPrice:    o.TotalPrice,
		Currency:      o.Currency,
		Signature:     o.Signature,
		TransactionID: o.TransactionID,
		CustomerEmail: o.CustomerEmail,
		Bookings:      make([]BookingResponse, 0, len(o.Bookings)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	for _, b := range o.Bookings {
		if bookingResp := FromDomainBooking(b); bookingResp != nil {
			resp.Bookings = append(resp.Bookings, *bookingResp)
		}
	}

	return resp
}

func fromDomainBreakdown(b domain.Breakdown) BreakdownResponse {
	return BreakdownResponse{
		BasePrice:           b.BasePrice,
		VehiclePrice:        b.VehiclePrice,
		AdditionalsTotal:    b.AdditionalsTotal,
		MunicipalityFee:     b.MunicipalityFee,
		NightSurcharge:      b.NightSurcharge,
		AllyDiscount:        b.AllyDiscount,
		Commission:          b.Commission,
		Total:               b.Total,
		RequiresManualQuote: b.RequiresManualQuote,
	}
}
