package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order groups several bookings under one payment
type Order struct {
	ID            uuid.UUID
	Code          string
	PaymentState  PaymentState
	TotalPrice    decimal.Decimal // provider-inclusive sum of member totals
	Currency      string
	Signature     string
	TransactionID *string
	CustomerEmail string

	Bookings []*Booking

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MembersTotal returns the sum of member booking totals
func (o *Order) MembersTotal() decimal.Decimal {
	total := decimal.Zero
	for _, b := range o.Bookings {
		total = total.Add(b.Breakdown.Total)
	}
	return total
}
