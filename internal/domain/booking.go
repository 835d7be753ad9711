package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod describes how a reservation is paid
type PaymentMethod string

const (
	// MethodProvider payment is processed by the external payment gateway
	MethodProvider PaymentMethod = "PROVIDER"
	// MethodCash payment is collected manually (cash / transfer)
	MethodCash PaymentMethod = "CASH"
)

// IsValid returns true for a known payment method
func (m PaymentMethod) IsValid() bool {
	return m == MethodProvider || m == MethodCash
}

// PricingInputs are the numeric inputs the pricing engine consumes.
// They are stored with the booking so the breakdown can always be recomputed.
type PricingInputs struct {
	BasePrice        decimal.Decimal
	VehiclePrice     decimal.Decimal
	AllyDiscount     decimal.Decimal
	AdditionalsTotal decimal.Decimal
	PricedAt         time.Time // moment used to evaluate the night surcharge window
}

// Breakdown is the monetary breakdown of a booking.
// Total is always derived from the other fields, never patched on its own.
type Breakdown struct {
	BasePrice           decimal.Decimal
	VehiclePrice        decimal.Decimal
	AdditionalsTotal    decimal.Decimal
	MunicipalityFee     decimal.Decimal
	NightSurcharge      decimal.Decimal
	AllyDiscount        decimal.Decimal
	Commission          decimal.Decimal
	Total               decimal.Decimal
	RequiresManualQuote bool
}

// Subtotal returns base + vehicle + additionals
func (b Breakdown) Subtotal() decimal.Decimal {
	return b.BasePrice.Add(b.VehiclePrice).Add(b.AdditionalsTotal)
}

// Booking is a single reservation of a transport service
type Booking struct {
	ID      uuid.UUID
	Code    string
	OrderID *uuid.UUID

	State         LifecycleState
	PaymentState  PaymentState
	PaymentMethod PaymentMethod

	Channel               string
	ManualPaymentEligible bool // asserted by the checkout flow from channel data

	ServiceID    int64
	ServiceName  string
	VehicleID    *int64
	Municipality string
	ScheduledAt  *time.Time

	Pricing   PricingInputs
	Breakdown Breakdown
	Currency  string
	Signature string

	TransactionID *string
	CustomerEmail string

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BelongsToOrder returns true if the booking is paid through an order
func (b *Booking) BelongsToOrder() bool {
	return b.OrderID != nil
}

// IsTerminal returns true if the booking reached a terminal lifecycle state
func (b *Booking) IsTerminal() bool {
	return b.State.IsTerminal()
}

// CancellationAllowed reports whether the time-based cancellation gate is open.
// Quote-stage bookings and bookings without a schedule are not time-gated.
func (b *Booking) CancellationAllowed(now time.Time) bool {
	if b.State == StatePendingQuote || b.ScheduledAt == nil {
		return true
	}
	return b.ScheduledAt.Sub(now) > CancellationNotice
}

// PricingUpdate is the complete set of price-bearing fields written in one update.
// Transition, when set, is applied in the same statement as a compare-and-set.
type PricingUpdate struct {
	Method     PaymentMethod
	Breakdown  Breakdown
	Signature  string
	Transition *StateChange
}

// StateChange is a compare-and-set lifecycle update
type StateChange struct {
	From   LifecycleState
	To     LifecycleState
	Reason *string // stored when To is CANCELLED
}

// PaymentUpdate is a conditional payment-state update.
// TransactionID is write-once: an already stored reference is kept.
type PaymentUpdate struct {
	State         PaymentState
	TransactionID *string
}
