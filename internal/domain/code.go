package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// AggregateKind distinguishes the two payable aggregate shapes
type AggregateKind string

const (
	KindBooking AggregateKind = "booking"
	KindOrder   AggregateKind = "order"
)

// AggregateRef is a payable aggregate resolved once at the boundary
type AggregateRef struct {
	Kind AggregateKind
	Code string
}

// ParseAggregateRef classifies an external order identifier by its prefix
func ParseAggregateRef(code string) (AggregateRef, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var kind AggregateKind
	var suffix string
	switch {
	case strings.HasPrefix(code, OrderCodePrefix):
		kind, suffix = KindOrder, code[len(OrderCodePrefix):]
	case strings.HasPrefix(code, BookingCodePrefix):
		kind, suffix = KindBooking, code[len(BookingCodePrefix):]
	case strings.HasPrefix(code, QuoteCodePrefix):
		kind, suffix = KindBooking, code[len(QuoteCodePrefix):]
	default:
		return AggregateRef{}, fmt.Errorf("%w: unknown code prefix %q", ErrValidation, code)
	}

	if suffix == "" || !isAlphanumeric(suffix) {
		return AggregateRef{}, fmt.Errorf("%w: malformed code %q", ErrValidation, code)
	}

	return AggregateRef{Kind: kind, Code: code}, nil
}

// NewBookingCode generates a booking code; quote-first bookings get the COT prefix
func NewBookingCode(quoteFirst bool) (string, error) {
	if quoteFirst {
		return newCode(QuoteCodePrefix)
	}
	return newCode(BookingCodePrefix)
}

// NewOrderCode generates an order code
func NewOrderCode() (string, error) {
	return newCode(OrderCodePrefix)
}

func newCode(prefix string) (string, error) {
	b := make([]byte, CodeSuffixLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return prefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
