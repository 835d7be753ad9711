package domain

import "time"

// Code prefixes. The prefix is a dispatch key, not a security boundary.
const (
	BookingCodePrefix = "RES"
	QuoteCodePrefix   = "COT"
	OrderCodePrefix   = "PED"
)

// CodeSuffixLength number of random hex characters after the prefix
const CodeSuffixLength = 6

// DefaultCurrency currency of all amounts (Colombian peso)
const DefaultCurrency = "COP"

// CancellationNotice minimum time before the scheduled service for a cancellation
const CancellationNotice = 24 * time.Hour

// Business validation constants
const (
	MaxCheckoutItems            = 10
	MaxCancellationReasonLength = 500
	MaxCustomerEmailLength      = 254
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)
