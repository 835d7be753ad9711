package transition_state

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidInput)
	}

	ref, err := domain.ParseAggregateRef(req.BookingCode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if ref.Kind != domain.KindBooking {
		return fmt.Errorf("%w: %s is not a booking code", ErrInvalidInput, req.BookingCode)
	}
	req.BookingCode = ref.Code

	if !req.Target.IsValid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidInput, req.Target)
	}

	if req.Reason != nil {
		reason := strings.TrimSpace(*req.Reason)
		if utf8.RuneCountInString(reason) > domain.MaxCancellationReasonLength {
			return fmt.Errorf("%w: reason exceeds %d characters", ErrInvalidInput, domain.MaxCancellationReasonLength)
		}
		if reason == "" {
			req.Reason = nil
		} else {
			req.Reason = &reason
		}
	}

	return nil
}
