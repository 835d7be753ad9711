package reconcile_payment

import (
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidInput)
	}

	if req.Target.Kind != domain.KindBooking && req.Target.Kind != domain.KindOrder {
		return fmt.Errorf("%w: unknown aggregate kind %q", ErrInvalidInput, req.Target.Kind)
	}

	if req.Target.Code == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidInput)
	}

	if req.ReportedAmount != nil && req.ReportedAmount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}

	return nil
}
