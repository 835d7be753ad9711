package switch_payment_method

import (
	"fmt"

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

	if !req.Method.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.Method)
	}

	return nil
}

// checkPreconditions проверяется до любой записи
func checkPreconditions(b *domain.Booking) error {
	if b.BelongsToOrder() {
		return ErrOrderMember
	}
	if b.State != domain.StateConfirmedPendingPayment {
		return fmt.Errorf("%w: current state %s", ErrInvalidState, b.State)
	}
	if !b.ManualPaymentEligible {
		return fmt.Errorf("%w: channel %q", ErrChannelNotEligible, b.Channel)
	}
	return nil
}

// alreadyApplied повторный запрос с текущим способом оплаты
func alreadyApplied(b *domain.Booking, method domain.PaymentMethod) bool {
	if b.PaymentMethod != method {
		return false
	}
	switch method {
	case domain.MethodCash:
		return b.State == domain.StateConfirmedPendingAssignment
	default:
		return b.State == domain.StateConfirmedPendingPayment
	}
}
