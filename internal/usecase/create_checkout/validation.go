package create_checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// validateRequest валидирует входные данные запроса и нормализует их
func validateRequest(req *Request, now time.Time) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidInput)
	}

	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}

	if len(req.Items) > domain.MaxCheckoutItems {
		return fmt.Errorf("%w: at most %d items are allowed", ErrInvalidInput, domain.MaxCheckoutItems)
	}

	if req.Method == "" {
		req.Method = domain.MethodProvider
	}
	if !req.Method.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.Method)
	}

	// Заказ из нескольких позиций оплачивается только через провайдера
	if req.Method == domain.MethodCash && len(req.Items) > 1 {
		return fmt.Errorf("%w: cash payment is available for single bookings only", ErrInvalidInput)
	}

	req.Channel = strings.TrimSpace(req.Channel)
	if req.Channel == "" {
		return fmt.Errorf("%w: channel is required", ErrInvalidInput)
	}

	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if req.CustomerEmail == "" || !strings.Contains(req.CustomerEmail, "@") {
		return fmt.Errorf("%w: valid customerEmail is required", ErrInvalidInput)
	}
	if len(req.CustomerEmail) > domain.MaxCustomerEmailLength {
		return fmt.Errorf("%w: customerEmail is too long", ErrInvalidInput)
	}

	for i := range req.Items {
		if err := validateItem(&req.Items[i], now); err != nil {
			return fmt.Errorf("%w (item %d)", err, i)
		}
	}

	return nil
}

func validateItem(item *Item, now time.Time) error {
	if item.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if item.VehicleID != nil && *item.VehicleID <= 0 {
		return fmt.Errorf("%w: vehicleID must be positive", ErrInvalidInput)
	}

	if strings.TrimSpace(item.Municipality) == "" {
		return fmt.Errorf("%w: municipality is required", ErrInvalidInput)
	}

	if item.AllyDiscount.IsNegative() {
		return fmt.Errorf("%w: allyDiscount must not be negative", ErrInvalidInput)
	}

	if item.AdditionalsTotal.IsNegative() {
		return fmt.Errorf("%w: additionalsTotal must not be negative", ErrInvalidInput)
	}

	if item.ScheduledAt != nil && !item.ScheduledAt.After(now) {
		return fmt.Errorf("%w: scheduledAt must be in the future", ErrInvalidInput)
	}

	return nil
}
