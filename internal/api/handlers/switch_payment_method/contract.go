package switch_payment_method

import (
	"context"

	switchPaymentMethod "github.com/m04kA/SMC-ReservationService/internal/usecase/switch_payment_method"
)

type SwitchPaymentMethodUseCase interface {
	Execute(ctx context.Context, req *switchPaymentMethod.Request) (*switchPaymentMethod.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
