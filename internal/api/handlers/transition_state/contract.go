package transition_state

import (
	"context"

	transitionState "github.com/m04kA/SMC-ReservationService/internal/usecase/transition_state"
)

type TransitionStateUseCase interface {
	Execute(ctx context.Context, req *transitionState.Request) (*transitionState.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
