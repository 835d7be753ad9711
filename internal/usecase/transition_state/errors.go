package transition_state

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("transition_state: invalid input data: %w", domain.ErrValidation)

	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = fmt.Errorf("transition_state: booking not found: %w", domain.ErrNotFound)

	// ErrIllegalTransition переход отсутствует в автомате состояний
	ErrIllegalTransition = fmt.Errorf("transition_state: %w", domain.ErrIllegalTransition)

	// ErrCancellationWindowClosed до начала услуги осталось меньше 24 часов
	ErrCancellationWindowClosed = fmt.Errorf("transition_state: cancellation window is closed: %w", domain.ErrPreconditionFailed)

	// ErrConcurrentModification состояние изменилось между чтением и записью
	ErrConcurrentModification = errors.New("transition_state: booking was modified concurrently")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("transition_state: internal error")
)
