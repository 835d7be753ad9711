package bookings

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = fmt.Errorf("booking not found: %w", domain.ErrNotFound)

	// ErrOrderNotFound возвращается, когда заказ не найден
	ErrOrderNotFound = fmt.Errorf("order not found: %w", domain.ErrNotFound)

	// ErrNotPayable подпись не выдаётся: цена не согласована или бронирование отменено
	ErrNotPayable = fmt.Errorf("booking is not payable: %w", domain.ErrPreconditionFailed)

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("invalid input data: %w", domain.ErrValidation)

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
