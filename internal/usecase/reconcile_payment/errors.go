package reconcile_payment

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("reconcile_payment: invalid input data: %w", domain.ErrValidation)

	// ErrBookingNotFound бронирование с таким кодом не существует
	ErrBookingNotFound = fmt.Errorf("reconcile_payment: booking not found: %w", domain.ErrNotFound)

	// ErrOrderNotFound заказ с таким кодом не существует
	ErrOrderNotFound = fmt.Errorf("reconcile_payment: order not found: %w", domain.ErrNotFound)

	// ErrAggregateBusy агрегат обрабатывается другим обработчиком, провайдер должен повторить запрос
	ErrAggregateBusy = errors.New("reconcile_payment: aggregate is being reconciled by another worker")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("reconcile_payment: internal error")
)
