package switch_payment_method

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("switch_payment_method: invalid input data: %w", domain.ErrValidation)

	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = fmt.Errorf("switch_payment_method: booking not found: %w", domain.ErrNotFound)

	// ErrInvalidState смена способа оплаты возможна только до оплаты
	ErrInvalidState = fmt.Errorf("switch_payment_method: booking is not awaiting payment: %w", domain.ErrPreconditionFailed)

	// ErrChannelNotEligible канал продаж не допускает ручную оплату
	ErrChannelNotEligible = fmt.Errorf("switch_payment_method: channel is not eligible for manual payment: %w", domain.ErrPreconditionFailed)

	// ErrOrderMember бронирование оплачивается в составе заказа
	ErrOrderMember = fmt.Errorf("switch_payment_method: booking is paid through an order: %w", domain.ErrPreconditionFailed)

	// ErrIllegalTransition переход в CONFIRMED_PENDING_ASSIGNMENT отсутствует в автомате состояний
	ErrIllegalTransition = fmt.Errorf("switch_payment_method: %w", domain.ErrIllegalTransition)

	// ErrConcurrentModification состояние бронирования изменилось во время операции
	ErrConcurrentModification = errors.New("switch_payment_method: booking was modified concurrently")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("switch_payment_method: internal error")
)
