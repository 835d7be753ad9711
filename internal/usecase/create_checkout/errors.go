package create_checkout

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("create_checkout: invalid input data: %w", domain.ErrValidation)

	// ErrServiceNotFound возвращается, когда услуга не найдена в каталоге
	ErrServiceNotFound = fmt.Errorf("create_checkout: service not found: %w", domain.ErrNotFound)

	// ErrVehicleNotFound возвращается, когда тип транспорта не найден в каталоге
	ErrVehicleNotFound = fmt.Errorf("create_checkout: vehicle not found: %w", domain.ErrNotFound)

	// ErrServiceInactive услуга снята с продажи
	ErrServiceInactive = fmt.Errorf("create_checkout: service is not active: %w", domain.ErrPreconditionFailed)

	// ErrChannelNotEligible канал продаж не допускает ручную оплату
	ErrChannelNotEligible = fmt.Errorf("create_checkout: channel is not eligible for manual payment: %w", domain.ErrPreconditionFailed)

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_checkout: internal error")
)
