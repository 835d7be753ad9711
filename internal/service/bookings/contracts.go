package bookings

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/signature"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Booking, error)
	UpdateSignature(ctx context.Context, id uuid.UUID, signature string) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByCode(ctx context.Context, code string) (*domain.Order, error)
	UpdateTotals(ctx context.Context, id uuid.UUID, total decimal.Decimal, signature string) error
}

// Signer пересчёт подписей целостности
type Signer interface {
	Mode() signature.Mode
	Refresh(b *domain.Booking) bool
	RefreshOrder(o *domain.Order) bool
}

// Metrics счётчик ремонтов подписи
type Metrics interface {
	IncSignatureRepair(aggregate string)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
