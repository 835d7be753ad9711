package reconcile_payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/infra/lock"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Booking, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, update domain.PaymentUpdate) (bool, error)
	UpdateState(ctx context.Context, id uuid.UUID, change domain.StateChange) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByCode(ctx context.Context, code string) (*domain.Order, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, update domain.PaymentUpdate) (bool, error)
}

// Notifier получает событие о каждом применённом переходе
type Notifier interface {
	TransitionApplied(ctx context.Context, ev domain.TransitionEvent)
}

// Locker распределённая блокировка на агрегат
type Locker interface {
	Acquire(ctx context.Context, key string) (lock.Release, error)
}

// Metrics бизнес-метрики сверки
type Metrics interface {
	IncReconciliation(kind, outcome string)
	IncIllegalTransition(source string)
	IncAmountMismatch()
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
