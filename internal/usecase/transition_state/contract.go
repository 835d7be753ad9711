package transition_state

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	UpdateState(ctx context.Context, id uuid.UUID, change domain.StateChange) error
}

// Notifier получает событие о каждом применённом переходе
type Notifier interface {
	TransitionApplied(ctx context.Context, ev domain.TransitionEvent)
}

// Metrics бизнес-метрики переходов
type Metrics interface {
	IncIllegalTransition(source string)
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
