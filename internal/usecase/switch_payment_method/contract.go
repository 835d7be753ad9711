package switch_payment_method

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	UpdatePricing(ctx context.Context, id uuid.UUID, update domain.PricingUpdate) error
	UpdateSignature(ctx context.Context, id uuid.UUID, signature string) error
}

// PricingEngine пересчёт разбивки из сохранённых входных данных
type PricingEngine interface {
	ForBooking(b *domain.Booking, method domain.PaymentMethod) domain.Breakdown
}

// Signer подпись целостности
type Signer interface {
	Sign(orderCode string, amount decimal.Decimal, currency string) string
	Refresh(b *domain.Booking) bool
}

// Notifier получает событие о каждом применённом переходе
type Notifier interface {
	TransitionApplied(ctx context.Context, ev domain.TransitionEvent)
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
