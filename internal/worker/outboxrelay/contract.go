package outboxrelay

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// OutboxRepository хранилище исходящих уведомлений
type OutboxRepository interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error
	MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
}

// Publisher публикация в брокер (Kafka или RabbitMQ)
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// Metrics счётчик доставок
type Metrics interface {
	IncOutboxDelivery(result string)
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
