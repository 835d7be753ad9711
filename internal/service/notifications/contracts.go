package notifications

import (
	"context"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// OutboxRepository хранилище исходящих уведомлений
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg *domain.OutboxMessage) error
}

// Metrics счётчик неудачных постановок уведомлений
type Metrics interface {
	IncNotificationFailure()
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
