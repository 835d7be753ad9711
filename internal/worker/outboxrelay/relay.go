// Package outboxrelay доставляет сообщения из таблицы notifications_outbox в брокер.
// Доставка "хотя бы один раз": получатели дедуплицируют по event_id
package outboxrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/notifications"
)

// Результаты доставки для метрики
const (
	ResultSent  = "sent"
	ResultRetry = "retry"
	ResultDead  = "dead"
)

// Config параметры релея
type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Minute
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	return c
}

// Relay фоновый воркер доставки уведомлений
type Relay struct {
	repo         OutboxRepository
	publisher    Publisher
	txManager    TransactionManager
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
	cfg          Config
}

// NewRelay создает воркер
func NewRelay(
	repo OutboxRepository,
	publisher Publisher,
	txManager TransactionManager,
	metrics Metrics,
	logger Logger,
	cfg Config,
) *Relay {
	return &Relay{
		repo:         repo,
		publisher:    publisher,
		txManager:    txManager,
		metrics:      metrics,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		cfg:          cfg.withDefaults(),
	}
}

// WithTimeProvider подменяет источник времени
func (r *Relay) WithTimeProvider(tp TimeProvider) *Relay {
	r.timeProvider = tp
	return r
}

// Run опрашивает outbox до отмены контекста
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("OutboxRelay: started, poll=%s batch=%d", r.cfg.PollInterval, r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("OutboxRelay: stopped")
			return nil
		case <-ticker.C:
			// Полный батч: сразу забираем следующий, не дожидаясь тика
			for {
				n, err := r.ProcessBatch(ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						r.logger.Error("OutboxRelay: batch failed: %v", err)
					}
					break
				}
				if n < r.cfg.BatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// ProcessBatch забирает и обрабатывает одну пачку сообщений, возвращает их количество.
// Строки заблокированы (SKIP LOCKED) до конца транзакции, несколько релеев не конфликтуют
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	var claimed int

	err := r.txManager.Do(ctx, func(txCtx context.Context) error {
		now := r.timeProvider.Now()

		messages, err := r.repo.ClaimDue(txCtx, now, r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("claim due messages: %w", err)
		}
		claimed = len(messages)

		for _, msg := range messages {
			if err := r.deliver(txCtx, msg, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return claimed, nil
}

// deliver публикует одно сообщение и фиксирует результат
func (r *Relay) deliver(ctx context.Context, msg *domain.OutboxMessage, now time.Time) error {
	body, err := json.Marshal(notifications.NewEnvelope(msg))
	if err != nil {
		// Конверт не сериализуется: повторять бессмысленно
		r.logger.Error("OutboxRelay: message %s cannot be encoded: %v", msg.ID, err)
		r.metrics.IncOutboxDelivery(ResultDead)
		return r.repo.MarkDead(ctx, msg.ID, msg.Attempts+1, err.Error())
	}

	pubCtx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	pubErr := r.publisher.Publish(pubCtx, msg.BookingCode, body)
	cancel()

	if pubErr == nil {
		if err := r.repo.MarkSent(ctx, msg.ID, now); err != nil {
			return fmt.Errorf("mark sent %s: %w", msg.ID, err)
		}
		r.metrics.IncOutboxDelivery(ResultSent)
		return nil
	}

	attempts := msg.Attempts + 1
	if attempts >= r.cfg.MaxAttempts {
		r.logger.Error("[operator] OutboxRelay: message %s (%s %s -> %s) dropped after %d attempts: %v",
			msg.ID, msg.BookingCode, msg.PreviousState, msg.NewState, attempts, pubErr)
		if err := r.repo.MarkDead(ctx, msg.ID, attempts, pubErr.Error()); err != nil {
			return fmt.Errorf("mark dead %s: %w", msg.ID, err)
		}
		r.metrics.IncOutboxDelivery(ResultDead)
		return nil
	}

	next := now.Add(r.backoff(attempts))
	r.logger.Warn("OutboxRelay: publish %s failed (attempt %d/%d), retry at %s: %v",
		msg.ID, attempts, r.cfg.MaxAttempts, next.Format(time.RFC3339), pubErr)
	if err := r.repo.MarkRetry(ctx, msg.ID, attempts, next, pubErr.Error()); err != nil {
		return fmt.Errorf("mark retry %s: %w", msg.ID, err)
	}
	r.metrics.IncOutboxDelivery(ResultRetry)
	return nil
}

// backoff экспоненциальная задержка base * 2^(attempts-1), не больше MaxBackoff
func (r *Relay) backoff(attempts int) time.Duration {
	d := r.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return d
}
