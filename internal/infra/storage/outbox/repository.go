package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ReservationService/pkg/psqlbuilder"
)

const (
	table     = "notifications_outbox"
	savepoint = "outbox_enqueue"
)

var columns = []string{
	"id",
	"booking_id",
	"booking_code",
	"order_code",
	"event_type",
	"previous_state",
	"new_state",
	"payload",
	"status",
	"attempts",
	"next_attempt_at",
	"last_error",
	"created_at",
	"sent_at",
}

// Repository хранилище исходящих уведомлений (transactional outbox)
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Enqueue добавляет уведомление в outbox.
// Внутри транзакции вставка выполняется под SAVEPOINT: при ошибке откатывается
// только она, а транзакция вызывающего остаётся пригодной для COMMIT
func (r *Repository) Enqueue(ctx context.Context, msg *domain.OutboxMessage) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Status == "" {
		msg.Status = domain.OutboxPending
	}

	query, args, err := psqlbuilder.Insert(table).
		Columns("id", "booking_id", "booking_code", "order_code", "event_type", "previous_state", "new_state", "payload", "status", "attempts", "next_attempt_at").
		Values(msg.ID, msg.BookingID, msg.BookingCode, msg.OrderCode, msg.EventType, msg.PreviousState, msg.NewState, msg.Payload, msg.Status, msg.Attempts, msg.NextAttemptAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Enqueue - build insert query: %v", ErrBuildQuery, err)
	}

	if !dbmetrics.IsInTransaction(ctx) {
		if _, err := executor.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: Enqueue - execute insert: %v", ErrExecQuery, err)
		}
		return nil
	}

	if _, err := executor.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("%w: Enqueue - create savepoint: %v", ErrExecQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		if _, rbErr := executor.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return fmt.Errorf("%w: Enqueue - rollback savepoint: %v (insert: %v)", ErrExecQuery, rbErr, err)
		}
		return fmt.Errorf("%w: Enqueue - execute insert: %v", ErrExecQuery, err)
	}

	if _, err := executor.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("%w: Enqueue - release savepoint: %v", ErrExecQuery, err)
	}

	return nil
}

// ClaimDue выбирает готовые к отправке уведомления и блокирует их.
// Строки, заблокированные другим релеем, пропускаются (SKIP LOCKED)
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxMessage, error) {
	if !dbmetrics.IsInTransaction(ctx) {
		return nil, ErrNotInTransaction
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"status": domain.OutboxPending}).
		Where(squirrel.LtOrEq{"next_attempt_at": now}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ClaimDue - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ClaimDue - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	messages := make([]*domain.OutboxMessage, 0, limit)
	for rows.Next() {
		var (
			msg       domain.OutboxMessage
			orderCode sql.NullString
			lastError sql.NullString
			sentAt    sql.NullTime
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.BookingID,
			&msg.BookingCode,
			&orderCode,
			&msg.EventType,
			&msg.PreviousState,
			&msg.NewState,
			&msg.Payload,
			&msg.Status,
			&msg.Attempts,
			&msg.NextAttemptAt,
			&lastError,
			&msg.CreatedAt,
			&sentAt,
		); err != nil {
			return nil, fmt.Errorf("%w: ClaimDue - scan row: %v", ErrScanRow, err)
		}
		if orderCode.Valid {
			msg.OrderCode = &orderCode.String
		}
		if lastError.Valid {
			msg.LastError = &lastError.String
		}
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ClaimDue - rows error: %v", ErrScanRow, err)
	}

	return messages, nil
}

// MarkSent отмечает уведомление доставленным
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, "MarkSent", id, map[string]interface{}{
		"status":  domain.OutboxSent,
		"sent_at": at,
	})
}

// MarkRetry откладывает следующую попытку доставки
func (r *Repository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	return r.update(ctx, "MarkRetry", id, map[string]interface{}{
		"attempts":        attempts,
		"next_attempt_at": nextAttemptAt,
		"last_error":      lastError,
	})
}

// MarkDead прекращает попытки доставки
func (r *Repository) MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	return r.update(ctx, "MarkDead", id, map[string]interface{}{
		"status":     domain.OutboxDead,
		"attempts":   attempts,
		"last_error": lastError,
	})
}

func (r *Repository) update(ctx context.Context, op string, id uuid.UUID, fields map[string]interface{}) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(table).
		SetMap(fields).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, op, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	return nil
}
