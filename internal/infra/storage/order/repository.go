package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ReservationService/pkg/psqlbuilder"
)

const uniqueViolation = "23505"

var columns = []string{
	"id",
	"code",
	"payment_state",
	"total_price",
	"currency",
	"signature",
	"transaction_id",
	"customer_email",
	"created_at",
	"updated_at",
}

// Repository репозиторий заказов (группы бронирований с одной оплатой)
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает заказ. Бронирования заказа создаются отдельно, в той же транзакции
func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	query, args, err := psqlbuilder.Insert("orders").
		Columns("id", "code", "payment_state", "total_price", "currency", "signature", "customer_email").
		Values(order.ID, order.Code, order.PaymentState, order.TotalPrice, order.Currency, order.Signature, order.CustomerEmail).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, order.Code)
		}
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetByID получает заказ по ID (без бронирований)
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id})
}

// GetByCode получает заказ по коду. Внутри транзакции строка блокируется
func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.getOne(ctx, "GetByCode", squirrel.Eq{"code": code})
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq) (*domain.Order, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From("orders").
		Where(where)

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	var (
		order         domain.Order
		transactionID sql.NullString
	)
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&order.ID,
		&order.Code,
		&order.PaymentState,
		&order.TotalPrice,
		&order.Currency,
		&order.Signature,
		&transactionID,
		&order.CustomerEmail,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan order: %v", ErrScanRow, op, err)
	}

	if transactionID.Valid {
		order.TransactionID = &transactionID.String
	}

	return &order, nil
}

// UpdatePayment условно обновляет платёжное состояние заказа, см. booking.Repository.UpdatePayment
func (r *Repository) UpdatePayment(ctx context.Context, id uuid.UUID, update domain.PaymentUpdate) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	predecessors := domain.PaymentPredecessors(update.State)
	if len(predecessors) == 0 {
		return false, nil
	}

	states := make([]string, len(predecessors))
	for i, s := range predecessors {
		states[i] = string(s)
	}

	query, args, err := psqlbuilder.Update("orders").
		Set("payment_state", update.State).
		Set("transaction_id", squirrel.Expr("COALESCE(transaction_id, ?)", update.TransactionID)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "payment_state": states}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: UpdatePayment - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: UpdatePayment - execute update: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: UpdatePayment - get rows affected: %v", ErrExecQuery, err)
	}

	return affected > 0, nil
}

// UpdateTotals сохраняет пересчитанную сумму заказа и подпись
func (r *Repository) UpdateTotals(ctx context.Context, id uuid.UUID, total decimal.Decimal, signature string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("orders").
		Set("total_price", total).
		Set("signature", signature).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateTotals - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateTotals - execute update: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdateTotals - get rows affected: %v", ErrExecQuery, err)
	}

	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}
