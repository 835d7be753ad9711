package booking

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
	"order_id",
	"lifecycle_state",
	"payment_state",
	"payment_method",
	"channel",
	"manual_payment_eligible",
	"service_id",
	"service_name",
	"vehicle_id",
	"municipality",
	"scheduled_at",
	"base_price",
	"vehicle_price",
	"ally_discount",
	"additionals_total",
	"priced_at",
	"municipality_fee",
	"night_surcharge",
	"commission",
	"total_price",
	"requires_manual_quote",
	"currency",
	"signature",
	"transaction_id",
	"customer_email",
	"cancellation_reason",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование.
// ID генерируется на стороне сервиса, created_at/updated_at возвращает БД
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	var orderID uuid.NullUUID
	if booking.OrderID != nil {
		orderID = uuid.NullUUID{UUID: *booking.OrderID, Valid: true}
	}

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"id",
			"code",
			"order_id",
			"lifecycle_state",
			"payment_state",
			"payment_method",
			"channel",
			"manual_payment_eligible",
			"service_id",
			"service_name",
			"vehicle_id",
			"municipality",
			"scheduled_at",
			"base_price",
			"vehicle_price",
			"ally_discount",
			"additionals_total",
			"priced_at",
			"municipality_fee",
			"night_surcharge",
			"commission",
			"total_price",
			"requires_manual_quote",
			"currency",
			"signature",
			"customer_email",
		).
		Values(
			booking.ID,
			booking.Code,
			orderID,
			booking.State,
			booking.PaymentState,
			booking.PaymentMethod,
			booking.Channel,
			booking.ManualPaymentEligible,
			booking.ServiceID,
			booking.ServiceName,
			booking.VehicleID,
			booking.Municipality,
			booking.ScheduledAt,
			booking.Pricing.BasePrice,
			booking.Pricing.VehiclePrice,
			booking.Pricing.AllyDiscount,
			booking.Pricing.AdditionalsTotal,
			booking.Pricing.PricedAt,
			booking.Breakdown.MunicipalityFee,
			booking.Breakdown.NightSurcharge,
			booking.Breakdown.Commission,
			booking.Breakdown.Total,
			booking.Breakdown.RequiresManualQuote,
			booking.Currency,
			booking.Signature,
			booking.CustomerEmail,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, booking.Code)
		}
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id})
}

// GetByCode получает бронирование по коду.
// Внутри транзакции строка блокируется (FOR UPDATE)
func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	return r.getOne(ctx, "GetByCode", squirrel.Eq{"code": code})
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From("bookings").
		Where(where)

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan booking: %v", ErrScanRow, op, err)
	}

	return booking, nil
}

// ListByOrderID получает все бронирования заказа, упорядоченные по id.
// Внутри транзакции строки блокируются в этом же порядке
func (r *Repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From("bookings").
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByOrderID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByOrderID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListByOrderID - scan row: %v", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByOrderID - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}

// UpdatePricing записывает способ оплаты, всю разбивку и подпись одним UPDATE.
// Если задан переход, он применяется в том же запросе как compare-and-set
func (r *Repository) UpdatePricing(ctx context.Context, id uuid.UUID, update domain.PricingUpdate) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Update("bookings").
		Set("payment_method", update.Method).
		Set("municipality_fee", update.Breakdown.MunicipalityFee).
		Set("night_surcharge", update.Breakdown.NightSurcharge).
		Set("commission", update.Breakdown.Commission).
		Set("total_price", update.Breakdown.Total).
		Set("requires_manual_quote", update.Breakdown.RequiresManualQuote).
		Set("signature", update.Signature).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})

	if update.Transition != nil {
		builder = builder.
			Set("lifecycle_state", update.Transition.To).
			Where(squirrel.Eq{"lifecycle_state": update.Transition.From})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdatePricing - build update query: %v", ErrBuildQuery, err)
	}

	affected, err := execAffected(ctx, executor, query, args)
	if err != nil {
		return fmt.Errorf("%w: UpdatePricing - execute update: %v", ErrExecQuery, err)
	}

	if affected == 0 {
		if update.Transition != nil {
			return ErrStateConflict
		}
		return ErrBookingNotFound
	}

	return nil
}

// UpdateSignature сохраняет пересчитанную подпись
func (r *Repository) UpdateSignature(ctx context.Context, id uuid.UUID, signature string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("signature", signature).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateSignature - build update query: %v", ErrBuildQuery, err)
	}

	affected, err := execAffected(ctx, executor, query, args)
	if err != nil {
		return fmt.Errorf("%w: UpdateSignature - execute update: %v", ErrExecQuery, err)
	}

	if affected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// UpdateState переводит бронирование в новое состояние, только если текущее равно change.From.
// Для CANCELLED заполняет причину и время отмены
func (r *Repository) UpdateState(ctx context.Context, id uuid.UUID, change domain.StateChange) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Update("bookings").
		Set("lifecycle_state", change.To).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "lifecycle_state": change.From})

	if change.To == domain.StateCancelled {
		builder = builder.
			Set("cancellation_reason", change.Reason).
			Set("cancelled_at", squirrel.Expr("NOW()"))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateState - build update query: %v", ErrBuildQuery, err)
	}

	affected, err := execAffected(ctx, executor, query, args)
	if err != nil {
		return fmt.Errorf("%w: UpdateState - execute update: %v", ErrExecQuery, err)
	}

	if affected == 0 {
		return ErrStateConflict
	}

	return nil
}

// UpdatePayment записывает платёжное состояние, только если текущее является
// допустимым предшественником. transaction_id записывается один раз.
// Возвращает false, если состояние не продвинулось
func (r *Repository) UpdatePayment(ctx context.Context, id uuid.UUID, update domain.PaymentUpdate) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	predecessors := domain.PaymentPredecessors(update.State)
	if len(predecessors) == 0 {
		return false, nil
	}

	query, args, err := psqlbuilder.Update("bookings").
		Set("payment_state", update.State).
		Set("transaction_id", squirrel.Expr("COALESCE(transaction_id, ?)", update.TransactionID)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "payment_state": paymentStrings(predecessors)}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: UpdatePayment - build update query: %v", ErrBuildQuery, err)
	}

	affected, err := execAffected(ctx, executor, query, args)
	if err != nil {
		return false, fmt.Errorf("%w: UpdatePayment - execute update: %v", ErrExecQuery, err)
	}

	return affected > 0, nil
}

func execAffected(ctx context.Context, executor DBExecutor, query string, args []interface{}) (int64, error) {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func paymentStrings(states []domain.PaymentState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		booking            domain.Booking
		orderID            uuid.NullUUID
		vehicleID          sql.NullInt64
		scheduledAt        sql.NullTime
		transactionID      sql.NullString
		cancellationReason sql.NullString
		cancelledAt        sql.NullTime
		bd                 = &booking.Breakdown
		in                 = &booking.Pricing
	)

	err := row.Scan(
		&booking.ID,
		&booking.Code,
		&orderID,
		&booking.State,
		&booking.PaymentState,
		&booking.PaymentMethod,
		&booking.Channel,
		&booking.ManualPaymentEligible,
		&booking.ServiceID,
		&booking.ServiceName,
		&vehicleID,
		&booking.Municipality,
		&scheduledAt,
		&in.BasePrice,
		&in.VehiclePrice,
		&in.AllyDiscount,
		&in.AdditionalsTotal,
		&in.PricedAt,
		&bd.MunicipalityFee,
		&bd.NightSurcharge,
		&bd.Commission,
		&bd.Total,
		&bd.RequiresManualQuote,
		&booking.Currency,
		&booking.Signature,
		&transactionID,
		&booking.CustomerEmail,
		&cancellationReason,
		&cancelledAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orderID.Valid {
		id := orderID.UUID
		booking.OrderID = &id
	}
	if vehicleID.Valid {
		booking.VehicleID = &vehicleID.Int64
	}
	if scheduledAt.Valid {
		booking.ScheduledAt = &scheduledAt.Time
	}
	if transactionID.Valid {
		booking.TransactionID = &transactionID.String
	}
	if cancellationReason.Valid {
		booking.CancellationReason = &cancellationReason.String
	}
	if cancelledAt.Valid {
		booking.CancelledAt = &cancelledAt.Time
	}

	// Компоненты подытога хранятся один раз, как входные данные расчёта
	bd.BasePrice = nonNegative(in.BasePrice)
	bd.VehiclePrice = nonNegative(in.VehiclePrice)
	bd.AdditionalsTotal = nonNegative(in.AdditionalsTotal)
	bd.AllyDiscount = nonNegative(in.AllyDiscount)

	return &booking, nil
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
