package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ReservationService/pkg/ptr"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func bookingRow(id uuid.UUID, orderID *uuid.UUID) *sqlmock.Rows {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	var order interface{}
	if orderID != nil {
		order = orderID.String()
	}
	return sqlmock.NewRows(columns).AddRow(
		id.String(), "RESABC123", order,
		"CONFIRMED_PENDING_PAYMENT", "PENDING", "PROVIDER", "web", true,
		int64(7), "Airport transfer", nil, "SABANETA", now.Add(72*time.Hour),
		"100000", "0", "0", "0", now,
		"15000", "0", "6000", "121000", false,
		"COP", "sig", nil, "client@example.com", nil, nil,
		now, now,
	)
}

func TestRepository_GetByCode(t *testing.T) {
	repo, mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, order_id")).
		WithArgs("RESABC123").
		WillReturnRows(bookingRow(id, nil))

	b, err := repo.GetByCode(context.Background(), "RESABC123")
	require.NoError(t, err)

	assert.Equal(t, id, b.ID)
	assert.Nil(t, b.OrderID)
	assert.Equal(t, domain.StateConfirmedPendingPayment, b.State)
	assert.Equal(t, domain.PaymentPending, b.PaymentState)
	assert.Equal(t, domain.MethodProvider, b.PaymentMethod)
	assert.True(t, b.ManualPaymentEligible)
	require.NotNil(t, b.ScheduledAt)
	assert.Nil(t, b.VehicleID)
	assert.Nil(t, b.TransactionID)
	assert.True(t, decimal.NewFromInt(121000).Equal(b.Breakdown.Total))
	assert.True(t, decimal.NewFromInt(100000).Equal(b.Breakdown.BasePrice))
	assert.True(t, decimal.NewFromInt(6000).Equal(b.Breakdown.Commission))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByCode_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByCode(context.Background(), "RESNONE00")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRepository_ListByOrderID_LocksInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	orderID := uuid.New()
	first, second := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE order_id = $1 ORDER BY id ASC FOR UPDATE")).
		WithArgs(orderID).
		WillReturnRows(bookingRow(first, &orderID).AddRow(
			second.String(), "RESDEF456", orderID.String(),
			"CONFIRMED_PENDING_PAYMENT", "PENDING", "PROVIDER", "web", false,
			int64(8), "City ride", int64(3), "MEDELLIN", nil,
			"50000", "10000", "0", "0", time.Now(),
			"0", "0", "3600", "63600", false,
			"COP", "sig2", "tx-1", "client@example.com", nil, nil,
			time.Now(), time.Now(),
		))

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := dbmetrics.WithTx(context.Background(), tx)

	bookings, err := repo.ListByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	require.NotNil(t, bookings[0].OrderID)
	assert.Equal(t, orderID, *bookings[0].OrderID)
	assert.Nil(t, bookings[1].ScheduledAt)
	require.NotNil(t, bookings[1].VehicleID)
	assert.Equal(t, int64(3), *bookings[1].VehicleID)
	assert.Equal(t, "tx-1", ptr.Deref(bookings[1].TransactionID, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_DuplicateCode(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Create(context.Background(), &domain.Booking{Code: "RESABC123"})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestRepository_Create_AssignsID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	b := &domain.Booking{Code: "RESABC123", State: domain.StateConfirmedPendingPayment}
	require.NoError(t, repo.Create(context.Background(), b))
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, now, b.CreatedAt)
}

func TestRepository_UpdatePayment(t *testing.T) {
	repo, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_state = $1, transaction_id = COALESCE(transaction_id, $2)")).
		WithArgs("APPROVED", "tx-1", id, "PENDING", "PROCESSING", "REJECTED").
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.UpdatePayment(context.Background(), id, domain.PaymentUpdate{
		State:         domain.PaymentApproved,
		TransactionID: ptr.Ptr("tx-1"),
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdatePayment_NotAdvanced(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("UPDATE bookings SET payment_state").
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.UpdatePayment(context.Background(), uuid.New(), domain.PaymentUpdate{State: domain.PaymentRejected})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestRepository_UpdatePayment_ToPendingSkipsQuery(t *testing.T) {
	repo, mock := newMock(t)

	applied, err := repo.UpdatePayment(context.Background(), uuid.New(), domain.PaymentUpdate{State: domain.PaymentPending})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateState(t *testing.T) {
	repo, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET lifecycle_state = $1, updated_at = NOW(), cancellation_reason = $2, cancelled_at = NOW()")).
		WithArgs("CANCELLED", "customer request", id, "CONFIRMED_PENDING_PAYMENT").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateState(context.Background(), id, domain.StateChange{
		From:   domain.StateConfirmedPendingPayment,
		To:     domain.StateCancelled,
		Reason: ptr.Ptr("customer request"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateState_Conflict(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("UPDATE bookings SET lifecycle_state").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), uuid.New(), domain.StateChange{
		From: domain.StateConfirmedPendingPayment,
		To:   domain.StatePaidPendingAssignment,
	})
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestRepository_UpdatePricing_WithTransition(t *testing.T) {
	repo, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_method = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePricing(context.Background(), id, domain.PricingUpdate{
		Method: domain.MethodCash,
		Transition: &domain.StateChange{
			From: domain.StateConfirmedPendingPayment,
			To:   domain.StateConfirmedPendingAssignment,
		},
	})
	assert.ErrorIs(t, err, ErrStateConflict)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_method = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdatePricing(context.Background(), id, domain.PricingUpdate{Method: domain.MethodProvider})
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
