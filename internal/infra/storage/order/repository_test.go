package order

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/pkg/dbmetrics"
)

func TestRepository_GetByCode_ForUpdateInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE code = $1 FOR UPDATE")).
		WithArgs("PEDABC123").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(id.String(), "PEDABC123", "PROCESSING", "250000", "COP", "sig", "tx-9", "a@b.co", now, now))

	tx, err := db.Begin()
	require.NoError(t, err)

	o, err := repo.GetByCode(dbmetrics.WithTx(context.Background(), tx), "PEDABC123")
	require.NoError(t, err)
	assert.Equal(t, id, o.ID)
	assert.Equal(t, domain.PaymentProcessing, o.PaymentState)
	assert.True(t, decimal.NewFromInt(250000).Equal(o.TotalPrice))
	require.NotNil(t, o.TransactionID)
	assert.Equal(t, "tx-9", *o.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByCode_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM orders").WillReturnRows(sqlmock.NewRows(columns))

	_, err = NewRepository(db).GetByCode(context.Background(), "PEDABC123")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepository_UpdatePayment_ProcessingNeverOverwritesTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	id := uuid.New()

	// PROCESSING можно записать только поверх PENDING
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET payment_state = $1")).
		WithArgs("PROCESSING", nil, id, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := NewRepository(db).UpdatePayment(context.Background(), id, domain.PaymentUpdate{State: domain.PaymentProcessing})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateTotals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET total_price = $1, signature = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs("250000", "newsig", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewRepository(db).UpdateTotals(context.Background(), id, decimal.NewFromInt(250000), "newsig"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
