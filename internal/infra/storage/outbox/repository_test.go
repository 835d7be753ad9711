package outbox

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/pkg/dbmetrics"
)

func message() *domain.OutboxMessage {
	return &domain.OutboxMessage{
		BookingID:     uuid.New(),
		BookingCode:   "RESABC123",
		EventType:     "reservation.state_changed",
		PreviousState: domain.StateConfirmedPendingPayment,
		NewState:      domain.StatePaidPendingAssignment,
		Payload:       []byte(`{}`),
		NextAttemptAt: time.Now(),
	}
}

func TestRepository_Enqueue_UsesSavepointInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT outbox_enqueue")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications_outbox")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT outbox_enqueue")).WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	require.NoError(t, err)

	msg := message()
	require.NoError(t, repo.Enqueue(dbmetrics.WithTx(context.Background(), tx), msg))
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, domain.OutboxPending, msg.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Enqueue_RollsBackSavepointOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT outbox_enqueue")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications_outbox")).WillReturnError(errors.New("disk full"))
	mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT outbox_enqueue")).WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.Enqueue(dbmetrics.WithTx(context.Background(), tx), message())
	assert.ErrorIs(t, err, ErrExecQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Enqueue_WithoutTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications_outbox")).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewRepository(db).Enqueue(context.Background(), message()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ClaimDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	_, err = repo.ClaimDue(context.Background(), time.Now(), 10)
	assert.ErrorIs(t, err, ErrNotInTransaction)

	now := time.Now()
	id, bookingID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC LIMIT 10 FOR UPDATE SKIP LOCKED")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			id.String(), bookingID.String(), "RESABC123", "PEDAAA111", "reservation.state_changed",
			"CONFIRMED_PENDING_PAYMENT", "PAID_PENDING_ASSIGNMENT", []byte(`{"a":1}`),
			"pending", 2, now, "timeout", now, nil,
		))

	tx, err := db.Begin()
	require.NoError(t, err)

	msgs, err := repo.ClaimDue(dbmetrics.WithTx(context.Background(), tx), now, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, 2, msgs[0].Attempts)
	require.NotNil(t, msgs[0].OrderCode)
	assert.Equal(t, "PEDAAA111", *msgs[0].OrderCode)
	require.NotNil(t, msgs[0].LastError)
	assert.Nil(t, msgs[0].SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkDead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications_outbox SET attempts = $1, last_error = $2, status = $3 WHERE id = $4")).
		WithArgs(5, "broker down", "dead", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewRepository(db).MarkDead(context.Background(), id, 5, "broker down"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
