package txmanager

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/pkg/dbmetrics"
)

func newManager(t *testing.T) (*TransactionManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTransactionManager(dbmetrics.Wrap(db, nil)), mock
}

func TestTransactionManager_Do(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		m, mock := newManager(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := m.Do(context.Background(), func(ctx context.Context) error {
			assert.True(t, dbmetrics.IsInTransaction(ctx))
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		m, mock := newManager(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := m.Do(context.Background(), func(ctx context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call reuses transaction", func(t *testing.T) {
		m, mock := newManager(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := m.Do(context.Background(), func(ctx context.Context) error {
			return m.DoSerializable(ctx, func(inner context.Context) error {
				outer, _ := dbmetrics.TxFromContext(ctx)
				nested, _ := dbmetrics.TxFromContext(inner)
				assert.Same(t, outer, nested)
				return nil
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
