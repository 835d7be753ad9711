package outbox

import "errors"

var (
	// ErrNotInTransaction возвращается, когда операция требует транзакции в контексте
	ErrNotInTransaction = errors.New("outbox.repository: transaction required")

	ErrBuildQuery = errors.New("outbox.repository: failed to build query")
	ErrExecQuery  = errors.New("outbox.repository: failed to execute query")
	ErrScanRow    = errors.New("outbox.repository: failed to scan row")
)
