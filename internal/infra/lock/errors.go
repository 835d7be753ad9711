package lock

import "errors"

var (
	// ErrLockBusy блокировка удерживается другим обработчиком дольше времени ожидания
	ErrLockBusy = errors.New("lock: aggregate is locked by another worker")

	// ErrUnavailable хранилище блокировок недоступно
	ErrUnavailable = errors.New("lock: backend unavailable")
)
