package booking

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking.repository: booking not found")

	// ErrStateConflict возвращается, когда условное обновление не затронуло строк:
	// состояние бронирования изменилось после чтения
	ErrStateConflict = errors.New("booking.repository: state changed concurrently")

	// ErrDuplicateCode возвращается при нарушении уникальности кода бронирования
	ErrDuplicateCode = errors.New("booking.repository: duplicate booking code")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("booking.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("booking.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("booking.repository: failed to scan row")
)
