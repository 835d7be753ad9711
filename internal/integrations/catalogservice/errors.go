package catalogservice

import "errors"

var (
	// ErrServiceNotFound услуга отсутствует в каталоге
	ErrServiceNotFound = errors.New("catalogservice: service not found")

	// ErrVehicleNotFound тип транспорта отсутствует в каталоге
	ErrVehicleNotFound = errors.New("catalogservice: vehicle not found")

	// ErrChannelNotFound канал продаж отсутствует в каталоге
	ErrChannelNotFound = errors.New("catalogservice: channel not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("catalogservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("catalogservice client: invalid response")

	// ErrServiceDegraded каталог недоступен, применена деградация
	ErrServiceDegraded = errors.New("catalogservice unavailable: graceful degradation applied")
)
