package reconcile_payment

import (
	"strings"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// StatusMapping результат сопоставления статуса провайдера
type StatusMapping struct {
	Payment   domain.PaymentState
	Lifecycle *domain.LifecycleState // nil - жизненный цикл не меняется
	Known     bool
}

var (
	paidPendingAssignment = domain.StatePaidPendingAssignment

	statusMap = map[string]StatusMapping{
		"approved": {Payment: domain.PaymentApproved, Lifecycle: &paidPendingAssignment, Known: true},
		"rejected": {Payment: domain.PaymentRejected, Known: true},
		"failed":   {Payment: domain.PaymentRejected, Known: true},
		"pending":  {Payment: domain.PaymentProcessing, Known: true},
	}
)

// MapProviderStatus сопоставляет статус провайдера паре (платёжное состояние, состояние бронирования).
// Неизвестный статус не является ошибкой: Known = false, изменений нет
func MapProviderStatus(raw string) StatusMapping {
	mapping, ok := statusMap[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return StatusMapping{}
	}
	return mapping
}
