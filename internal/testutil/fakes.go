package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/infra/lock"
)

// Clock фиксированное время
type Clock struct {
	T time.Time
}

func (c *Clock) Now() time.Time { return c.T }

// Notifier записывает все события о переходах
type Notifier struct {
	mu     sync.Mutex
	Events []domain.TransitionEvent
}

func (n *Notifier) TransitionApplied(_ context.Context, ev domain.TransitionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, ev)
}

// Count количество событий
func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Events)
}

// Locker фейковая распределённая блокировка
type Locker struct {
	mu       sync.Mutex
	Err      error
	Acquired []string
	Released int
}

func (l *Locker) Acquire(_ context.Context, key string) (lock.Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	l.Acquired = append(l.Acquired, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.Released++
		return nil
	}, nil
}

// Metrics записывает бизнес-метрики
type Metrics struct {
	mu                 sync.Mutex
	Reconciliations    map[string]int
	IllegalTransitions int
	AmountMismatches   int
	SignatureRepairs   int
	NotificationFails  int
	OutboxDeliveries   map[string]int
}

func NewMetrics() *Metrics {
	return &Metrics{Reconciliations: make(map[string]int), OutboxDeliveries: make(map[string]int)}
}

func (m *Metrics) IncReconciliation(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reconciliations[kind+"/"+outcome]++
}

func (m *Metrics) IncIllegalTransition(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IllegalTransitions++
}

func (m *Metrics) IncAmountMismatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AmountMismatches++
}

func (m *Metrics) IncSignatureRepair(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignatureRepairs++
}

func (m *Metrics) IncNotificationFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationFails++
}

func (m *Metrics) IncOutboxDelivery(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OutboxDeliveries[result]++
}

// NewBooking бронирование с разбивкой сценария "100000 + SABANETA, PROVIDER"
func NewBooking(code string, state domain.LifecycleState, payment domain.PaymentState) *domain.Booking {
	return &domain.Booking{
		Code:                  code,
		State:                 state,
		PaymentState:          payment,
		PaymentMethod:         domain.MethodProvider,
		Channel:               "web",
		ManualPaymentEligible: true,
		ServiceID:             1,
		ServiceName:           "Airport transfer",
		Municipality:          "SABANETA",
		Pricing: domain.PricingInputs{
			BasePrice: decimal.NewFromInt(100000),
			PricedAt:  time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC),
		},
		Breakdown: domain.Breakdown{
			BasePrice:       decimal.NewFromInt(100000),
			MunicipalityFee: decimal.NewFromInt(15000),
			Commission:      decimal.NewFromInt(6000),
			Total:           decimal.NewFromInt(121000),
		},
		Currency:      domain.DefaultCurrency,
		CustomerEmail: "client@example.com",
	}
}
