// Package testutil содержит in-memory реализации хранилищ и коллабораторов для тестов use case.
// Поведение повторяет PostgreSQL-репозитории: условные обновления, sentinel-ошибки, откат транзакции.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/booking"
	orderRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/order"
)

// Store общее in-memory состояние бронирований, заказов и outbox
type Store struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*domain.Booking
	orders   map[uuid.UUID]*domain.Order
	outbox   []*domain.OutboxMessage

	// txMu сериализует транзакции, как блокировки строк в БД
	txMu sync.Mutex

	// Ошибки для проверки путей отказа
	FailUpdatePayment   error
	FailUpdateSignature error
	FailEnqueue         error

	// Счётчики записей
	SignatureWrites int
	PricingWrites   int
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[uuid.UUID]*domain.Booking),
		orders:   make(map[uuid.UUID]*domain.Order),
	}
}

// PutBooking кладёт бронирование напрямую, минуя репозиторий
func (s *Store) PutBooking(b *domain.Booking) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.bookings[b.ID] = cloneBooking(b)
	return b
}

// PutOrder кладёт заказ и его бронирования
func (s *Store) PutOrder(o *domain.Order) *domain.Order {
	s.mu.Lock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	s.orders[o.ID] = cloneOrder(o)
	s.mu.Unlock()

	for _, b := range o.Bookings {
		id := o.ID
		b.OrderID = &id
		s.PutBooking(b)
	}
	return o
}

// Booking возвращает текущее состояние бронирования по коду
func (s *Store) Booking(code string) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.Code == code {
			return cloneBooking(b)
		}
	}
	return nil
}

// Order возвращает текущее состояние заказа по коду
func (s *Store) Order(code string) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.Code == code {
			return cloneOrder(o)
		}
	}
	return nil
}

// BookingCount количество сохранённых бронирований
func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// OrderCount количество сохранённых заказов
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// OutboxMessages возвращает все сообщения outbox
func (s *Store) OutboxMessages() []*domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.OutboxMessage, len(s.outbox))
	for i, m := range s.outbox {
		c := *m
		out[i] = &c
	}
	return out
}

func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }
func (s *Store) Orders() *OrderRepository     { return &OrderRepository{s: s} }
func (s *Store) Outbox() *OutboxRepository    { return &OutboxRepository{s: s} }
func (s *Store) TxManager() *TxManager        { return &TxManager{s: s} }

type snapshot struct {
	bookings map[uuid.UUID]*domain.Booking
	orders   map[uuid.UUID]*domain.Order
	outbox   []*domain.OutboxMessage
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		bookings: make(map[uuid.UUID]*domain.Booking, len(s.bookings)),
		orders:   make(map[uuid.UUID]*domain.Order, len(s.orders)),
		outbox:   append([]*domain.OutboxMessage(nil), s.outbox...),
	}
	for id, b := range s.bookings {
		snap.bookings[id] = cloneBooking(b)
	}
	for id, o := range s.orders {
		snap.orders[id] = cloneOrder(o)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings, s.orders, s.outbox = snap.bookings, snap.orders, snap.outbox
}

// TxManager транзакции поверх Store: выполняются по одной, при ошибке состояние откатывается
type TxManager struct {
	s *Store
}

type txKey struct{}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

func (m *TxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

func (m *TxManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

// BookingRepository in-memory репозиторий бронирований
type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) Create(_ context.Context, booking *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.Code == booking.Code {
			return bookingRepo.ErrDuplicateCode
		}
	}
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now()
	booking.CreatedAt, booking.UpdatedAt = now, now
	r.s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *BookingRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) GetByCode(_ context.Context, code string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.Code == code {
			return cloneBooking(b), nil
		}
	}
	return nil, bookingRepo.ErrBookingNotFound
}

func (r *BookingRepository) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Booking, 0)
	for _, b := range r.s.bookings {
		if b.OrderID != nil && *b.OrderID == orderID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *BookingRepository) UpdatePricing(_ context.Context, id uuid.UUID, update domain.PricingUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if update.Transition != nil {
		if b.State != update.Transition.From {
			return bookingRepo.ErrStateConflict
		}
		b.State = update.Transition.To
	}

	// Компоненты подытога не перезаписываются: они хранятся как входные данные
	b.PaymentMethod = update.Method
	b.Breakdown.MunicipalityFee = update.Breakdown.MunicipalityFee
	b.Breakdown.NightSurcharge = update.Breakdown.NightSurcharge
	b.Breakdown.Commission = update.Breakdown.Commission
	b.Breakdown.Total = update.Breakdown.Total
	b.Breakdown.RequiresManualQuote = update.Breakdown.RequiresManualQuote
	b.Signature = update.Signature
	b.UpdatedAt = time.Now()
	r.s.PricingWrites++
	return nil
}

func (r *BookingRepository) UpdateSignature(_ context.Context, id uuid.UUID, signature string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailUpdateSignature != nil {
		return r.s.FailUpdateSignature
	}
	b, ok := r.s.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.Signature = signature
	r.s.SignatureWrites++
	return nil
}

func (r *BookingRepository) UpdateState(_ context.Context, id uuid.UUID, change domain.StateChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.State != change.From {
		return bookingRepo.ErrStateConflict
	}
	b.State = change.To
	if change.To == domain.StateCancelled {
		now := time.Now()
		b.CancellationReason = change.Reason
		b.CancelledAt = &now
	}
	return nil
}

func (r *BookingRepository) UpdatePayment(_ context.Context, id uuid.UUID, update domain.PaymentUpdate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailUpdatePayment != nil {
		return false, r.s.FailUpdatePayment
	}
	b, ok := r.s.bookings[id]
	if !ok || !b.PaymentState.CanAdvanceTo(update.State) {
		return false, nil
	}
	b.PaymentState = update.State
	if b.TransactionID == nil && update.TransactionID != nil {
		tx := *update.TransactionID
		b.TransactionID = &tx
	}
	return true, nil
}

// OrderRepository in-memory репозиторий заказов
type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.Code == order.Code {
			return orderRepo.ErrDuplicateCode
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, orderRepo.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) GetByCode(_ context.Context, code string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.Code == code {
			return cloneOrder(o), nil
		}
	}
	return nil, orderRepo.ErrOrderNotFound
}

func (r *OrderRepository) UpdatePayment(_ context.Context, id uuid.UUID, update domain.PaymentUpdate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || !o.PaymentState.CanAdvanceTo(update.State) {
		return false, nil
	}
	o.PaymentState = update.State
	if o.TransactionID == nil && update.TransactionID != nil {
		tx := *update.TransactionID
		o.TransactionID = &tx
	}
	return true, nil
}

func (r *OrderRepository) UpdateTotals(_ context.Context, id uuid.UUID, total decimal.Decimal, signature string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return orderRepo.ErrOrderNotFound
	}
	o.TotalPrice = total
	o.Signature = signature
	r.s.SignatureWrites++
	return nil
}

// OutboxRepository in-memory outbox
type OutboxRepository struct {
	s *Store
}

func (r *OutboxRepository) Enqueue(_ context.Context, msg *domain.OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailEnqueue != nil {
		return r.s.FailEnqueue
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	c := *msg
	r.s.outbox = append(r.s.outbox, &c)
	return nil
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	if b.OrderID != nil {
		id := *b.OrderID
		c.OrderID = &id
	}
	if b.TransactionID != nil {
		tx := *b.TransactionID
		c.TransactionID = &tx
	}
	if b.ScheduledAt != nil {
		at := *b.ScheduledAt
		c.ScheduledAt = &at
	}
	return &c
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Bookings = nil
	if o.TransactionID != nil {
		tx := *o.TransactionID
		c.TransactionID = &tx
	}
	return &c
}
