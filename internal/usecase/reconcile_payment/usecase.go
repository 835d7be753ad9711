package reconcile_payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/infra/lock"
	bookingRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/booking"
	orderRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/order"
)

// UseCase сверка асинхронных колбэков платёжного провайдера.
// Колбэки могут приходить повторно, параллельно и не по порядку
type UseCase struct {
	bookingRepo  BookingRepository
	orderRepo    OrderRepository
	notifier     Notifier
	locker       Locker
	metrics      Metrics
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	orderRepo OrderRepository,
	notifier Notifier,
	locker Locker,
	metrics Metrics,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		orderRepo:    orderRepo,
		notifier:     notifier,
		locker:       locker,
		metrics:      metrics,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// target агрегат, к которому применяется колбэк
type target struct {
	kind    domain.AggregateKind
	code    string
	orderID uuid.UUID
	state   domain.PaymentState
}

// Execute выполняет сверку
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Result, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("ReconcilePayment: validation failed: %v", err)
		return nil, err
	}

	uc.logger.Info("ReconcilePayment: %s=%s, status=%q", req.Target.Kind, req.Target.Code, req.ProviderStatus)

	// 2. Находим агрегат. Бронирование в составе заказа сверяется через заказ
	tgt, err := uc.resolve(ctx, req.Target)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Kind:          tgt.kind,
		Code:          tgt.code,
		PaymentState:  tgt.state,
		Outcome:       OutcomeNoop,
		Transitions:   make([]Transition, 0),
		Discrepancies: make([]Discrepancy, 0),
	}

	// 3. Сопоставляем статус провайдера. Неизвестный статус ничего не меняет
	mapping := MapProviderStatus(req.ProviderStatus)
	if !mapping.Known {
		uc.logger.Warn("ReconcilePayment: unknown provider status %q for %s, ignoring", req.ProviderStatus, tgt.code)
		result.Outcome = OutcomeIgnored
		uc.metrics.IncReconciliation(string(tgt.kind), string(result.Outcome))
		return result, nil
	}

	// 4. Блокировка агрегата. Без Redis полагаемся на блокировки строк
	release, err := uc.locker.Acquire(ctx, lock.ReconcileKey(tgt.code))
	switch {
	case errors.Is(err, lock.ErrLockBusy):
		uc.logger.Warn("ReconcilePayment: %s is locked by another worker", tgt.code)
		return nil, ErrAggregateBusy
	case err != nil:
		uc.logger.Warn("ReconcilePayment: lock unavailable for %s, relying on row locks: %v", tgt.code, err)
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				uc.logger.Warn("ReconcilePayment: failed to release lock for %s: %v", tgt.code, err)
			}
		}()
	}

	update := domain.PaymentUpdate{State: mapping.Payment, TransactionID: req.TransactionID}

	// 5. Применяем изменения в одной транзакции
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if tgt.kind == domain.KindOrder {
			return uc.reconcileOrder(txCtx, tgt.orderID, update, mapping, req, result)
		}
		return uc.reconcileBooking(txCtx, tgt.code, update, mapping, req, result)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.IncReconciliation(string(result.Kind), string(result.Outcome))
	uc.logger.Info("ReconcilePayment: %s=%s outcome=%s payment=%s transitions=%d discrepancies=%d",
		result.Kind, result.Code, result.Outcome, result.PaymentState, len(result.Transitions), len(result.Discrepancies))

	return result, nil
}

func (uc *UseCase) resolve(ctx context.Context, ref domain.AggregateRef) (*target, error) {
	if ref.Kind == domain.KindOrder {
		order, err := uc.orderRepo.GetByCode(ctx, ref.Code)
		if err != nil {
			return nil, uc.orderError("resolve", ref.Code, err)
		}
		return &target{kind: domain.KindOrder, code: order.Code, orderID: order.ID, state: order.PaymentState}, nil
	}

	booking, err := uc.bookingRepo.GetByCode(ctx, ref.Code)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			uc.logger.Warn("ReconcilePayment: booking %s not found", ref.Code)
			return nil, ErrBookingNotFound
		}
		uc.logger.Error("ReconcilePayment: failed to get booking %s: %v", ref.Code, err)
		return nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}

	if !booking.BelongsToOrder() {
		return &target{kind: domain.KindBooking, code: booking.Code, state: booking.PaymentState}, nil
	}

	// Платёж участника заказа всегда относится ко всему заказу
	order, err := uc.orderRepo.GetByID(ctx, *booking.OrderID)
	if err != nil {
		return nil, uc.orderError("resolve", booking.OrderID.String(), err)
	}
	uc.logger.Info("ReconcilePayment: booking %s belongs to order %s, reconciling the order", booking.Code, order.Code)

	return &target{kind: domain.KindOrder, code: order.Code, orderID: order.ID, state: order.PaymentState}, nil
}

func (uc *UseCase) reconcileOrder(
	ctx context.Context,
	orderID uuid.UUID,
	update domain.PaymentUpdate,
	mapping StatusMapping,
	req *Request,
	result *Result,
) error {
	// 5.1. Блокируем заказ, затем участников в порядке id
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return uc.orderError("reconcileOrder", orderID.String(), err)
	}

	members, err := uc.bookingRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		uc.logger.Error("ReconcilePayment: failed to list members of order %s: %v", order.Code, err)
		return fmt.Errorf("%w: failed to list order members: %v", ErrInternal, err)
	}

	// 5.2. Сумма провайдера только сравнивается
	result.AmountMismatch = uc.compareAmount(order.Code, order.TotalPrice, order.Currency, req)

	// 5.3. Платёжное состояние заказа
	advanced, err := uc.orderRepo.UpdatePayment(ctx, order.ID, update)
	if err != nil {
		uc.logger.Error("ReconcilePayment: failed to update payment of order %s: %v", order.Code, err)
		return fmt.Errorf("%w: failed to update order payment: %v", ErrInternal, err)
	}

	finalState := order.PaymentState
	if advanced {
		finalState = update.State
		result.Outcome = OutcomeApplied
		uc.logger.Info("ReconcilePayment: order %s payment %s -> %s", order.Code, order.PaymentState, update.State)
	}
	result.PaymentState = finalState

	// 5.4. Участники получают то же платёжное состояние, что и заказ
	orderCode := order.Code
	for _, member := range members {
		memberAdvanced := false
		if member.PaymentState != finalState {
			memberAdvanced, err = uc.bookingRepo.UpdatePayment(ctx, member.ID, domain.PaymentUpdate{
				State:         finalState,
				TransactionID: update.TransactionID,
			})
			if err != nil {
				uc.logger.Error("ReconcilePayment: failed to update payment of booking %s: %v", member.Code, err)
				return fmt.Errorf("%w: failed to update member payment: %v", ErrInternal, err)
			}
			if !memberAdvanced {
				uc.logger.Error("[operator] ReconcilePayment: booking %s payment %s cannot follow order %s payment %s",
					member.Code, member.PaymentState, order.Code, finalState)
				continue
			}
			uc.logger.Info("ReconcilePayment: booking %s payment %s -> %s", member.Code, member.PaymentState, finalState)
			member.PaymentState = finalState
			result.Outcome = OutcomeApplied
		}

		// Жизненный цикл меняем, только если платёж участника перешёл в целевое состояние в этом вызове
		if memberAdvanced && finalState == update.State && mapping.Lifecycle != nil {
			if err := uc.applyLifecycle(ctx, member, *mapping.Lifecycle, &orderCode, result); err != nil {
				return err
			}
		}
	}

	return nil
}

func (uc *UseCase) reconcileBooking(
	ctx context.Context,
	code string,
	update domain.PaymentUpdate,
	mapping StatusMapping,
	req *Request,
	result *Result,
) error {
	booking, err := uc.bookingRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		uc.logger.Error("ReconcilePayment: failed to lock booking %s: %v", code, err)
		return fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}

	result.AmountMismatch = uc.compareAmount(booking.Code, booking.Breakdown.Total, booking.Currency, req)
	result.PaymentState = booking.PaymentState

	advanced, err := uc.bookingRepo.UpdatePayment(ctx, booking.ID, update)
	if err != nil {
		uc.logger.Error("ReconcilePayment: failed to update payment of booking %s: %v", booking.Code, err)
		return fmt.Errorf("%w: failed to update booking payment: %v", ErrInternal, err)
	}

	if !advanced {
		uc.logger.Info("ReconcilePayment: booking %s payment stays %s (reported %s)", booking.Code, booking.PaymentState, update.State)
		return nil
	}

	uc.logger.Info("ReconcilePayment: booking %s payment %s -> %s", booking.Code, booking.PaymentState, update.State)
	booking.PaymentState = update.State
	result.PaymentState = update.State
	result.Outcome = OutcomeApplied

	if mapping.Lifecycle == nil {
		return nil
	}

	return uc.applyLifecycle(ctx, booking, *mapping.Lifecycle, nil, result)
}

// applyLifecycle переводит бронирование через автомат состояний.
// Недопустимый переход не откатывает платёжные поля: расхождение уходит оператору
func (uc *UseCase) applyLifecycle(
	ctx context.Context,
	booking *domain.Booking,
	to domain.LifecycleState,
	orderCode *string,
	result *Result,
) error {
	from := booking.State
	if from == to {
		return nil
	}

	if !domain.CanTransition(from, to) {
		d := Discrepancy{
			BookingCode: booking.Code,
			From:        from,
			To:          to,
			Reason:      domain.ErrIllegalTransition.Error(),
		}
		result.Discrepancies = append(result.Discrepancies, d)
		uc.metrics.IncIllegalTransition(string(domain.SourceReconciler))
		uc.logger.Error("[operator] ReconcilePayment: payment %s applied to booking %s but lifecycle %s -> %s is not allowed",
			booking.PaymentState, booking.Code, from, to)
		return nil
	}

	if err := uc.bookingRepo.UpdateState(ctx, booking.ID, domain.StateChange{From: from, To: to}); err != nil {
		uc.logger.Error("ReconcilePayment: failed to move booking %s %s -> %s: %v", booking.Code, from, to, err)
		return fmt.Errorf("%w: failed to update booking state: %v", ErrInternal, err)
	}

	booking.State = to
	result.Transitions = append(result.Transitions, Transition{BookingCode: booking.Code, From: from, To: to})
	uc.logger.Info("ReconcilePayment: booking %s %s -> %s", booking.Code, from, to)

	uc.notifier.TransitionApplied(ctx, domain.TransitionEvent{
		Booking:       booking,
		OrderCode:     orderCode,
		PreviousState: from,
		NewState:      to,
		Source:        domain.SourceReconciler,
		OccurredAt:    uc.timeProvider.Now(),
	})

	return nil
}

// compareAmount сравнивает сумму провайдера с сохранённой. Расхождение только логируется
func (uc *UseCase) compareAmount(code string, stored decimal.Decimal, currency string, req *Request) bool {
	mismatch := false

	if req.ReportedAmount != nil && !req.ReportedAmount.Round(0).Equal(stored.Round(0)) {
		mismatch = true
		uc.logger.Warn("ReconcilePayment: %s reported amount %s differs from stored total %s, stored total kept",
			code, req.ReportedAmount.String(), stored.String())
	}

	if req.Currency != nil && *req.Currency != "" && *req.Currency != currency {
		mismatch = true
		uc.logger.Warn("ReconcilePayment: %s reported currency %s differs from %s", code, *req.Currency, currency)
	}

	if mismatch {
		uc.metrics.IncAmountMismatch()
	}
	return mismatch
}

func (uc *UseCase) orderError(op, ref string, err error) error {
	if errors.Is(err, orderRepo.ErrOrderNotFound) {
		uc.logger.Warn("ReconcilePayment: %s - order %s not found", op, ref)
		return ErrOrderNotFound
	}
	uc.logger.Error("ReconcilePayment: %s - failed to get order %s: %v", op, ref, err)
	return fmt.Errorf("%w: failed to get order: %v", ErrInternal, err)
}
