package transition_state

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/booking"
)

// UseCase ручной перевод бронирования по автомату состояний
type UseCase struct {
	bookingRepo  BookingRepository
	notifier     Notifier
	metrics      Metrics
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	notifier Notifier,
	metrics Metrics,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		notifier:     notifier,
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

// Execute применяет переход
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("TransitionState: validation failed: %v", err)
		return nil, err
	}

	uc.logger.Info("TransitionState: booking=%s, target=%s", req.BookingCode, req.Target)

	var resp *Response

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		// 2. Чтение под блокировкой строки
		booking, err := uc.bookingRepo.GetByCode(txCtx, req.BookingCode)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				uc.logger.Warn("TransitionState: booking %s not found", req.BookingCode)
				return ErrBookingNotFound
			}
			uc.logger.Error("TransitionState: failed to get booking %s: %v", req.BookingCode, err)
			return fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
		}

		// 3. Автомат состояний
		if !domain.CanTransition(booking.State, req.Target) {
			uc.metrics.IncIllegalTransition(string(domain.SourceAdmin))
			uc.logger.Warn("TransitionState: illegal transition %s -> %s for %s", booking.State, req.Target, booking.Code)
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, booking.State, req.Target)
		}

		now := uc.timeProvider.Now()

		// 4. Отмена возможна не позднее чем за 24 часа до начала услуги
		if req.Target == domain.StateCancelled && !booking.CancellationAllowed(now) {
			uc.logger.Warn("TransitionState: cancellation window closed for %s (scheduled at %v)", booking.Code, booking.ScheduledAt)
			return fmt.Errorf("%w: scheduled at %s", ErrCancellationWindowClosed, booking.ScheduledAt.Format(domain.DateFormat+" "+domain.TimeFormat))
		}

		change := domain.StateChange{From: booking.State, To: req.Target}
		if req.Target == domain.StateCancelled {
			change.Reason = req.Reason
		}

		// 5. Compare-and-set
		if err := uc.bookingRepo.UpdateState(txCtx, booking.ID, change); err != nil {
			if errors.Is(err, bookingRepo.ErrStateConflict) {
				uc.logger.Warn("TransitionState: booking %s changed concurrently", booking.Code)
				return ErrConcurrentModification
			}
			uc.logger.Error("TransitionState: failed to update booking %s: %v", booking.Code, err)
			return fmt.Errorf("%w: failed to update state: %v", ErrInternal, err)
		}

		previous := booking.State
		booking.State = req.Target
		if req.Target == domain.StateCancelled {
			booking.CancellationReason = change.Reason
			booking.CancelledAt = &now
		}

		// 6. Уведомление
		uc.notifier.TransitionApplied(txCtx, domain.TransitionEvent{
			Booking:       booking,
			PreviousState: previous,
			NewState:      booking.State,
			Source:        domain.SourceAdmin,
			OccurredAt:    now,
		})

		uc.logger.Info("TransitionState: booking %s %s -> %s", booking.Code, previous, booking.State)

		resp = &Response{Booking: booking, PreviousState: previous}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}
