package switch_payment_method

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/booking"
)

// UseCase смена способа оплаты бронирования (PROVIDER <-> CASH)
type UseCase struct {
	bookingRepo  BookingRepository
	engine       PricingEngine
	signer       Signer
	notifier     Notifier
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	engine PricingEngine,
	signer Signer,
	notifier Notifier,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		engine:       engine,
		signer:       signer,
		notifier:     notifier,
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

// Execute выполняет смену способа оплаты.
// Разбивка пересчитывается полностью и пишется одним UPDATE вместе со способом, подписью и состоянием
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("SwitchPaymentMethod: validation failed: %v", err)
		return nil, err
	}

	uc.logger.Info("SwitchPaymentMethod: booking=%s, method=%s", req.BookingCode, req.Method)

	var resp *Response

	// 2. Все проверки и запись под блокировкой строки
	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		booking, err := uc.bookingRepo.GetByCode(txCtx, req.BookingCode)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				uc.logger.Warn("SwitchPaymentMethod: booking %s not found", req.BookingCode)
				return ErrBookingNotFound
			}
			uc.logger.Error("SwitchPaymentMethod: failed to get booking %s: %v", req.BookingCode, err)
			return fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
		}

		// 2.1. Повторный запрос: возвращаем текущее бронирование, чиним подпись при необходимости
		if !booking.BelongsToOrder() && alreadyApplied(booking, req.Method) {
			uc.logger.Info("SwitchPaymentMethod: booking %s already uses %s", booking.Code, req.Method)
			if err := uc.ensureSignature(txCtx, booking); err != nil {
				return err
			}
			resp = &Response{Booking: booking, Changed: false}
			return nil
		}

		// 2.2. Предусловия проверяются до записи
		if err := checkPreconditions(booking); err != nil {
			uc.logger.Warn("SwitchPaymentMethod: booking %s rejected: %v", booking.Code, err)
			return err
		}

		// 2.3. Полный пересчёт разбивки и новая подпись
		breakdown := uc.engine.ForBooking(booking, req.Method)
		update := domain.PricingUpdate{
			Method:    req.Method,
			Breakdown: breakdown,
			Signature: uc.signer.Sign(booking.Code, breakdown.Total, booking.Currency),
		}

		// 2.4. CASH пропускает этап оплаты
		if req.Method == domain.MethodCash {
			to := domain.StateConfirmedPendingAssignment
			if !domain.CanTransition(booking.State, to) {
				uc.logger.Warn("SwitchPaymentMethod: booking %s cannot move %s -> %s", booking.Code, booking.State, to)
				return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, booking.State, to)
			}
			update.Transition = &domain.StateChange{From: booking.State, To: to}
		}

		if err := uc.bookingRepo.UpdatePricing(txCtx, booking.ID, update); err != nil {
			if errors.Is(err, bookingRepo.ErrStateConflict) {
				uc.logger.Warn("SwitchPaymentMethod: booking %s changed concurrently", booking.Code)
				return ErrConcurrentModification
			}
			uc.logger.Error("SwitchPaymentMethod: failed to update booking %s: %v", booking.Code, err)
			return fmt.Errorf("%w: failed to update pricing: %v", ErrInternal, err)
		}

		previous := booking.State
		booking.PaymentMethod = update.Method
		booking.Breakdown = update.Breakdown
		booking.Signature = update.Signature

		uc.logger.Info("SwitchPaymentMethod: booking %s method=%s total=%s commission=%s",
			booking.Code, booking.PaymentMethod, booking.Breakdown.Total, booking.Breakdown.Commission)

		// 2.5. Уведомление о переходе
		if update.Transition != nil {
			booking.State = update.Transition.To
			uc.notifier.TransitionApplied(txCtx, domain.TransitionEvent{
				Booking:       booking,
				PreviousState: previous,
				NewState:      booking.State,
				Source:        domain.SourceMethodSwitch,
				OccurredAt:    uc.timeProvider.Now(),
			})
		}

		resp = &Response{Booking: booking, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (uc *UseCase) ensureSignature(ctx context.Context, booking *domain.Booking) error {
	if !uc.signer.Refresh(booking) {
		return nil
	}

	if err := uc.bookingRepo.UpdateSignature(ctx, booking.ID, booking.Signature); err != nil {
		uc.logger.Error("SwitchPaymentMethod: failed to repair signature of %s: %v", booking.Code, err)
		return fmt.Errorf("%w: failed to repair signature: %v", ErrInternal, err)
	}

	uc.logger.Info("SwitchPaymentMethod: repaired stale signature of %s", booking.Code)
	return nil
}
