package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/booking"
	orderRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/order"
	"github.com/m04kA/SMC-ReservationService/internal/service/bookings/models"
)

// Service чтение бронирований и заказов и выдача подписи для оплаты.
// Каждое чтение сверяет подпись с текущей суммой и сохраняет новую, если она устарела
type Service struct {
	bookingRepo BookingRepository
	orderRepo   OrderRepository
	signer      Signer
	metrics     Metrics
	txManager   TransactionManager
	logger      Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	orderRepo OrderRepository,
	signer Signer,
	metrics Metrics,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		orderRepo:   orderRepo,
		signer:      signer,
		metrics:     metrics,
		txManager:   txManager,
		logger:      logger,
	}
}

// GetBooking получает бронирование по коду
func (s *Service) GetBooking(ctx context.Context, code string) (*models.BookingResponse, error) {
	ref, err := parseRef(code, domain.KindBooking)
	if err != nil {
		s.logger.Warn("GetBooking: %v", err)
		return nil, err
	}

	s.logger.Info("GetBooking: fetching booking code=%s", ref.Code)

	var booking *domain.Booking
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.bookingRepo.GetByCode(txCtx, ref.Code)
		if err != nil {
			return s.bookingError("GetBooking", ref.Code, err)
		}
		return s.ensureBookingSignature(txCtx, booking)
	})
	if err != nil {
		return nil, err
	}

	return models.FromDomainBooking(booking), nil
}

// GetOrder получает заказ с бронированиями по коду.
// Итог заказа пересчитывается как сумма итогов бронирований
func (s *Service) GetOrder(ctx context.Context, code string) (*models.OrderResponse, error) {
	ref, err := parseRef(code, domain.KindOrder)
	if err != nil {
		s.logger.Warn("GetOrder: %v", err)
		return nil, err
	}

	s.logger.Info("GetOrder: fetching order code=%s", ref.Code)

	var order *domain.Order
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orderRepo.GetByCode(txCtx, ref.Code)
		if err != nil {
			return s.orderError("GetOrder", ref.Code, err)
		}
		return s.loadOrder(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	return models.FromDomainOrder(order), nil
}

// IssueSignature выдаёт подпись для формы оплаты. Повторный вызов возвращает тот же результат.
// Бронирование в составе заказа оплачивается через заказ, поэтому подпись выдаётся на заказ
func (s *Service) IssueSignature(ctx context.Context, req *models.IssueSignatureRequest) (*models.SignatureResponse, error) {
	bookingID, orderID, err := parseSignatureRequest(req)
	if err != nil {
		s.logger.Warn("IssueSignature: %v", err)
		return nil, err
	}

	var resp *models.SignatureResponse
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if bookingID != nil {
			booking, err := s.bookingRepo.GetByID(txCtx, *bookingID)
			if err != nil {
				return s.bookingError("IssueSignature", bookingID.String(), err)
			}

			if booking.BelongsToOrder() {
				s.logger.Info("IssueSignature: booking %s is paid through its order", booking.Code)
				orderID = booking.OrderID
			} else {
				if booking.State == domain.StatePendingQuote || booking.State == domain.StateCancelled {
					s.logger.Warn("IssueSignature: booking %s is in state %s", booking.Code, booking.State)
					return fmt.Errorf("%w: state %s", ErrNotPayable, booking.State)
				}
				if err := s.ensureBookingSignature(txCtx, booking); err != nil {
					return err
				}
				resp = s.signatureResponse(booking.Code, booking.Breakdown.Total.Round(0), booking.Currency, booking.Signature)
				return nil
			}
		}

		order, err := s.orderRepo.GetByID(txCtx, *orderID)
		if err != nil {
			return s.orderError("IssueSignature", orderID.String(), err)
		}
		if err := s.loadOrder(txCtx, order); err != nil {
			return err
		}
		resp = s.signatureResponse(order.Code, order.TotalPrice.Round(0), order.Currency, order.Signature)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("IssueSignature: issued signature for %s (mode=%s)", resp.OrderCode, resp.IntegrityMode)
	return resp, nil
}

// loadOrder подгружает бронирования заказа и чинит суммы и подписи
func (s *Service) loadOrder(ctx context.Context, order *domain.Order) error {
	members, err := s.bookingRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		s.logger.Error("loadOrder: failed to list bookings of order %s: %v", order.Code, err)
		return fmt.Errorf("%w: loadOrder - repository error: %v", ErrInternal, err)
	}
	order.Bookings = members

	for _, b := range members {
		if err := s.ensureBookingSignature(ctx, b); err != nil {
			return err
		}
	}

	total := order.MembersTotal()
	totalChanged := !total.Equal(order.TotalPrice)
	if totalChanged {
		s.logger.Warn("loadOrder: order %s total %s differs from members total %s", order.Code, order.TotalPrice, total)
		order.TotalPrice = total
	}

	if !s.signer.RefreshOrder(order) && !totalChanged {
		return nil
	}

	if err := s.orderRepo.UpdateTotals(ctx, order.ID, order.TotalPrice, order.Signature); err != nil {
		s.logger.Error("loadOrder: failed to repair order %s: %v", order.Code, err)
		return fmt.Errorf("%w: loadOrder - repair order: %v", ErrInternal, err)
	}
	s.metrics.IncSignatureRepair(string(domain.KindOrder))
	s.logger.Info("loadOrder: repaired signature of order %s", order.Code)
	return nil
}

func (s *Service) ensureBookingSignature(ctx context.Context, booking *domain.Booking) error {
	if !s.signer.Refresh(booking) {
		return nil
	}

	if err := s.bookingRepo.UpdateSignature(ctx, booking.ID, booking.Signature); err != nil {
		s.logger.Error("ensureBookingSignature: failed to repair %s: %v", booking.Code, err)
		return fmt.Errorf("%w: ensureBookingSignature - repository error: %v", ErrInternal, err)
	}
	s.metrics.IncSignatureRepair(string(domain.KindBooking))
	s.logger.Info("ensureBookingSignature: repaired signature of booking %s", booking.Code)
	return nil
}

func (s *Service) signatureResponse(code string, amount decimal.Decimal, currency, sig string) *models.SignatureResponse {
	return &models.SignatureResponse{
		OrderCode:     code,
		Amount:        amount,
		Currency:      currency,
		Signature:     sig,
		IntegrityMode: string(s.signer.Mode()),
	}
}

func (s *Service) bookingError(op, key string, err error) error {
	if errors.Is(err, bookingRepo.ErrBookingNotFound) {
		s.logger.Warn("%s: booking %s not found", op, key)
		return ErrBookingNotFound
	}
	s.logger.Error("%s: repository error for booking %s: %v", op, key, err)
	return fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
}

func (s *Service) orderError(op, key string, err error) error {
	if errors.Is(err, orderRepo.ErrOrderNotFound) {
		s.logger.Warn("%s: order %s not found", op, key)
		return ErrOrderNotFound
	}
	s.logger.Error("%s: repository error for order %s: %v", op, key, err)
	return fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
}

func parseRef(code string, kind domain.AggregateKind) (domain.AggregateRef, error) {
	ref, err := domain.ParseAggregateRef(code)
	if err != nil {
		return ref, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if ref.Kind != kind {
		return ref, fmt.Errorf("%w: %s is not a %s code", ErrInvalidInput, ref.Code, kind)
	}
	return ref, nil
}

func parseSignatureRequest(req *models.IssueSignatureRequest) (*uuid.UUID, *uuid.UUID, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("%w: empty request", ErrInvalidInput)
	}

	bookingID, err := parseOptionalID(req.BookingID, "bookingId")
	if err != nil {
		return nil, nil, err
	}
	orderID, err := parseOptionalID(req.OrderID, "orderId")
	if err != nil {
		return nil, nil, err
	}

	if (bookingID == nil) == (orderID == nil) {
		return nil, nil, fmt.Errorf("%w: exactly one of bookingId or orderId is required", ErrInvalidInput)
	}
	return bookingID, orderID, nil
}

func parseOptionalID(raw *string, name string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", ErrInvalidInput, name)
	}
	return &id, nil
}
