package create_checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/booking"
	orderRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/order"
	"github.com/m04kA/SMC-ReservationService/internal/integrations/catalogservice"
)

// maxCodeAttempts попытки создать агрегат при коллизии сгенерированного кода
const maxCodeAttempts = 3

var errDuplicateCode = errors.New("create_checkout: duplicate code")

// UseCase use case оформления корзины: одно бронирование или заказ из нескольких
type UseCase struct {
	bookingRepo   BookingRepository
	orderRepo     OrderRepository
	catalogClient CatalogServiceClient
	engine        PricingEngine
	signer        Signer
	txManager     TransactionManager
	timeProvider  TimeProvider
	logger        Logger

	newBookingCode func(quoteFirst bool) (string, error)
	newOrderCode   func() (string, error)
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	orderRepo OrderRepository,
	catalogClient CatalogServiceClient,
	engine PricingEngine,
	signer Signer,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:    bookingRepo,
		orderRepo:      orderRepo,
		catalogClient:  catalogClient,
		engine:         engine,
		signer:         signer,
		txManager:      txManager,
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
		newBookingCode: domain.NewBookingCode,
		newOrderCode:   domain.NewOrderCode,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute выполняет use case оформления корзины.
// Все записи выполняются в одной сериализуемой транзакции
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Получаем текущее время
	now := uc.timeProvider.Now()

	// 2. Валидация входных данных
	if err := validateRequest(req, now); err != nil {
		uc.logger.Warn("CreateCheckout: validation failed: %v", err)
		return nil, err
	}

	uc.logger.Info("CreateCheckout: items=%d, channel=%s, method=%s", len(req.Items), req.Channel, req.Method)

	// 3. Канал продаж: при недоступности каталога ручная оплата запрещена
	channel, err := uc.catalogClient.GetChannelWithGracefulDegradation(ctx, req.Channel)
	if err != nil {
		uc.logger.Warn("CreateCheckout: channel %s: %v", req.Channel, err)
	}
	eligible := channel != nil && channel.ManualPaymentEligible

	if req.Method == domain.MethodCash && !eligible {
		uc.logger.Warn("CreateCheckout: channel %s is not eligible for cash payment", req.Channel)
		return nil, fmt.Errorf("%w: channel %q", ErrChannelNotEligible, req.Channel)
	}

	// 4. Черновики бронирований с расчётом цены
	drafts := make([]*domain.Booking, 0, len(req.Items))
	for i := range req.Items {
		draft, err := uc.draftBooking(ctx, &req.Items[i], req, eligible, now)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}

	// 5. Сохраняем, при коллизии кода генерируем новый и повторяем транзакцию целиком
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		resp, err := uc.persist(ctx, drafts, req.CustomerEmail)
		if err == nil {
			uc.logger.Info("CreateCheckout: created %s %s", resp.Kind, resp.Code())
			return resp, nil
		}
		if !errors.Is(err, errDuplicateCode) {
			return nil, err
		}
		uc.logger.Warn("CreateCheckout: generated code collision, attempt %d/%d", attempt, maxCodeAttempts)
	}

	uc.logger.Error("CreateCheckout: could not generate a unique code after %d attempts", maxCodeAttempts)
	return nil, fmt.Errorf("%w: could not generate a unique code", ErrInternal)
}

// draftBooking собирает бронирование по данным каталога
func (uc *UseCase) draftBooking(ctx context.Context, item *Item, req *Request, eligible bool, now time.Time) (*domain.Booking, error) {
	service, err := uc.catalogClient.GetService(ctx, item.ServiceID)
	if err != nil {
		if errors.Is(err, catalogservice.ErrServiceNotFound) {
			uc.logger.Warn("CreateCheckout: service id=%d not found", item.ServiceID)
			return nil, fmt.Errorf("%w: id=%d", ErrServiceNotFound, item.ServiceID)
		}
		uc.logger.Error("CreateCheckout: failed to get service id=%d: %v", item.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if !service.Active {
		uc.logger.Warn("CreateCheckout: service id=%d is not active", item.ServiceID)
		return nil, fmt.Errorf("%w: id=%d", ErrServiceInactive, item.ServiceID)
	}

	vehiclePrice := decimal.Zero
	if item.VehicleID != nil {
		vehicle, err := uc.catalogClient.GetVehicle(ctx, *item.VehicleID)
		if err != nil {
			if errors.Is(err, catalogservice.ErrVehicleNotFound) {
				uc.logger.Warn("CreateCheckout: vehicle id=%d not found", *item.VehicleID)
				return nil, fmt.Errorf("%w: id=%d", ErrVehicleNotFound, *item.VehicleID)
			}
			uc.logger.Error("CreateCheckout: failed to get vehicle id=%d: %v", *item.VehicleID, err)
			return nil, fmt.Errorf("%w: failed to get vehicle: %v", ErrInternal, err)
		}
		vehiclePrice = vehicle.Price
	}

	// Ночная надбавка оценивается по времени услуги, без расписания по времени оформления
	pricedAt := now
	if item.ScheduledAt != nil {
		pricedAt = *item.ScheduledAt
	}

	inputs := domain.PricingInputs{
		BasePrice:        service.BasePrice,
		VehiclePrice:     vehiclePrice,
		AllyDiscount:     item.AllyDiscount,
		AdditionalsTotal: item.AdditionalsTotal,
		PricedAt:         pricedAt,
	}
	municipality := strings.TrimSpace(item.Municipality)
	breakdown := uc.engine.Compute(inputs, municipality, req.Method)

	state := domain.StateConfirmedPendingPayment
	switch {
	case service.QuoteFirst || breakdown.RequiresManualQuote:
		state = domain.StatePendingQuote
	case req.Method == domain.MethodCash:
		state = domain.StateConfirmedPendingAssignment
	}

	return &domain.Booking{
		State:                 state,
		PaymentState:          domain.PaymentPending,
		PaymentMethod:         req.Method,
		Channel:               req.Channel,
		ManualPaymentEligible: eligible,
		ServiceID:             service.ID,
		ServiceName:           service.Name,
		VehicleID:             item.VehicleID,
		Municipality:          municipality,
		ScheduledAt:           item.ScheduledAt,
		Pricing:               inputs,
		Breakdown:             breakdown,
		Currency:              domain.DefaultCurrency,
		CustomerEmail:         req.CustomerEmail,
	}, nil
}

// persist генерирует коды и подписи и сохраняет агрегат
func (uc *UseCase) persist(ctx context.Context, drafts []*domain.Booking, email string) (*Response, error) {
	for _, b := range drafts {
		code, err := uc.newBookingCode(b.State == domain.StatePendingQuote)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		b.Code = code
		b.Signature = uc.signer.Sign(b.Code, b.Breakdown.Total, b.Currency)
	}

	if len(drafts) == 1 {
		booking := drafts[0]
		err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
			return uc.createBooking(txCtx, booking)
		})
		if err != nil {
			return nil, err
		}
		return &Response{Kind: domain.KindBooking, Booking: booking}, nil
	}

	orderCode, err := uc.newOrderCode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	order := &domain.Order{
		Code:          orderCode,
		PaymentState:  domain.PaymentPending,
		Currency:      domain.DefaultCurrency,
		CustomerEmail: email,
		Bookings:      drafts,
	}
	order.TotalPrice = order.MembersTotal()
	order.Signature = uc.signer.Sign(order.Code, order.TotalPrice, order.Currency)

	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.Create(txCtx, order); err != nil {
			if errors.Is(err, orderRepo.ErrDuplicateCode) {
				return errDuplicateCode
			}
			uc.logger.Error("CreateCheckout: failed to create order %s: %v", order.Code, err)
			return fmt.Errorf("%w: failed to create order: %v", ErrInternal, err)
		}

		for _, b := range order.Bookings {
			orderID := order.ID
			b.OrderID = &orderID
			if err := uc.createBooking(txCtx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Response{Kind: domain.KindOrder, Order: order}, nil
}

func (uc *UseCase) createBooking(ctx context.Context, b *domain.Booking) error {
	if err := uc.bookingRepo.Create(ctx, b); err != nil {
		if errors.Is(err, bookingRepo.ErrDuplicateCode) {
			return errDuplicateCode
		}
		uc.logger.Error("CreateCheckout: failed to create booking %s: %v", b.Code, err)
		return fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
	}
	return nil
}
