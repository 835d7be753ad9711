package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-ReservationService/internal/api/handlers/create_checkout"
	"github.com/m04kA/SMC-ReservationService/internal/api/handlers/get_booking"
	"github.com/m04kA/SMC-ReservationService/internal/api/handlers/get_order"
	"github.com/m04kA/SMC-ReservationService/internal/api/handlers/health"
	"github.com/m04kA/SMC-ReservationService/internal/api/handlers/issue_signature"
	"github.com/m04kA/SMC-ReservationService/internal/api/handlers/payment_callback"
	switchPaymentMethodHandler "github.com/m04kA/SMC-ReservationService/internal/api/handlers/switch_payment_method"
	transitionStateHandler "github.com/m04kA/SMC-ReservationService/internal/api/handlers/transition_state"
	"github.com/m04kA/SMC-ReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ReservationService/internal/config"
	"github.com/m04kA/SMC-ReservationService/internal/infra/lock"
	bookingRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/booking"
	orderRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/order"
	outboxRepo "github.com/m04kA/SMC-ReservationService/internal/infra/storage/outbox"
	catalogServiceClient "github.com/m04kA/SMC-ReservationService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-ReservationService/internal/integrations/kafkapub"
	"github.com/m04kA/SMC-ReservationService/internal/integrations/rabbitpub"
	bookingsService "github.com/m04kA/SMC-ReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ReservationService/internal/service/notifications"
	"github.com/m04kA/SMC-ReservationService/internal/service/pricing"
	"github.com/m04kA/SMC-ReservationService/internal/service/signature"
	createCheckoutUC "github.com/m04kA/SMC-ReservationService/internal/usecase/create_checkout"
	reconcilePaymentUC "github.com/m04kA/SMC-ReservationService/internal/usecase/reconcile_payment"
	switchPaymentMethodUC "github.com/m04kA/SMC-ReservationService/internal/usecase/switch_payment_method"
	transitionStateUC "github.com/m04kA/SMC-ReservationService/internal/usecase/transition_state"
	"github.com/m04kA/SMC-ReservationService/internal/worker/outboxrelay"
	"github.com/m04kA/SMC-ReservationService/migrations"
	"github.com/m04kA/SMC-ReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ReservationService/pkg/logger"
	"github.com/m04kA/SMC-ReservationService/pkg/metrics"
	"github.com/m04kA/SMC-ReservationService/pkg/txmanager"
	"github.com/m04kA/SMC-ReservationService/pkg/types"
)

// publisher брокер для доставки уведомлений
type publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
	Close() error
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ReservationService...")
	log.Info("Configuration loaded from config.toml (payments mode=%s)", cfg.Payments.Mode)

	// Бизнес-метрики нужны use case'ам всегда, флаг управляет только экспортом
	metricsCollector := metrics.New(cfg.Metrics.ServiceName)
	stopMetricsCh := make(chan struct{})

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if err := migrations.Apply(context.Background(), db); err != nil {
		log.Fatal("Failed to apply migrations: %v", err)
	}
	log.Info("Database migrations applied")

	wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Репозитории
	bookingRepository := bookingRepo.NewRepository(wrappedDB)
	orderRepository := orderRepo.NewRepository(wrappedDB)
	outboxRepository := outboxRepo.NewRepository(wrappedDB)

	// Redis: блокировки сверки и rate limit. Недоступность Redis не останавливает сервис
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis is unavailable at %s, reconciliation relies on row locks: %v", cfg.Redis.Addr, err)
	} else {
		log.Info("Successfully connected to Redis (addr=%s)", cfg.Redis.Addr)
	}
	pingCancel()

	locker := lock.NewRedisLocker(rdb, lock.Config{
		TTL:         cfg.Redis.LockTTL(),
		WaitTimeout: cfg.Redis.LockWaitTimeout(),
	})

	// Интеграции
	catalogClient := catalogServiceClient.NewClient(
		cfg.CatalogService.URL,
		time.Duration(cfg.CatalogService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (CatalogService=%s timeout=%ds)",
		cfg.CatalogService.URL, cfg.CatalogService.Timeout)

	// Ценообразование и подпись
	surcharge, err := cfg.Pricing.SurchargeAmount()
	if err != nil {
		log.Fatal("Invalid night surcharge: %v", err)
	}
	location, err := cfg.Pricing.Location()
	if err != nil {
		log.Fatal("Invalid pricing timezone: %v", err)
	}
	engine := pricing.NewEngine(pricing.NightSurchargeConfig{
		Start:    types.TimeString(cfg.Pricing.NightStart),
		End:      types.TimeString(cfg.Pricing.NightEnd),
		Amount:   surcharge,
		Location: location,
	})

	signer, err := signature.NewSigner(
		signature.Mode(cfg.Payments.Mode),
		cfg.Payments.SandboxSecret,
		cfg.Payments.LiveSecret,
	)
	if err != nil {
		log.Fatal("Failed to initialize signer: %v", err)
	}

	dispatcher := notifications.NewDispatcher(outboxRepository, metricsCollector, log)

	// Инициализируем сервисы
	bookingSvc := bookingsService.NewService(
		bookingRepository,
		orderRepository,
		signer,
		metricsCollector,
		txMgr,
		log,
	)

	// Инициализируем use cases
	createCheckoutUseCase := createCheckoutUC.NewUseCase(
		bookingRepository,
		orderRepository,
		catalogClient,
		engine,
		signer,
		txMgr,
		log,
	)
	reconcilePaymentUseCase := reconcilePaymentUC.NewUseCase(
		bookingRepository,
		orderRepository,
		dispatcher,
		locker,
		metricsCollector,
		txMgr,
		log,
	)
	switchPaymentMethodUseCase := switchPaymentMethodUC.NewUseCase(
		bookingRepository,
		engine,
		signer,
		dispatcher,
		txMgr,
		log,
	)
	transitionStateUseCase := transitionStateUC.NewUseCase(
		bookingRepository,
		dispatcher,
		metricsCollector,
		txMgr,
		log,
	)

	// Инициализируем handlers
	createCheckout := create_checkout.NewHandler(createCheckoutUseCase, log)
	getBooking := get_booking.NewHandler(bookingSvc, log)
	getOrder := get_order.NewHandler(bookingSvc, log)
	issueSignature := issue_signature.NewHandler(bookingSvc, log)
	paymentCallback := payment_callback.NewHandler(reconcilePaymentUseCase, log)
	switchPaymentMethod := switchPaymentMethodHandler.NewHandler(switchPaymentMethodUseCase, log)
	transitionState := transitionStateHandler.NewHandler(transitionStateUseCase, log)
	healthCheck := health.NewHandler(db)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health", healthCheck.Handle).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES
	// ============================================================

	// Корзина: одно бронирование или заказ
	api.HandleFunc("/checkout", createCheckout.Handle).Methods(http.MethodPost)

	// Чтение бронирования и заказа
	api.HandleFunc("/bookings/{code}", getBooking.Handle).Methods(http.MethodGet)
	api.HandleFunc("/orders/{code}", getOrder.Handle).Methods(http.MethodGet)

	// Подпись для формы оплаты
	api.HandleFunc("/payments/signature", issueSignature.Handle).Methods(http.MethodGet)

	// Смена способа оплаты до оплаты
	api.HandleFunc("/bookings/{code}/payment-method", switchPaymentMethod.Handle).Methods(http.MethodPatch)

	// ============================================================
	// PROVIDER WEBHOOK (rate limit по IP)
	// ============================================================

	var webhook http.Handler = http.HandlerFunc(paymentCallback.Handle)
	if cfg.RateLimit.Enabled {
		webhook = middleware.RateLimit(
			rdb,
			cfg.RateLimit.Requests,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
			log,
		)(webhook)
		log.Info("Webhook rate limit enabled: %d requests per %ds", cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
	}
	api.Handle("/payments/webhook", webhook).Methods(http.MethodPost)

	// ============================================================
	// ADMIN ROUTES (требуют X-Admin-Key header)
	// ============================================================

	adminGate := middleware.AdminKey(cfg.Admin.APIKey, log)
	api.Handle("/bookings/{code}/state", adminGate(http.HandlerFunc(transitionState.Handle))).Methods(http.MethodPatch)
	if cfg.Admin.APIKey == "" {
		log.Warn("ADMIN_API_KEY is not set, admin routes reject every request")
	}

	// Фоновая доставка уведомлений
	relayCtx, stopRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})

	pub, err := newPublisher(cfg.Notifications)
	if err != nil {
		log.Fatal("Failed to initialize notification publisher: %v", err)
	}
	if pub != nil {
		relay := outboxrelay.NewRelay(outboxRepository, pub, txMgr, metricsCollector, log, outboxrelay.Config{
			PollInterval:   time.Duration(cfg.Notifications.PollIntervalMs) * time.Millisecond,
			BatchSize:      cfg.Notifications.BatchSize,
			MaxAttempts:    cfg.Notifications.MaxAttempts,
			BaseBackoff:    time.Duration(cfg.Notifications.BaseBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Notifications.MaxBackoffSec) * time.Second,
			PublishTimeout: time.Duration(cfg.Notifications.PublishTimeoutMs) * time.Millisecond,
		})
		go func() {
			defer close(relayDone)
			if err := relay.Run(relayCtx); err != nil {
				log.Error("Outbox relay stopped with error: %v", err)
			}
		}()
		log.Info("Outbox relay started (broker=%s)", cfg.Notifications.Broker)
	} else {
		close(relayDone)
		log.Warn("Notification broker is not configured, outbox messages stay pending")
	}

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Останавливаем релей после HTTP: последние переходы уже в outbox
	stopRelay()
	select {
	case <-relayDone:
	case <-shutdownCtx.Done():
		log.Warn("Outbox relay did not stop in time")
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			log.Error("Failed to close notification publisher: %v", err)
		}
	}

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	log.Info("Server stopped gracefully")
}

// newPublisher создает publisher по конфигурации. nil, если брокер выключен
func newPublisher(cfg config.NotificationsConfig) (publisher, error) {
	timeout := time.Duration(cfg.PublishTimeoutMs) * time.Millisecond

	switch cfg.Broker {
	case config.BrokerKafka:
		return kafkapub.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, timeout), nil
	case config.BrokerRabbitMQ:
		return rabbitpub.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue), nil
	case config.BrokerNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}
