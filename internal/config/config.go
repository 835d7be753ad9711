package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/service/signature"
	"github.com/m04kA/SMC-ReservationService/pkg/types"
)

// ErrInvalidConfig возвращается, когда конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
	BrokerNone     = "none"
)

// Config конфигурация сервиса
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Database       DatabaseConfig       `toml:"database"`
	Logs           LogsConfig           `toml:"logs"`
	Metrics        MetricsConfig        `toml:"metrics"`
	Redis          RedisConfig          `toml:"redis"`
	Payments       PaymentsConfig       `toml:"payments"`
	Pricing        PricingConfig        `toml:"pricing"`
	Notifications  NotificationsConfig  `toml:"notifications"`
	CatalogService CatalogServiceConfig `toml:"catalog_service"`
	Admin          AdminConfig          `toml:"admin"`
	RateLimit      RateLimitConfig      `toml:"rate_limit"`
}

// ServerConfig таймауты в секундах
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	LockTTLMs         int `toml:"lock_ttl_ms"`
	LockWaitTimeoutMs int `toml:"lock_wait_timeout_ms"`
}

func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMs) * time.Millisecond
}

func (c RedisConfig) LockWaitTimeout() time.Duration {
	return time.Duration(c.LockWaitTimeoutMs) * time.Millisecond
}

// PaymentsConfig режим провайдера и секреты подписи. Секреты задаются через окружение
type PaymentsConfig struct {
	Mode          string `toml:"mode"`
	SandboxSecret string `toml:"sandbox_secret"`
	LiveSecret    string `toml:"live_secret"`
}

// PricingConfig окно ночной надбавки в формате HH:MM
type PricingConfig struct {
	NightStart     string `toml:"night_start"`
	NightEnd       string `toml:"night_end"`
	NightSurcharge string `toml:"night_surcharge"`
	Timezone       string `toml:"timezone"`
}

// SurchargeAmount размер ночной надбавки
func (c PricingConfig) SurchargeAmount() (decimal.Decimal, error) {
	if c.NightSurcharge == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(c.NightSurcharge)
}

// Location часовой пояс, в котором читается окно надбавки
func (c PricingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

type NotificationsConfig struct {
	Broker   string         `toml:"broker"`
	Kafka    KafkaConfig    `toml:"kafka"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`

	PollIntervalMs   int `toml:"poll_interval_ms"`
	BatchSize        int `toml:"batch_size"`
	MaxAttempts      int `toml:"max_attempts"`
	BaseBackoffMs    int `toml:"base_backoff_ms"`
	MaxBackoffSec    int `toml:"max_backoff_sec"`
	PublishTimeoutMs int `toml:"publish_timeout_ms"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type RabbitMQConfig struct {
	URL   string `toml:"url"`
	Queue string `toml:"queue"`
}

type CatalogServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

type AdminConfig struct {
	APIKey string `toml:"api_key"`
}

type RateLimitConfig struct {
	Enabled       bool `toml:"enabled"`
	Requests      int  `toml:"requests"`
	WindowSeconds int  `toml:"window_seconds"`
}

// Load читает TOML файл, затем .env (если есть) и переменные окружения
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	// .env необязателен
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "reservation",
		},
		Redis: RedisConfig{
			Addr:              "localhost:6379",
			LockTTLMs:         10000,
			LockWaitTimeoutMs: 2000,
		},
		Payments: PaymentsConfig{
			Mode: string(signature.ModeSandbox),
		},
		Pricing: PricingConfig{
			NightStart:     "21:00",
			NightEnd:       "05:00",
			NightSurcharge: "20000",
			Timezone:       "America/Bogota",
		},
		Notifications: NotificationsConfig{
			Broker:           BrokerNone,
			PollIntervalMs:   2000,
			BatchSize:        50,
			MaxAttempts:      10,
			BaseBackoffMs:    1000,
			MaxBackoffSec:    600,
			PublishTimeoutMs: 5000,
		},
		CatalogService: CatalogServiceConfig{
			Timeout: 5,
		},
		RateLimit: RateLimitConfig{
			Requests:      120,
			WindowSeconds: 60,
		},
	}
}

// applyEnv переопределяет секреты и режим из окружения
func (c *Config) applyEnv() error {
	overrides := []struct {
		key    string
		target *string
	}{
		{"DB_PASSWORD", &c.Database.Password},
		{"PAYMENTS_MODE", &c.Payments.Mode},
		{"PAYMENTS_SANDBOX_SECRET", &c.Payments.SandboxSecret},
		{"PAYMENTS_LIVE_SECRET", &c.Payments.LiveSecret},
		{"ADMIN_API_KEY", &c.Admin.APIKey},
		{"REDIS_PASSWORD", &c.Redis.Password},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok {
			*o.target = v
		}
	}

	if v, ok := os.LookupEnv("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: HTTP_PORT: %v", ErrInvalidConfig, err)
		}
		c.Server.HTTPPort = port
	}

	return nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	mode := signature.Mode(c.Payments.Mode)
	if !mode.IsValid() {
		return fmt.Errorf("%w: payments.mode must be sandbox or live, got %q", ErrInvalidConfig, c.Payments.Mode)
	}
	if mode == signature.ModeSandbox && c.Payments.SandboxSecret == "" {
		return fmt.Errorf("%w: sandbox secret is required (PAYMENTS_SANDBOX_SECRET)", ErrInvalidConfig)
	}
	if mode == signature.ModeLive && c.Payments.LiveSecret == "" {
		return fmt.Errorf("%w: live secret is required (PAYMENTS_LIVE_SECRET)", ErrInvalidConfig)
	}

	for name, v := range map[string]string{"pricing.night_start": c.Pricing.NightStart, "pricing.night_end": c.Pricing.NightEnd} {
		if err := types.TimeString(v).Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	amount, err := c.Pricing.SurchargeAmount()
	if err != nil || amount.IsNegative() {
		return fmt.Errorf("%w: pricing.night_surcharge must be a non-negative amount, got %q", ErrInvalidConfig, c.Pricing.NightSurcharge)
	}
	if _, err := c.Pricing.Location(); err != nil {
		return fmt.Errorf("%w: pricing.timezone: %v", ErrInvalidConfig, err)
	}

	switch c.Notifications.Broker {
	case BrokerKafka:
		if len(c.Notifications.Kafka.Brokers) == 0 || c.Notifications.Kafka.Topic == "" {
			return fmt.Errorf("%w: notifications.kafka requires brokers and topic", ErrInvalidConfig)
		}
	case BrokerRabbitMQ:
		if c.Notifications.RabbitMQ.URL == "" || c.Notifications.RabbitMQ.Queue == "" {
			return fmt.Errorf("%w: notifications.rabbitmq requires url and queue", ErrInvalidConfig)
		}
	case BrokerNone:
	default:
		return fmt.Errorf("%w: notifications.broker must be kafka, rabbitmq or none, got %q", ErrInvalidConfig, c.Notifications.Broker)
	}

	if c.CatalogService.URL == "" {
		return fmt.Errorf("%w: catalog_service.url is required", ErrInvalidConfig)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.WindowSeconds <= 0) {
		return fmt.Errorf("%w: rate_limit requires positive requests and window_seconds", ErrInvalidConfig)
	}

	return nil
}
