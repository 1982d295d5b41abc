package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Razorpay      RazorpayConfig      `mapstructure:"razorpay"`
	PayU          PayUConfig          `mapstructure:"payu"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`

	// RateLimitPerMinute throttles order creation per client IP.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
	// JWTSecret guards the refund endpoint. Empty disables auth, for
	// local development only.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// PaymentConfig holds gateway-independent payment settings.
type PaymentConfig struct {
	Currency       string        `mapstructure:"currency"`
	SurchargeMinor int64         `mapstructure:"surcharge_minor"`
	ResultURL      string        `mapstructure:"result_url"`
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// AmountBounds is the per-gateway [min, max] order amount in minor units.
type AmountBounds struct {
	MinMinor int64 `mapstructure:"min_minor"`
	MaxMinor int64 `mapstructure:"max_minor"`
}

// Contains reports whether the amount falls inside the bounds.
func (b AmountBounds) Contains(amountMinor int64) bool {
	return amountMinor >= b.MinMinor && amountMinor <= b.MaxMinor
}

type RazorpayConfig struct {
	Enabled       bool         `mapstructure:"enabled"`
	KeyID         string       `mapstructure:"key_id"`
	KeySecret     string       `mapstructure:"key_secret"`
	WebhookSecret string       `mapstructure:"webhook_secret"`
	BaseURL       string       `mapstructure:"base_url"`
	Bounds        AmountBounds `mapstructure:"bounds"`
}

type PayUConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Key         string       `mapstructure:"key"`
	Salt        string       `mapstructure:"salt"`
	CheckoutURL string       `mapstructure:"checkout_url"`
	ServiceURL  string       `mapstructure:"service_url"`
	Bounds      AmountBounds `mapstructure:"bounds"`
}

// WorkerConfig drives the stale-order monitor.
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StaleAfter   time.Duration `mapstructure:"stale_after"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("REGPAY")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/regpay")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate fails fast on broken configuration. Enabling a gateway without
// its credentials is a ConfigurationError, not something to discover on the
// first webhook.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Payment.ResultURL == "" {
		errs = append(errs, fmt.Errorf("payment.result_url is required"))
	}
	if c.Payment.GatewayTimeout <= 0 {
		errs = append(errs, fmt.Errorf("payment.gateway_timeout must be positive"))
	}
	if c.Payment.SurchargeMinor < 0 {
		errs = append(errs, fmt.Errorf("payment.surcharge_minor must not be negative"))
	}

	if !c.Razorpay.Enabled && !c.PayU.Enabled {
		errs = append(errs, fmt.Errorf("at least one gateway must be enabled"))
	}
	if c.Razorpay.Enabled {
		if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" {
			errs = append(errs, fmt.Errorf("razorpay.key_id and razorpay.key_secret required when razorpay is enabled"))
		}
		if c.Razorpay.WebhookSecret == "" {
			errs = append(errs, fmt.Errorf("razorpay.webhook_secret required when razorpay is enabled"))
		}
		if err := c.Razorpay.Bounds.validate("razorpay"); err != nil {
			errs = append(errs, err)
		}
	}
	if c.PayU.Enabled {
		if c.PayU.Key == "" || c.PayU.Salt == "" {
			errs = append(errs, fmt.Errorf("payu.key and payu.salt required when payu is enabled"))
		}
		if err := c.PayU.Bounds.validate("payu"); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b AmountBounds) validate(gateway string) error {
	if b.MinMinor <= 0 {
		return fmt.Errorf("%s.bounds.min_minor must be positive", gateway)
	}
	if b.MaxMinor < b.MinMinor {
		return fmt.Errorf("%s.bounds.max_minor must not be below min_minor", gateway)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.rate_limit_per_minute", 120)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "regpay")
	v.SetDefault("database.database", "regpay")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Payment defaults
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.surcharge_minor", 0)
	v.SetDefault("payment.gateway_timeout", "10s")
	v.SetDefault("payment.idempotency_ttl", "24h")

	// Gateway defaults: razorpay on with sandbox-ish bounds, payu off
	v.SetDefault("razorpay.enabled", true)
	v.SetDefault("razorpay.bounds.min_minor", 100)
	v.SetDefault("razorpay.bounds.max_minor", 50_000_00)
	v.SetDefault("payu.enabled", false)
	v.SetDefault("payu.bounds.min_minor", 100)
	v.SetDefault("payu.bounds.max_minor", 50_000_00)

	// Worker defaults
	v.SetDefault("worker.poll_interval", "1m")
	v.SetDefault("worker.stale_after", "30m")
	v.SetDefault("worker.batch_size", 100)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "regpay-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BoundsFor returns the configured amount bounds for a gateway name.
func (c *Config) BoundsFor(gateway string) (AmountBounds, bool) {
	switch gateway {
	case "razorpay":
		return c.Razorpay.Bounds, true
	case "payu":
		return c.PayU.Bounds, true
	default:
		return AmountBounds{}, false
	}
}
