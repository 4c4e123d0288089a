package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Brokers []string
}

// StripeConfig holds payment provider settings.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// PricingConfig holds the fee calculation rates.
type PricingConfig struct {
	TaxRate             float64
	RemoteSurchargeRate float64
}

// ExpiryConfig holds the pending-payment expiry sweep policy.
type ExpiryConfig struct {
	// Window is how long a booking may sit in pending_payment before the
	// sweep reconciles it against the provider.
	Window time.Duration
	// CronSpec schedules the sweep.
	CronSpec string
	// BatchSize caps how many stale bookings one sweep handles.
	BatchSize int
}

// ServiceConfig holds all configuration for the emergency booking service.
type ServiceConfig struct {
	Port     string
	AppEnv   string
	DB       DatabaseConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
	Stripe   StripeConfig
	Pricing  PricingConfig
	Expiry   ExpiryConfig
	Currency string
}

// Load reads configuration from environment variables with the EMERGENCY prefix.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("EMERGENCY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVICE_PORT", ":8084")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "emergency_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("STRIPE_SUCCESS_URL", "https://city.example.org/bookings/success")
	v.SetDefault("STRIPE_CANCEL_URL", "https://city.example.org/bookings/cancelled")
	v.SetDefault("TAX_RATE", 0.08)
	v.SetDefault("REMOTE_SURCHARGE_RATE", 0.15)
	v.SetDefault("PAYMENT_EXPIRY_WINDOW", "24h")
	v.SetDefault("PAYMENT_EXPIRY_CRON", "*/15 * * * *")
	v.SetDefault("PAYMENT_EXPIRY_BATCH", 100)
	v.SetDefault("CURRENCY", "USD")

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("EMERGENCY_JWT_SECRET is required")
	}

	window, err := time.ParseDuration(v.GetString("PAYMENT_EXPIRY_WINDOW"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_EXPIRY_WINDOW: %w", err)
	}

	return &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DB: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{Secret: jwtSecret},
		Kafka: KafkaConfig{
			Brokers: strings.Split(v.GetString("KAFKA_BROKERS"), ","),
		},
		Stripe: StripeConfig{
			APIKey:        v.GetString("STRIPE_API_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    v.GetString("STRIPE_SUCCESS_URL"),
			CancelURL:     v.GetString("STRIPE_CANCEL_URL"),
		},
		Pricing: PricingConfig{
			TaxRate:             v.GetFloat64("TAX_RATE"),
			RemoteSurchargeRate: v.GetFloat64("REMOTE_SURCHARGE_RATE"),
		},
		Expiry: ExpiryConfig{
			Window:    window,
			CronSpec:  v.GetString("PAYMENT_EXPIRY_CRON"),
			BatchSize: v.GetInt("PAYMENT_EXPIRY_BATCH"),
		},
		Currency: v.GetString("CURRENCY"),
	}, nil
}
