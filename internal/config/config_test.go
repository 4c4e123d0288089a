package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EMERGENCY_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8084", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "emergency_booking", cfg.DB.DBName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0.08, cfg.Pricing.TaxRate)
	assert.Equal(t, 0.15, cfg.Pricing.RemoteSurchargeRate)
	assert.Equal(t, 24*time.Hour, cfg.Expiry.Window)
	assert.Equal(t, "*/15 * * * *", cfg.Expiry.CronSpec)
	assert.Equal(t, 100, cfg.Expiry.BatchSize)
	assert.Equal(t, "USD", cfg.Currency)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("EMERGENCY_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMERGENCY_JWT_SECRET")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EMERGENCY_JWT_SECRET", "test-secret")
	t.Setenv("EMERGENCY_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EMERGENCY_PAYMENT_EXPIRY_WINDOW", "2h")
	t.Setenv("EMERGENCY_CURRENCY", "EUR")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Hour, cfg.Expiry.Window)
	assert.Equal(t, "EUR", cfg.Currency)
}

func TestLoad_InvalidExpiryWindow(t *testing.T) {
	t.Setenv("EMERGENCY_JWT_SECRET", "test-secret")
	t.Setenv("EMERGENCY_PAYMENT_EXPIRY_WINDOW", "soon")

	_, err := Load()
	require.Error(t, err)
}
