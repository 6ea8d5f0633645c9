package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/parking")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, 0.10, cfg.Booking.CommissionRate)
	assert.Equal(t, 30*time.Minute, cfg.Booking.PendingTTL)
	assert.Equal(t, "none", cfg.Bus.Driver)
	assert.NotEmpty(t, cfg.InstanceID)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/parking")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("INSTANCE_ID", "api-1")
	t.Setenv("HOME_COUNTRY", "th")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "api-1", cfg.InstanceID)
	assert.Equal(t, "TH", cfg.Booking.HomeCountry)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Bus.KafkaBrokers)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsCommissionOutOfRange(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/parking")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PLATFORM_COMMISSION_RATE", "1.5")

	_, err := Load()
	assert.Error(t, err)
}
