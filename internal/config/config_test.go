package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("BACKEND_URL", "http://backend")
	t.Setenv("PAGE_COUNT_URL", "http://pages")
	t.Setenv("COLOR_DETECT_URL", "http://colors")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "/config", cfg.Backend.PricingPath)
	assert.Equal(t, 30*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, int64(500), cfg.Pricing.BlackWhite)
	assert.Equal(t, int64(1000), cfg.Pricing.Color)
	assert.Equal(t, int64(1500), cfg.Pricing.FullColor)
	assert.True(t, cfg.Pricing.DetectFullColor)
	assert.Equal(t, 5*time.Minute, cfg.Pricing.RefreshInterval)
	assert.Equal(t, 6*time.Hour, cfg.SessionIdleTTL)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
}

func TestParseNestedAndLists(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_IDS", "11,22")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "print")
	t.Setenv("DB_NAME", "print")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_PRODUCTION", "true")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(33))
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Log.Production)
}

func TestParseRejectsBadValues(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TELEGRAM_TOKEN", "")
		_, err := Parse()
		assert.Error(t, err)
	})

	t.Run("non-positive price", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PRICE_COLOR", "0")
		_, err := Parse()
		assert.Error(t, err)
	})

	t.Run("dev mode without chat", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DEV_MODE", "true")
		_, err := Parse()
		assert.Error(t, err)
	})
}
