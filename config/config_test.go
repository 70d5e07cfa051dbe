package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "unit-test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 2, cfg.UpstreamRetryMax)
	assert.Equal(t, time.Second, cfg.UpstreamRetryDelay)
	assert.Equal(t, 5*time.Second, cfg.UpstreamHealthTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.IdempotencyTTL)
	assert.Contains(t, cfg.SensitivePatterns, "passport")
	assert.Contains(t, cfg.SensitivePatterns, "cvv")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "unit-test-secret")
	t.Setenv("UPSTREAM_TIMEOUT_SECONDS", "5")
	t.Setenv("UPSTREAM_RETRY_MAX", "4")
	t.Setenv("UPSTREAM_RETRY_BASE_DELAY_MS", "250")
	t.Setenv("SENSITIVE_FIELD_PATTERNS", "Visa_Number, loyalty_id")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 4, cfg.UpstreamRetryMax)
	assert.Equal(t, 250*time.Millisecond, cfg.UpstreamRetryDelay)
	assert.Equal(t, []string{"visa_number", "loyalty_id"}, cfg.SensitivePatterns)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
