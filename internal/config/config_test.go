package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_PORT", "ACCOUNT_SERVICE_URL", "REDIS_ADDR",
		"RESET_FORM_VALIDATE", "RESET_MIN_PASSWORD_LENGTH", "RESET_SESSION_TTL", "RESET_RATE_LIMIT",
		"TRUSTED_PROXY_HOPS", "CORS_ALLOWED_ORIGINS", "DOWNSTREAM_READ_TIMEOUT", "DOWNSTREAM_WRITE_TIMEOUT",
		"TRACING_ENABLED", "TRACING_SAMPLE_RATIO", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://account-service:4000", cfg.AccountServiceURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.True(t, cfg.ResetFormValidate)
	assert.Equal(t, 8, cfg.ResetMinPasswordLength)
	assert.Equal(t, 15*time.Minute, cfg.ResetSessionTTL)
	assert.Equal(t, 10, cfg.ResetRateLimit)
	assert.Equal(t, 0, cfg.TrustedProxyHops)
	assert.Equal(t, 2*time.Second, cfg.DownstreamReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.DownstreamWriteTimeout)
	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, 1.0, cfg.TracingSampleRatio)
	assert.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("ACCOUNT_SERVICE_URL", "http://localhost:4000")
	t.Setenv("RESET_FORM_VALIDATE", "false")
	t.Setenv("RESET_MIN_PASSWORD_LENGTH", "12")
	t.Setenv("RESET_SESSION_TTL", "5m")
	t.Setenv("TRUSTED_PROXY_HOPS", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://shop.local, http://admin.local ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:4000", cfg.AccountServiceURL)
	assert.False(t, cfg.ResetFormValidate)
	assert.Equal(t, 12, cfg.ResetMinPasswordLength)
	assert.Equal(t, 5*time.Minute, cfg.ResetSessionTTL)
	assert.Equal(t, 2, cfg.TrustedProxyHops)
	assert.Equal(t, []string{"http://shop.local", "http://admin.local"}, cfg.CORSAllowedOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"RESET_SESSION_TTL":         "soon",
		"RESET_FORM_VALIDATE":       "maybe",
		"RESET_RATE_LIMIT":          "ten",
		"RESET_MIN_PASSWORD_LENGTH": "0",
		"TRACING_SAMPLE_RATIO":      "half",
		"TRUSTED_PROXY_HOPS":        "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
