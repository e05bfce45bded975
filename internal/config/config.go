package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	AccountServiceURL string
	RedisAddr         string

	// Reset form
	ResetFormValidate      bool
	ResetMinPasswordLength int
	ResetSessionTTL        time.Duration
	ResetRateLimit         int

	// proxies in front of the service that append to X-Forwarded-For
	TrustedProxyHops int

	CORSAllowedOrigins []string

	DownstreamReadTimeout  time.Duration
	DownstreamWriteTimeout time.Duration

	TracingEnabled     bool
	TracingSampleRatio float64
	OTLPEndpoint       string
}

func Load() (*Config, error) {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("HTTP_PORT", "8080"),
		AccountServiceURL: getEnv("ACCOUNT_SERVICE_URL", "http://account-service:4000"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.ResetFormValidate, err = getBool("RESET_FORM_VALIDATE", true); err != nil {
		return nil, err
	}
	if cfg.ResetMinPasswordLength, err = getInt("RESET_MIN_PASSWORD_LENGTH", 8); err != nil {
		return nil, err
	}
	if cfg.ResetMinPasswordLength < 1 {
		return nil, fmt.Errorf("RESET_MIN_PASSWORD_LENGTH must be positive, got %d", cfg.ResetMinPasswordLength)
	}
	if cfg.ResetSessionTTL, err = getDuration("RESET_SESSION_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ResetRateLimit, err = getInt("RESET_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.TrustedProxyHops, err = getInt("TRUSTED_PROXY_HOPS", 0); err != nil {
		return nil, err
	}
	if cfg.TrustedProxyHops < 0 {
		return nil, fmt.Errorf("TRUSTED_PROXY_HOPS must not be negative, got %d", cfg.TrustedProxyHops)
	}
	if cfg.DownstreamReadTimeout, err = getDuration("DOWNSTREAM_READ_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.DownstreamWriteTimeout, err = getDuration("DOWNSTREAM_WRITE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.TracingEnabled, err = getBool("TRACING_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.TracingSampleRatio, err = getFloat("TRACING_SAMPLE_RATIO", 1); err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %q: %w", key, v, err)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
