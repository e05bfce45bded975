package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyz_AllHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	h := NewReadinessHandler(
		NewPingChecker("account-service", pingFunc(func(context.Context) error { return nil })),
		NewRedisChecker(rdb),
	)

	w := httptest.NewRecorder()
	h.Readyz(w, httptest.NewRequest(http.MethodGet, "/api/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp readinessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, []checkResult{
		{Name: "account-service", Status: "healthy"},
		{Name: "redis", Status: "healthy"},
	}, resp.Checks)
}

func TestReadyz_OneUnhealthy(t *testing.T) {
	h := NewReadinessHandler(
		NewPingChecker("account-service", pingFunc(func(context.Context) error { return errors.New("connection refused") })),
		NewPingChecker("other", pingFunc(func(context.Context) error { return nil })),
	)

	w := httptest.NewRecorder()
	h.Readyz(w, httptest.NewRequest(http.MethodGet, "/api/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp readinessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks[0].Error)
	assert.Equal(t, "healthy", resp.Checks[1].Status)
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewReadinessHandler().Healthz(w, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
