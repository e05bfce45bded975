package downstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baechuer/storefront-bff/internal/domain"
	"github.com/baechuer/storefront-bff/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() ClientConfig {
	return ClientConfig{
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		Transport:    http.DefaultTransport,
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("account-secret"))
	require.NoError(t, err)
	return s
}

func TestAccountClient_ResetPassword_Success(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"id": "64f0c0ffee"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/password/reset/abc123", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-Id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"password": "longenough1", "confirmPassword": "longenough1"}, body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "token": token})
	}))
	defer srv.Close()

	c := NewAccountClient(srv.URL+"/", testConfig())
	ctx := middleware.SetRequestIDForTest(context.Background(), "req-1")

	res, err := c.ResetPassword(ctx, "abc123", domain.ResetPayload{Password: "longenough1", ConfirmPassword: "longenough1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, token, res.Token)
	assert.Equal(t, "64f0c0ffee", res.UserID)
}

func TestAccountClient_ResetPassword_TokenEscaped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/password/reset/a%2Fb", r.URL.EscapedPath())
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewAccountClient(srv.URL, testConfig())
	res, err := c.ResetPassword(context.Background(), "a/b", domain.ResetPayload{})
	require.NoError(t, err)
	assert.Empty(t, res.UserID)
}

func TestAccountClient_ResetPassword_StorefrontError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"Token expired"}`))
	}))
	defer srv.Close()

	c := NewAccountClient(srv.URL, testConfig())
	_, err := c.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "invalid_request", se.Code)
	assert.Equal(t, "Token expired", se.Message)
}

func TestAccountClient_ResetPassword_EnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":"maintenance","message":"down for maintenance"}}`))
	}))
	defer srv.Close()

	c := NewAccountClient(srv.URL, testConfig())
	_, err := c.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "maintenance", se.Code)
	assert.Equal(t, "down for maintenance", se.Message)
}

func TestAccountClient_ResetPassword_UnparseableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	c := NewAccountClient(srv.URL, testConfig())
	_, err := c.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "downstream_error", se.Code)
	assert.Equal(t, "unexpected status: 502", se.Message)
}

func TestAccountClient_ResetPassword_NotSuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewAccountClient(srv.URL, testConfig())
	_, err := c.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "reset_rejected", se.Code)
}

func TestAccountClient_ResetPassword_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.WriteTimeout = 20 * time.Millisecond
	c := NewAccountClient(srv.URL, cfg)

	_, err := c.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAccountClient_ResetPassword_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewAccountClient(url, testConfig())
	_, err := c.ResetPassword(context.Background(), "abc123", domain.ResetPayload{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSubjectFromToken(t *testing.T) {
	assert.Equal(t, "", subjectFromToken(""))
	assert.Equal(t, "", subjectFromToken("not-a-jwt"))
	assert.Equal(t, "u-1", subjectFromToken(signedToken(t, jwt.MapClaims{"id": "u-1"})))
	assert.Equal(t, "u-2", subjectFromToken(signedToken(t, jwt.MapClaims{"sub": "u-2"})))
}
