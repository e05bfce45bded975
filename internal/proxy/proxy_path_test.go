package proxy_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/baechuer/storefront-bff/internal/proxy"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestProxy_PathRewriting(t *testing.T) {
	var (
		mu           sync.Mutex
		receivedPath string
	)

	fakeAccount := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		receivedPath = r.URL.EscapedPath()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
	}))
	defer fakeAccount.Close()

	accountProxy, err := proxy.New(fakeAccount.URL, "/api/v1", "/api/v1")
	assert.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api/v1", accountProxy)

	testCases := []struct {
		name         string
		method       string
		requestPath  string
		expectedPath string
	}{
		{
			name:         "forgot password",
			method:       http.MethodPost,
			requestPath:  "/api/v1/password/forgot",
			expectedPath: "/api/v1/password/forgot",
		},
		{
			name:         "reset password",
			method:       http.MethodPut,
			requestPath:  "/api/v1/password/reset/abc123",
			expectedPath: "/api/v1/password/reset/abc123",
		},
		{
			name:         "escaped token",
			method:       http.MethodPut,
			requestPath:  "/api/v1/password/reset/a%2Fb",
			expectedPath: "/api/v1/password/reset/a%2Fb",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mu.Lock()
			receivedPath = ""
			mu.Unlock()

			req := httptest.NewRequest(tc.method, tc.requestPath, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.expectedPath, receivedPath)
		})
	}
}
