package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// quietPaths are health and scrape endpoints logged at debug level only.
var quietPaths = []string{"/api/healthz", "/api/readyz", "/metrics"}

// RequestLogger returns a middleware that logs HTTP requests
func RequestLogger(l zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			latency := time.Since(start)

			event := l.Info()
			switch {
			case ww.Status() >= 500:
				event = l.Error()
			case ww.Status() >= 400:
				event = l.Warn()
			case isQuiet(r.URL.Path):
				event = l.Debug()
			}

			event.
				Str("method", r.Method).
				Str("route", routeOf(r)).
				Int("status", ww.Status()).
				Dur("latency", latency).
				Str("request_id", GetRequestID(r.Context())).
				Str("ip", r.RemoteAddr).
				Msg("http_request")
		})
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if path == p {
			return true
		}
	}
	return false
}

// routeOf returns the matched chi pattern so reset tokens in the raw path
// never reach the logs.
func routeOf(r *http.Request) string {
	if p := routePattern(r); p != "" {
		return p
	}
	if strings.HasPrefix(r.URL.Path, "/password/reset/") {
		return "/password/reset/{token}"
	}
	return r.URL.Path
}
