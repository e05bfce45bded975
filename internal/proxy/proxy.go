package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/baechuer/storefront-bff/internal/domain"
	"github.com/baechuer/storefront-bff/internal/logger"
	"github.com/baechuer/storefront-bff/middleware"
)

// New creates a reverse proxy that rewrites paths and propagates context headers.
// targetHost: "http://account-service:4000"
// stripPrefix: "/api/v1"
// upstreamPrefix: "/api/v1"
// Cookies named in dropCookies are BFF-private and never reach the upstream.
func New(targetHost, stripPrefix, upstreamPrefix string, dropCookies ...string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(targetHost)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director

	proxy.Director = func(req *http.Request) {
		originalDirector(req)

		req.Host = target.Host

		// /api/v1/password/reset/abc -> /api/v1/password/reset/abc on the account API
		if strings.HasPrefix(req.URL.Path, stripPrefix) {
			req.URL.Path = upstreamPrefix + strings.TrimPrefix(req.URL.Path, stripPrefix)
		}
		if strings.HasPrefix(req.URL.RawPath, stripPrefix) {
			req.URL.RawPath = upstreamPrefix + strings.TrimPrefix(req.URL.RawPath, stripPrefix)
		}

		if reqID := middleware.GetRequestID(req.Context()); reqID != "" {
			req.Header.Set(middleware.HeaderXRequestID, reqID)
		}

		if len(dropCookies) > 0 {
			stripCookies(req, dropCookies)
		}
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		reqID := middleware.GetRequestID(r.Context())

		logger.Log.Error().
			Err(err).
			Str("target", targetHost).
			Str("request_id", reqID).
			Msg("upstream_proxy_error")

		resp := domain.APIError{}
		resp.Error.Code = "upstream_unavailable"
		resp.Error.Message = "upstream service unreachable"
		resp.Error.RequestID = reqID

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(resp)
	}

	return proxy, nil
}

func stripCookies(req *http.Request, names []string) {
	cookies := req.Cookies()
	req.Header.Del("Cookie")
	for _, c := range cookies {
		drop := false
		for _, n := range names {
			if c.Name == n {
				drop = true
				break
			}
		}
		if !drop {
			req.AddCookie(c)
		}
	}
}
