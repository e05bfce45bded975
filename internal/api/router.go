package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/baechuer/storefront-bff/internal/api/handlers"
	"github.com/baechuer/storefront-bff/internal/config"
	"github.com/baechuer/storefront-bff/internal/logger"
	"github.com/baechuer/storefront-bff/internal/navigation"
	"github.com/baechuer/storefront-bff/internal/proxy"
	"github.com/baechuer/storefront-bff/middleware"
)

// Deps are the long-lived components the routes are served from.
type Deps struct {
	Forms   handlers.FormRegistry
	Account handlers.Pinger
	Redis   *redis.Client // optional; enables the shared limiter and its readiness check
}

func NewRouter(cfg *config.Config, deps Deps) (http.Handler, error) {
	r := chi.NewRouter()

	// 1. Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.HeaderXRequestID},
			ExposedHeaders:   []string{middleware.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// 2. Health, readiness, metrics
	checkers := []handlers.ReadinessChecker{handlers.NewPingChecker("account-service", deps.Account)}
	if deps.Redis != nil {
		checkers = append(checkers, handlers.NewRedisChecker(deps.Redis))
	}
	ready := handlers.NewReadinessHandler(checkers...)
	r.Get("/api/healthz", ready.Healthz)
	r.Get("/api/readyz", ready.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	// 3. Reset password page
	reset := handlers.NewResetHandler(deps.Forms)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Get(navigation.ResetPattern, reset.Page)
		r.With(middleware.SubmitLimit(deps.Redis, "reset", cfg.ResetRateLimit, time.Minute, middleware.ClientIPKey(cfg.TrustedProxyHops))).
			Post(navigation.ResetPattern, reset.Submit)
		r.Get(navigation.ResetPattern+"/status", reset.Status)
	})

	// 4. Account API proxy
	// Map /api/v1 -> /api/v1 on the account service
	accountProxy, err := proxy.New(cfg.AccountServiceURL, "/api/v1", "/api/v1", handlers.SessionCookie)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCOUNT_SERVICE_URL: %w", err)
	}
	r.Mount("/api/v1", accountProxy)

	logger.Log.Info().
		Str("account_service", cfg.AccountServiceURL).
		Bool("shared_rate_limit", deps.Redis != nil).
		Msg("routes_mounted")

	return middleware.Tracing(middleware.TracerName)(r), nil
}
