package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/storefront-bff/internal/api"
	"github.com/baechuer/storefront-bff/internal/config"
	"github.com/baechuer/storefront-bff/internal/downstream"
	"github.com/baechuer/storefront-bff/internal/logger"
	"github.com/baechuer/storefront-bff/internal/resetform"
	"github.com/baechuer/storefront-bff/internal/session"
	"github.com/baechuer/storefront-bff/internal/tracing"
)

const sweepSchedule = "@every 1m"

func main() {
	// 1. Init Logger
	logger.Init()

	// 2. Load Config
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	tp, err := tracing.InitTracing(ctx, tracing.Config{
		ServiceName:    "storefront-bff",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRatio:    cfg.TracingSampleRatio,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("tracing init failed")
	}

	// 4. Redis (optional, shared rate limit)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			zlog.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, rate limit fails open")
		}
		cancel()
	}

	// 5. Account client and reset forms
	account := downstream.NewAccountClient(cfg.AccountServiceURL, downstream.ClientConfig{
		ReadTimeout:  cfg.DownstreamReadTimeout,
		WriteTimeout: cfg.DownstreamWriteTimeout,
	})

	opts := []resetform.Option{resetform.WithMinLength(cfg.ResetMinPasswordLength)}
	if !cfg.ResetFormValidate {
		opts = append(opts, resetform.WithoutValidation())
	}
	forms := session.NewRegistry(account, cfg.ResetSessionTTL, opts...)
	if err := forms.StartSweeper(sweepSchedule); err != nil {
		zlog.Fatal().Err(err).Msg("sweeper start failed")
	}

	// 6. Setup Router
	r, err := api.NewRouter(cfg, api.Deps{Forms: forms, Account: account, Redis: rdb})
	if err != nil {
		zlog.Fatal().Err(err).Msg("router setup failed")
	}

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Msg("storefront BFF starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server shutdown failed")
	}
	forms.Stop()
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("tracer shutdown failed")
	}
}
