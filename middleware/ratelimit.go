package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter implements a sliding window rate limiter backed by Redis.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		prefix: "rl:storefront:",
	}
}

// RateLimitConfig configures the rate limit for a specific scope.
type RateLimitConfig struct {
	Name   string        // scope, part of the key
	Limit  int           // Max requests allowed
	Window time.Duration // Time window
	KeyFn  func(r *http.Request) string
}

// slidingWindow runs atomically:
// drop entries older than the window, count, admit if under the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, ttl)
		return 1
	end

	return 0
`)

func (l *RedisRateLimiter) Middleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.rdb == nil {
				// Fail open if Redis is not configured
				next.ServeHTTP(w, r)
				return
			}

			key := l.prefix + cfg.Name + ":" + cfg.KeyFn(r)

			allowed, err := l.isAllowed(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				// Fail open on Redis errors
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (l *RedisRateLimiter) isAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()
	member := strconv.FormatInt(time.Now().UnixNano(), 10)

	result, err := slidingWindow.Run(ctx, l.rdb, []string{key}, now, windowStart, limit, window.Milliseconds(), member).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

// ClientIPKey keys requests by client IP. X-Forwarded-For is only consulted
// when trustedHops proxies sit in front of the service: each appends the
// address it saw, so the entry trustedHops from the end is the first one a
// client could not forge. With no trusted hops the peer address is used.
func ClientIPKey(trustedHops int) func(r *http.Request) string {
	return func(r *http.Request) string {
		if trustedHops > 0 {
			if hops := forwardedFor(r); len(hops) > 0 {
				i := len(hops) - trustedHops
				if i < 0 {
					i = 0
				}
				return "ip:" + hops[i]
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "ip:" + host
	}
}

func forwardedFor(r *http.Request) []string {
	var hops []string
	for _, line := range r.Header.Values("X-Forwarded-For") {
		for _, h := range strings.Split(line, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hops = append(hops, h)
			}
		}
	}
	return hops
}

// SubmitLimit picks the Redis limiter when rdb is set and an in-process
// httprate limiter otherwise.
func SubmitLimit(rdb *redis.Client, name string, limit int, window time.Duration, keyFn func(r *http.Request) string) func(http.Handler) http.Handler {
	if rdb == nil {
		return httprate.Limit(limit, window,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) { return name + ":" + keyFn(r), nil }),
		)
	}
	return NewRedisRateLimiter(rdb).Middleware(RateLimitConfig{
		Name:   name,
		Limit:  limit,
		Window: window,
		KeyFn:  keyFn,
	})
}
