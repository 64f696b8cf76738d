package ratelimiter

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pcbuilder/configurator/pkg/logger"
)

// KeyFunc derives the throttling key from a request. An empty key skips
// throttling for that request.
type KeyFunc func(r *http.Request) string

// ByIP keys requests by scope and client IP.
func ByIP(scope string) KeyFunc {
	return func(r *http.Request) string {
		ip := ClientIP(r)
		if ip == "" {
			return ""
		}
		return scope + ":" + ip
	}
}

// ClientIP returns the client address, preferring proxy headers in the
// order CF-Connecting-IP, X-Forwarded-For (first valid entry), X-Real-IP
// and finally RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	for part := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := parseIP(part); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	log      *slog.Logger
	now      func() time.Time
	onLimit  http.Handler
	failOpen bool
}

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLimitHandler replaces the default 429 response. Retry-After and the
// X-RateLimit headers are already set when it runs.
func WithLimitHandler(h http.Handler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.onLimit = h
		}
	}
}

// WithFailClosed rejects requests with 503 when the store fails. By default
// such requests are let through.
func WithFailClosed() MiddlewareOption {
	return func(c *middlewareConfig) { c.failOpen = false }
}

func withMiddlewareClock(now func() time.Time) MiddlewareOption {
	return func(c *middlewareConfig) { c.now = now }
}

// Middleware throttles requests with limiter, keyed by keyFunc.
func Middleware(limiter *FixedWindow, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		log:      logger.Discard(),
		now:      time.Now,
		failOpen: true,
		onLimit: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				cfg.log.ErrorContext(r.Context(), "rate limit check failed",
					logger.Component("ratelimiter"),
					logger.Error(err),
				)
				if cfg.failOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(res.RetryAfter(cfg.now()).Seconds())))
				cfg.log.WarnContext(r.Context(), "request throttled",
					logger.Component("ratelimiter"),
					slog.String("key", key),
				)
				cfg.onLimit.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
