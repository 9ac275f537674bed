package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/windfall/fluentmind/internal/errors"
	"github.com/windfall/fluentmind/internal/metrics"
	"github.com/windfall/fluentmind/pkg/response"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// WindowCounter increments a counter that expires after window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// WindowLimiter is a fixed-window limiter over a shared counter, so every
// replica enforces one budget.
type WindowLimiter struct {
	counter WindowCounter
	limit   int64
	window  time.Duration
}

// NewWindowLimiter allows limit requests per window per key.
func NewWindowLimiter(counter WindowCounter, limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		counter: counter,
		limit:   int64(limit),
		window:  window,
	}
}

// Allow implements Limiter.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := time.Now().UnixNano() / int64(l.window)
	n, err := l.counter.IncrWindow(ctx, "ratelimit:"+key+":"+strconv.FormatInt(slot, 10), l.window)
	if err != nil {
		return true, err
	}
	return n <= l.limit, nil
}

// LocalLimiter keeps one token bucket per key in process memory.
type LocalLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter allows limit requests per window per key, refilled evenly.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		visitors:  make(map[string]*visitor),
		rate:      rate.Every(window / time.Duration(limit)),
		burst:     limit,
		idleAfter: 3 * window,
		lastSweep: time.Now(),
	}
}

// Allow implements Limiter.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleAfter {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleAfter {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1), nil
}

// RateLimit rejects clients over budget with 429. Limiter errors fail open.
func RateLimit(limiter Limiter, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("client_ip", key).Msg("rate limiter unavailable, allowing request")
			}
			if !allowed {
				metrics.RateLimited()
				log.Warn().
					Str("client_ip", key).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("rate limit exceeded")
				response.Failure(w, errors.RateLimit("too many requests"), false)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the caller's address without port. chi's RealIP
// middleware has already applied X-Forwarded-For / X-Real-IP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
