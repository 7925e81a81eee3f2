package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RealIP returns the client address, trusting CF-Connecting-IP and then the
// first hop of X-Forwarded-For before RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type counter struct {
	hits    int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows. It is in-memory and
// per process.
type RateLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Allow reports whether key is still within limit hits for the current window.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	ok, _ := rl.allow(key, limit, window)
	return ok
}

// allow also returns the time left until the key's window resets.
func (rl *RateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c := rl.counters[key]
	if c == nil || now.After(c.resetAt) {
		rl.counters[key] = &counter{hits: 1, resetAt: now.Add(window)}
		return limit > 0, window
	}
	c.hits++
	return c.hits <= limit, c.resetAt.Sub(now)
}

// Cleanup drops counters whose window has passed.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, c := range rl.counters {
		if now.After(c.resetAt) {
			delete(rl.counters, key)
		}
	}
}

// ByIP keys requests by route pattern and client IP, so login and
// registration are limited independently.
func ByIP(r *http.Request) string {
	return r.Pattern + "|" + RealIP(r)
}

// RateLimit rejects requests over limit per window for each key with 429 and
// a Retry-After header in whole seconds.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, reset := limiter.allow(keyFunc(r), limit, window)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
