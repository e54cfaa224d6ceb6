package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// limiter is a per-caller token bucket. Buckets idle for longer than ttl are
// dropped on the next sweep.
type limiter struct {
	rate  float64 // tokens per second
	burst float64
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(perMinute, burst int, ttl time.Duration, now func() time.Time) *limiter {
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		rate:    float64(perMinute) / 60.0,
		burst:   float64(burst),
		ttl:     ttl,
		now:     now,
		buckets: make(map[string]*bucket),
	}
}

func (l *limiter) allow(caller string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.last) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b := l.buckets[caller]
	if b == nil {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[caller] = b
	}
	b.tokens = min(l.burst, b.tokens+now.Sub(b.last).Seconds()*l.rate)
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimitConfig describes a per-caller limit. PerMinute <= 0 disables it.
type RateLimitConfig struct {
	PerMinute int
	Burst     int

	// Keys are the API keys a caller may be identified by. Any other key
	// is ignored and the caller is limited by client IP.
	Keys Keys
	// TrustForwardedFor takes the client IP from X-Forwarded-For. Only
	// enable it behind a proxy that sets the header.
	TrustForwardedFor bool
}

// RateLimit throttles each caller to cfg.PerMinute requests with cfg.Burst.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(cfg, time.Now)
}

func rateLimit(cfg RateLimitConfig, now func() time.Time) func(http.Handler) http.Handler {
	if cfg.PerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(cfg.PerMinute, cfg.Burst, 10*time.Minute, now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(callerKey(r, cfg)) {
				deny(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request, cfg RateLimitConfig) string {
	if k := BearerOrAPIKey(r); matches(k, cfg.Keys.Admin) || matches(k, cfg.Keys.Public) {
		return "key:" + k
	}
	return "ip:" + clientIP(r, cfg.TrustForwardedFor)
}

func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
