package router

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/metrics"
)

// RateLimitConfig bounds requests per client IP. A zero Rate disables the limiter.
type RateLimitConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimitFromEnv reads AUTH_RATE_LIMIT (requests per second) and
// AUTH_RATE_BURST.
func RateLimitFromEnv() RateLimitConfig {
	cfg := RateLimitConfig{Rate: 1, Burst: 10}
	if v, err := strconv.ParseFloat(os.Getenv("AUTH_RATE_LIMIT"), 64); err == nil && v >= 0 {
		cfg.Rate = rate.Limit(v)
	}
	if v, err := strconv.Atoi(os.Getenv("AUTH_RATE_BURST")); err == nil && v > 0 {
		cfg.Burst = v
	}
	return cfg
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	cfg RateLimitConfig
	ttl time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
	swept    time.Time
	now      func() time.Time
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	return &ipLimiter{cfg: cfg, ttl: 10 * time.Minute, visitors: map[string]*visitor{}, now: time.Now}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.swept) > l.ttl {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.swept = now
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.cfg.Rate, l.cfg.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware answers 429 once a client IP exceeds its budget.
func RateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Rate <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newIPLimiter(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				metrics.RateLimitedTotal.Inc()
				w.Header().Set("Retry-After", "1")
				httpx.WriteJSON(w, http.StatusTooManyRequests, httpx.ErrorBody{Error: "Too many requests."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
