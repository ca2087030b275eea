package router

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/card"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/group"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/profile"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/user"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/metrics"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/utilities"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID returns the id assigned by RequestIDMiddleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (lrw *loggingResponseWriter) code() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

// RequestIDMiddleware keeps an incoming X-Request-ID or mints a new one,
// echoes it in the response and stores it in the request context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = utilities.NewRequestID()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			logger.Debugw("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", lrw.code(),
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// MetricsMiddleware records request counts and latency by route pattern. It
// must wrap the mux directly so the matched pattern is visible afterwards.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(lrw.code())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// only over TLS; 30 days
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator wraps handlers that need a signed-in user.
type Authenticator interface {
	RequireUser(next http.Handler) http.Handler
}

// Deps are the feature handlers mounted under /api.
type Deps struct {
	Logger    *zap.SugaredLogger
	Sessions  Authenticator
	Users     *user.Handler
	Profile   *profile.Handler
	Cards     *card.Handler
	Groups    *group.Handler
	AuthLimit RateLimitConfig
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health)
	mux.Handle("GET /metrics", promhttp.Handler())

	limit := RateLimitMiddleware(d.AuthLimit)
	mux.Handle("POST /api/auth/register", limit(http.HandlerFunc(d.Users.Register)))
	mux.Handle("POST /api/auth/login", limit(http.HandlerFunc(d.Users.Login)))
	mux.HandleFunc("POST /api/auth/logout", d.Users.Logout)

	auth := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, d.Sessions.RequireUser(h))
	}
	auth("GET /api/me", d.Profile.Get)
	auth("PATCH /api/me", d.Profile.Update)

	auth("GET /api/cards", d.Cards.List)
	auth("GET /api/cards/study", d.Cards.Study)
	auth("POST /api/cards/generate", d.Cards.Generate)
	auth("POST /api/cards/bulk", d.Cards.Bulk)
	auth("POST /api/cards/{id}/examples", d.Cards.RegenerateExamples)
	auth("POST /api/cards/{id}/check", d.Cards.Check)
	auth("DELETE /api/cards/{id}", d.Cards.Delete)

	auth("GET /api/groups", d.Groups.List)
	auth("POST /api/groups", d.Groups.Create)

	handler := MetricsMiddleware()(mux)
	handler = SecurityHeadersMiddleware()(handler)
	handler = LoggingMiddleware(d.Logger)(handler)
	return RequestIDMiddleware()(handler)
}
