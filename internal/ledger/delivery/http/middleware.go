package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/retail-ledger/internal/ledger/ratelimit"
	"github.com/tair/retail-ledger/pkg/auth"
	"github.com/tair/retail-ledger/pkg/logger"
)

type contextKey string

const (
	CashierIDKey contextKey = "cashier_id"
	RoleKey      contextKey = "role"
)

// CashierFromContext returns the authenticated cashier, if any
func CashierFromContext(ctx context.Context) *uint {
	id, ok := ctx.Value(CashierIDKey).(uint)
	if !ok || id == 0 {
		return nil
	}
	return &id
}

// CashierAuthMiddleware attaches the token's user as the cashier. Requests
// without an Authorization header pass through anonymously; a header that
// does not carry a valid bearer token is rejected.
func CashierAuthMiddleware(validator *auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !validator.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Warn(r.Context()).Msg("Invalid authorization header format")
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid authorization header format"})
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Invalid token")
				respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid token"})
				return
			}

			logger.Debug(r.Context()).
				Uint("user_id", claims.UserID).
				Str("role", claims.Role).
				Msg("Cashier authenticated")

			ctx := context.WithValue(r.Context(), CashierIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs HTTP requests with structured logging
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		ctx := r.Context()
		traceID := "no-trace"
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		}

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		logEvent := logger.WithContext(ctx).Info()
		if ww.statusCode >= 500 {
			logEvent = logger.WithContext(ctx).Error()
		} else if ww.statusCode >= 400 {
			logEvent = logger.WithContext(ctx).Warn()
		}

		logEvent.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", ww.statusCode).
			Int64("duration_ms", duration.Milliseconds()).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Str("trace_id", traceID).
			Msg("HTTP request completed")
	})
}

// TracingMiddleware wraps HTTP handlers with OpenTelemetry tracing
func TracingMiddleware(operationName string, next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, operationName)
}

// RateLimitMiddleware throttles per cashier, or per client IP for anonymous
// requests. It must run after CashierAuthMiddleware. Limiter errors admit
// the request.
func RateLimitMiddleware(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := "ip:" + clientIP(r)
			if cashierID := CashierFromContext(r.Context()); cashierID != nil {
				identifier = fmt.Sprintf("cashier:%d", *cashierID)
			}

			decision, err := limiter.Allow(r.Context(), identifier)
			if err != nil {
				logger.Error(r.Context()).Err(err).Str("identifier", identifier).Msg("Rate limiter error")
				next.ServeHTTP(w, r)
				return
			}
			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				retryAfter := decision.RetryAfter(time.Now())
				logger.Warn(r.Context()).
					Str("identifier", identifier).
					Int("limit", decision.Limit).
					Msg("Rate limit exceeded")

				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				respondJSON(w, http.StatusTooManyRequests, Response{
					Success: false,
					Error:   "Rate limit exceeded",
					Message: fmt.Sprintf("Too many requests. Try again in %v", retryAfter),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
