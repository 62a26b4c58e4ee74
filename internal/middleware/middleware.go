// Package middleware provides HTTP middleware for the local UI API:
// request identification, structured logging, panic recovery, rate
// limiting of activation attempts, and premium gating of licensed
// actions.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "glowcli/internal/errors"
	"glowcli/internal/infrastructure"
)

// requestIDKey is the context key for the request ID
type ctxKey string

const requestIDKey ctxKey = "request-id"

// RequestID generates a unique request ID for each request and makes it
// the trace id for all logging in the request's context. This should be
// the first middleware in the chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = infrastructure.WithTraceID(ctx, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetReqID retrieves the request ID from the context
func GetReqID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// writeProblem emits an RFC 7807 body for middleware that rejects a
// request before it reaches the chi render pipeline.
func writeProblem(w http.ResponseWriter, r *http.Request, pd *apperrors.ProblemDetails) {
	if traceID := infrastructure.GetTraceID(r.Context()); traceID != "" {
		if pd.Extensions == nil {
			pd.Extensions = make(map[string]interface{})
		}
		pd.Extensions["trace_id"] = traceID
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(pd.Status)
	_ = json.NewEncoder(w).Encode(pd)
}

// StructuredLogger provides chi-compatible structured request logging
// using slog. This should come after RequestID.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			reqLogger := logger
			if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
				reqLogger = logger.With("trace_id", traceID)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			reqLogger.InfoContext(ctx, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// Recoverer recovers from panics, logs them, and returns an RFC 7807
// error response
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					ctx := r.Context()

					logger.ErrorContext(ctx, "panic recovered",
						"panic", rvr,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)

					writeProblem(w, r, apperrors.NewProblemDetails(
						http.StatusInternalServerError,
						"/problems/internal-server-error",
						"Internal Server Error",
						"An unexpected error occurred",
						r.URL.Path,
					))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter throttles requests, used on the activation endpoint to
// slow down license guessing
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter creates a rate limiter with logging
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler implements rate limiting middleware
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !rl.limiter.Allow() {
			rl.logger.WarnContext(ctx, "rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			w.Header().Set("Retry-After", "60")
			writeProblem(w, r, apperrors.NewProblemDetails(
				http.StatusTooManyRequests,
				"/problems/rate-limit-exceeded",
				"Too Many Requests",
				"Too many activation attempts. Please retry later",
				r.URL.Path,
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative response headers for the local UI
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
