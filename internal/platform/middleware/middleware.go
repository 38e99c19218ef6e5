// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the cross-cutting HTTP processing chain.

It acts as a series of decorators around the standard http.Handler, injecting
traceability, safety, and security into every request lifecycle.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Log: Structured Activity logging (slog).
  - Guard: Per-IP rate limiting, credential-endpoint throttling and CORS.
  - Safe: Panic recovery to prevent server crashes.
  - Identity: Bearer authentication and role guards (authz.go).
*/
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/saas-starter/internal/platform/request"
	"github.com/taibuivan/saas-starter/internal/platform/respond"
)

// # Request Tracing

// RequestID attaches a correlation ID to every request for log tracing.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Honour a client-provided ID
			requestID := request.Header.Get(constants.HeaderXRequestID)

			// 2. Otherwise mint a time-sortable one
			if requestID == "" {
				if id, err := uuid.NewV7(); err == nil {
					requestID = id.String()
				} else {
					requestID = uuid.NewString()
				}
			}

			// 3. Inject into context and response headers
			ctx := ctxutil.WithRequestID(request.Context(), requestID)
			writer.Header().Set(constants.HeaderXRequestID, requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Activity Logging

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// StructuredLogger logs every request status and latency.
// It also injects a request-specific logger into the context.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", requestutil.ClientIP(request)),
			)

			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			wrappedWriter := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(wrappedWriter, request.WithContext(ctx))

			logLevel := slog.LevelInfo
			switch {
			case wrappedWriter.status >= 500:
				logLevel = slog.LevelError
			case wrappedWriter.status >= 400:
				logLevel = slog.LevelWarn
			}

			requestLogger.Log(ctx, logLevel, "http_request_finished",
				slog.Int("status", wrappedWriter.status),
				slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			)
		})
	}
}

// # Rate Limiting

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter is an in-process token bucket per client IP. It protects a
// single replica from bursts; credential endpoints additionally use the
// Redis-backed [Throttle], which is shared across replicas.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimitClient
	limit   rate.Limit
	burst   int
}

// NewIPRateLimiter creates a limiter and starts its idle-entry sweeper, which
// stops when ctx is cancelled.
func NewIPRateLimiter(ctx context.Context, requestsPerSecond float64, burst int) *IPRateLimiter {
	limiter := &IPRateLimiter{
		clients: make(map[string]*rateLimitClient),
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				limiter.sweep(time.Now())
			case <-ctx.Done():
				return
			}
		}
	}()

	return limiter
}

func (limiter *IPRateLimiter) sweep(now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for ip, client := range limiter.clients {
		if now.Sub(client.lastSeen) > constants.RateLimitClientTTL {
			delete(limiter.clients, ip)
		}
	}
}

func (limiter *IPRateLimiter) allow(ip string) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	client, found := limiter.clients[ip]
	if !found {
		client = &rateLimitClient{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.clients[ip] = client
	}
	client.lastSeen = time.Now()

	return client.limiter.Allow()
}

// Handler limits requests per IP using the token bucket algorithm.
func (limiter *IPRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !limiter.allow(requestutil.ClientIP(request)) {
			writer.Header().Set(constants.HeaderRetryAfter, "1")
			respond.Error(writer, request, apperr.RateLimited(1))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// # Reliability & Safety

// PanicRecovery recovers from panics, logs stack trace, and returns 500.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			// net/http uses ErrAbortHandler to abort a response silently.
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			stackTrace := make([]byte, 4096)
			length := runtime.Stack(stackTrace, false)

			ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "panic_recovered",
				slog.Any("error", recovered),
				slog.String("stack", string(stackTrace[:length])),
			)

			respond.Error(writer, request, apperr.Internal(nil))
		}()

		next.ServeHTTP(writer, request)
	})
}

// # Cross-Origin Resource Sharing

// CORSConfig defines the behavior needed by the CORS middleware.
type CORSConfig interface {
	IsDevelopment() bool
	AllowedOrigins() []string
}

// CORS handles Cross-Origin Resource Sharing. Credentials are allowed because
// the refresh token travels in a cookie, so origins are matched exactly.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowed := cfg.AllowedOrigins()
	development := cfg.IsDevelopment()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			if development || slices.Contains(allowed, origin) {
				header := writer.Header()
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization, X-Request-ID")
				header.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Max-Age", "300")
				header.Add("Vary", "Origin")
			}

			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
