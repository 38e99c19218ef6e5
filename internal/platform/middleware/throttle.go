// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/saas-starter/internal/platform/apperr"
	"github.com/taibuivan/saas-starter/internal/platform/constants"
	"github.com/taibuivan/saas-starter/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/saas-starter/internal/platform/request"
	"github.com/taibuivan/saas-starter/internal/platform/respond"
)

// CounterStore increments a counter that expires after window and returns
// the new count.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter implements [CounterStore] on Redis.
type RedisCounter struct {
	client redis.Cmdable
}

// NewRedisCounter wraps a go-redis client.
func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

// Increment runs INCR and EXPIRE in one MULTI/EXEC transaction, so a counter
// key never exists without a TTL.
func (counter *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := counter.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("throttle_increment_failed: %w", err)
	}
	return incr.Val(), nil
}

// Throttle is a fixed-window request counter per (route, client IP) kept in
// Redis, so the limit holds across every API replica. It guards credential
// endpoints against password spraying and reset-email flooding.
type Throttle struct {
	store  CounterStore
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewThrottle allows limit requests per window. A non-positive limit disables it.
func NewThrottle(store CounterStore, limit int, window time.Duration) *Throttle {
	return &Throttle{store: store, limit: int64(limit), window: window, now: time.Now}
}

// Handler enforces the limit. Redis failures are logged and the request is
// let through: an unavailable cache must not lock every user out.
func (throttle *Throttle) Handler(next http.Handler) http.Handler {
	if throttle == nil || throttle.limit <= 0 || throttle.window <= 0 {
		return next
	}

	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		now := throttle.now()

		windowIndex := now.UnixNano() / int64(throttle.window)
		windowEnd := time.Unix(0, (windowIndex+1)*int64(throttle.window))

		key := constants.RedisPrefixAuthThrottle + routeKey(request) + ":" +
			requestutil.ClientIP(request) + ":" + strconv.FormatInt(windowIndex, 10)

		count, err := throttle.store.Increment(ctx, key, throttle.window)
		if err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "auth_throttle_unavailable", slog.Any("error", err))
			next.ServeHTTP(writer, request)
			return
		}

		if count > throttle.limit {
			retryAfter := int(math.Ceil(windowEnd.Sub(now).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
			respond.Error(writer, request, apperr.RateLimited(retryAfter))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

func routeKey(request *http.Request) string {
	if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
		if pattern := routeContext.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return request.URL.Path
}
