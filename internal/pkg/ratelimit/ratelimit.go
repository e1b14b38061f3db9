package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/logger"
)

const counterKeyPrefix = "ratelimit:source:"

// Limiter is a fixed-window request counter keyed by source address. The
// counter lives in Redis, so the window survives process restarts and is
// shared by every instance pointed at the same cache.
type Limiter struct {
	client      *redis.Client
	maxRequests int64
	window      time.Duration
}

// NewLimiterFromEnv builds a limiter from RATE_LIMIT_MAX_REQUESTS and
// RATE_LIMIT_WINDOW_SECONDS.
func NewLimiterFromEnv(client *redis.Client) *Limiter {
	maxRequests, err := strconv.ParseInt(env.GetEnv("RATE_LIMIT_MAX_REQUESTS", "100"), 10, 64)
	if err != nil || maxRequests < 1 {
		maxRequests = 100
	}
	windowSeconds, err := strconv.ParseInt(env.GetEnv("RATE_LIMIT_WINDOW_SECONDS", "3600"), 10, 64)
	if err != nil || windowSeconds < 1 {
		windowSeconds = 3600
	}
	return NewLimiter(client, maxRequests, time.Duration(windowSeconds)*time.Second)
}

// NewLimiter builds a limiter admitting at most maxRequests per window for
// each source key.
func NewLimiter(client *redis.Client, maxRequests int64, window time.Duration) *Limiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if window < time.Second {
		window = time.Second
	}
	return &Limiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow reports whether a request from sourceKey may proceed. INCR is the
// atomic read-modify-write; two concurrent requests at limit-1 can never
// both observe a count below the limit. The first hit in a window starts the
// key TTL, which acts as the window start.
func (l *Limiter) Allow(ctx context.Context, sourceKey string) bool {
	key := counterKeyPrefix + sourceKey

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		// Counting is unavailable, the ingest path is not. Fail open.
		logger.L().Warn("rate limit counter unavailable, admitting request",
			zap.String("source", sourceKey),
			zap.Error(err))
		return true
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			logger.L().Warn("failed to start rate limit window",
				zap.String("source", sourceKey),
				zap.Error(err))
		}
	} else if count > l.maxRequests {
		// A key without TTL would throttle forever; repair it before denying.
		if ttl, err := l.client.TTL(ctx, key).Result(); err == nil && ttl < 0 {
			_ = l.client.Expire(ctx, key, l.window).Err()
		}
		return false
	}

	return count <= l.maxRequests
}
