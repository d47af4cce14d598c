package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one admission check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before retrying
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now).Round(time.Second)
}

// Limiter admits or rejects a request for an identifier
type Limiter interface {
	Allow(ctx context.Context, identifier string) (Decision, error)
}

// NoopLimiter admits everything
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// RedisLimiter is a sliding-window limiter over a Redis sorted set per
// identifier. Every request, admitted or not, is recorded in the window.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
	prefix      string
	now         func() time.Time
}

func NewRedisLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		prefix:      "ledger:ratelimit:",
		now:         time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, identifier string) (Decision, error) {
	key := l.prefix + identifier
	now := l.now()
	windowStart := now.Add(-l.window)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, key, l.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit check for %s: %w", identifier, err)
	}

	return decide(countCmd.Val(), l.maxRequests, now, l.window), nil
}

// decide turns the number of requests already in the window into a decision
func decide(count int64, maxRequests int, now time.Time, window time.Duration) Decision {
	remaining := maxRequests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count < int64(maxRequests),
		Limit:     maxRequests,
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}
}
