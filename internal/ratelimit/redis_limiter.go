package ratelimit

import (
	"context"
	"time"

	"github.com/darkauth/server/internal/infrastructure/redis"
)

// RedisLimiter adapts the kept teacher FixedWindowLimiter (Lua INCR+PEXPIRE
// fixed window) to the Limiter port.
type RedisLimiter struct {
	inner *redis.FixedWindowLimiter
}

func NewRedisLimiter(inner *redis.FixedWindowLimiter) *RedisLimiter {
	return &RedisLimiter{inner: inner}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	d, err := l.inner.AllowFixedWindow(ctx, key, limit, window)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:    d.Allowed,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		RetryAfter: d.RetryAfter,
		ResetAt:    d.ResetAt,
	}, nil
}
