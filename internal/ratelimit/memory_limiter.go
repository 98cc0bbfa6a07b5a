package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter is the in-process fallback for local dev and tests that
// don't run Redis. It has no pack-example precedent (the teacher always
// routes rate limiting through Redis) so it's built directly on
// golang.org/x/time/rate, which is already in the teacher's module graph
// (see go.mod) even though no teacher file imports it directly.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit}, nil
	}
	if window <= 0 {
		window = time.Minute
	}

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	allowed := lim.Allow()
	var retryAfter time.Duration
	if !allowed {
		r := lim.Reserve()
		retryAfter = r.Delay()
		r.Cancel()
	}

	return Decision{
		Allowed:    allowed,
		Limit:      limit,
		RetryAfter: retryAfter,
		ResetAt:    time.Now().Add(retryAfter),
	}, nil
}
