// Package ratelimit applies per-endpoint-class fixed-window limits ahead of
// the expensive cryptographic work in login/registration/token endpoints
// (spec §4.7). Limiter is satisfied by both the Redis-backed production
// implementation (grounded on teacher's internal/infrastructure/redis/
// ratelimiter.go) and an in-memory fallback for local dev/tests.
package ratelimit

import (
	"context"
	"time"
)

// Decision mirrors redis.Decision so callers don't need to import the
// infrastructure package just to read a rate-limit result.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter is the port every HTTP middleware call site depends on.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Class names one of the endpoint buckets spec.md §4.7 defines distinct
// limits for. Each maps to its own (limit, window) pair so a burst against
// /token doesn't starve /authorize.
type Class string

const (
	ClassLogin         Class = "login"
	ClassRegister      Class = "register"
	ClassToken         Class = "token"
	ClassOTPVerify     Class = "otp_verify"
	ClassAdminLogin    Class = "admin_login"
	ClassPasswordReset Class = "password_reset"
)

// Rule is a single class's limit/window pair.
type Rule struct {
	Limit  int
	Window time.Duration
}

// DefaultRules is the endpoint-class table spec.md §4.7 names. Operators can
// override any entry via config without touching this package.
func DefaultRules() map[Class]Rule {
	return map[Class]Rule{
		ClassLogin:         {Limit: 10, Window: time.Minute},
		ClassRegister:      {Limit: 5, Window: time.Hour},
		ClassToken:         {Limit: 30, Window: time.Minute},
		ClassOTPVerify:     {Limit: 5, Window: 5 * time.Minute},
		ClassAdminLogin:    {Limit: 10, Window: time.Minute},
		ClassPasswordReset: {Limit: 3, Window: time.Hour},
	}
}

// Gate wires a Limiter with the endpoint-class rule table and builds the
// Redis key/bucket naming teacher's ratelimiter.go expects: "<class>:<key>".
type Gate struct {
	limiter Limiter
	rules   map[Class]Rule
}

func NewGate(limiter Limiter, rules map[Class]Rule) *Gate {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Gate{limiter: limiter, rules: rules}
}

// Allow checks whether the given class+identity (IP, subject id, or
// client_id depending on the call site) is within its bucket.
func (g *Gate) Allow(ctx context.Context, class Class, identity string) (Decision, error) {
	rule, ok := g.rules[class]
	if !ok {
		return Decision{Allowed: true}, nil
	}
	key := string(class) + ":" + identity
	return g.limiter.Allow(ctx, key, rule.Limit, rule.Window)
}
