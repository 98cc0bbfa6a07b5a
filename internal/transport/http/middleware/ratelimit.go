package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/ratelimit"
)

// RateLimit wraps internal/ratelimit.Gate for a single endpoint class
// (spec §4.7). Grounded on the teacher's RateLimitFixedWindow: identity is
// the authenticated subject if present, else client IP; fails open on
// limiter error so a Redis outage degrades to unlimited rather than
// locking everyone out.
func RateLimit(gate *ratelimit.Gate, class ratelimit.Class, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				next.ServeHTTP(w, r)
				return
			}

			dec, err := gate.Allow(r.Context(), class, subjectOrIP(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if !dec.Allowed {
				if dec.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", int(dec.RetryAfter.Seconds())))
				}
				writeErr(w, r, domain.ErrRateLimited(string(class)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// subjectOrIP prefers the authenticated subject id if present; otherwise
// falls back to client IP.
func subjectOrIP(r *http.Request) string {
	if sub, ok := SubjectIDFromContext(r.Context()); ok && strings.TrimSpace(sub) != "" {
		return "s:" + sub
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
