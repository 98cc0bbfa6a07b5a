package middleware

import (
	"net/http"

	"github.com/darkauth/server/internal/domain"
)

// RequireAdminRole enforces the admin cohort's read/write rank (spec §4.6).
// Assumes AuthAdmin has already injected the admin's role into context.
func RequireAdminRole(minRole domain.AdminRole, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := AdminRoleFromContext(r.Context())
			if !ok {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			if !domain.IsValidAdminRole(role) {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			if domain.AdminRoleRank(role) < domain.AdminRoleRank(string(minRole)) {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
