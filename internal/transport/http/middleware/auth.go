package middleware

import (
	"net/http"
	"strings"

	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/infrastructure/security"
	"github.com/darkauth/server/internal/jwks"
)

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}

// AuthUser verifies Authorization: Bearer <access_token> against the OIDC
// signing keys for the end-user cohort and injects the subject into
// context. Unlike the teacher's per-user token_version counter, revocation
// here is session-store based (RevokeAllForSubject) — a still-valid
// signature within its lifetime is accepted; the short access-token TTL
// (spec §4.4, default 600s) bounds exposure after a revoke.
func AuthUser(verifier *jwks.Manager, issuer string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			claims, err := verifier.VerifyAccessToken(issuer, raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			if strings.TrimSpace(claims.Subject) == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			ctx := WithSubject(r.Context(), claims.Subject, domain.CohortUser, "")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthAdmin verifies Authorization: Bearer <admin_access_token> using the
// admin cohort's HS256 signer (internal/infrastructure/security.JWTSigner)
// and injects the admin id + role into context.
func AuthAdmin(signer *security.JWTSigner, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			claims, err := signer.VerifyAdminAccessToken(raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			ctx := WithSubject(r.Context(), claims.AdminID, domain.CohortAdmin, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
