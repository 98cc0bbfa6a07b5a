// Package auth implements the end-user cohort: OPAQUE registration/login,
// session issuance, and refresh rotation. It has no notion of OIDC clients
// or scopes — that lives in internal/application/oidc, which calls into
// this package's SessionStore and OpaqueEngine ports to authenticate a
// subject before minting an authorization code.
package auth

import (
	"context"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// UserRepo is the persistence port for end-user identities.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	SetEmailVerified(ctx context.Context, userID string) error
}

// OpaqueRecordRepo persists the server-side OPAQUE registration record for
// a subject in a given cohort.
type OpaqueRecordRepo interface {
	Get(ctx context.Context, subjectID string, cohort domain.Cohort) (domain.OpaqueRecord, error)
	Upsert(ctx context.Context, rec domain.OpaqueRecord) error
}

// WrappedRootKeyRepo persists the opaque (to the server) ciphertext blob the
// client produces by wrapping its Data Root Key under KW.
type WrappedRootKeyRepo interface {
	Get(ctx context.Context, userID string) (domain.WrappedRootKey, error)
	Upsert(ctx context.Context, wrk domain.WrappedRootKey) error
}

// LoginSessionStore persists OPAQUE AKE state between login-start and
// login-finish. Sessions are single-use and short-lived (spec §4.1).
type LoginSessionStore interface {
	Create(ctx context.Context, sess domain.OpaqueLoginSession, ttl time.Duration) error
	Consume(ctx context.Context, id string) (domain.OpaqueLoginSession, error)
}

// SessionStore is the cohort-scoped refresh-token/session port. Refresh
// rotation is single-use: Rotate must atomically invalidate the
// presented token and mint a new one, or fail if the token was already
// rotated/revoked (property P3).
type SessionStore interface {
	Create(ctx context.Context, sess domain.Session, ttl time.Duration) (refreshToken string, err error)
	Rotate(ctx context.Context, oldRefreshToken string, ttl time.Duration) (newRefreshToken string, sess domain.Session, err error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAllForSubject(ctx context.Context, cohort domain.Cohort, subjectID string) error
	Get(ctx context.Context, refreshToken string) (domain.Session, error)
}
