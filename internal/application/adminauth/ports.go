// Package adminauth mirrors internal/application/auth for the admin cohort:
// the same OPAQUE registration/login/session dance, but scoped to
// domain.CohortAdmin and with no ZK Data Root Key delivery — admins never
// hold a wrapped DRK, so there is no WrappedRootKeyRepo port here. It also
// owns the RBAC management operations (create, list, set-role) that only
// admins can perform on other admins.
package adminauth

import (
	"context"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// AdminRepo is the persistence port for admin identities.
type AdminRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.AdminUser, error)
	GetByID(ctx context.Context, id string) (domain.AdminUser, error)
	Create(ctx context.Context, a domain.AdminUser) (domain.AdminUser, error)
	List(ctx context.Context) ([]domain.AdminUser, error)
	CountByRole(ctx context.Context, role domain.AdminRole) (int, error)
	SetRole(ctx context.Context, id string, role domain.AdminRole) error
}

// OpaqueRecordRepo persists the server-side OPAQUE registration record for
// an admin subject. Shared shape with the user cohort's port, duplicated
// here so the two cohorts depend on no common concrete type.
type OpaqueRecordRepo interface {
	Get(ctx context.Context, subjectID string, cohort domain.Cohort) (domain.OpaqueRecord, error)
	Upsert(ctx context.Context, rec domain.OpaqueRecord) error
}

// LoginSessionStore persists OPAQUE AKE state between login-start and
// login-finish for the admin cohort.
type LoginSessionStore interface {
	Create(ctx context.Context, sess domain.OpaqueLoginSession, ttl time.Duration) error
	Consume(ctx context.Context, id string) (domain.OpaqueLoginSession, error)
}

// SessionStore is the admin cohort's session port. The same store instance
// may also back the user cohort's SessionStore; every Session carries its
// Cohort, and Refresh rejects a token whose session belongs to the other
// cohort, so a stolen admin refresh token does not validate against a
// user-scoped refresh or vice versa.
type SessionStore interface {
	Create(ctx context.Context, sess domain.Session, ttl time.Duration) (refreshToken string, err error)
	Rotate(ctx context.Context, oldRefreshToken string, ttl time.Duration) (newRefreshToken string, sess domain.Session, err error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAllForSubject(ctx context.Context, cohort domain.Cohort, subjectID string) error
	Get(ctx context.Context, refreshToken string) (domain.Session, error)
}
