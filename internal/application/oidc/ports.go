// Package oidc implements the authorization-code pipeline: pending
// authorization requests, PKCE S256 verification, single-use code minting
// and consumption, the token endpoint's three grants, and ID/access token
// minting via the shared JWKS signing key.
package oidc

import (
	"context"
	"time"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/darkauth/server/internal/domain"
)

type ClientRepo interface {
	GetByID(ctx context.Context, clientID string) (domain.Client, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

type WrappedRootKeyRepo interface {
	Get(ctx context.Context, userID string) (domain.WrappedRootKey, error)
	Upsert(ctx context.Context, wrk domain.WrappedRootKey) error
}

// EncPublicJWKRepo persists the user's public encryption JWK, published so a
// relying party can encrypt data to the user out of band (spec §6,
// PUT/GET /crypto/enc-public-jwk).
type EncPublicJWKRepo interface {
	Get(ctx context.Context, userID string) (string, error)
	Upsert(ctx context.Context, userID, jwk string) error
}

// PendingAuthRepo is the single-use, short-lived record created at
// GET /authorize and bound to a subject once the user completes login.
type PendingAuthRepo interface {
	Create(ctx context.Context, pa domain.PendingAuth, ttl time.Duration) error
	Get(ctx context.Context, id string) (domain.PendingAuth, error)
	Update(ctx context.Context, pa domain.PendingAuth, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// AuthCodeRepo mints and atomically consumes (exactly once) an authorization
// code at POST /token.
type AuthCodeRepo interface {
	Save(ctx context.Context, code domain.AuthCode, ttl time.Duration) error
	Consume(ctx context.Context, code string) (domain.AuthCode, error)
}

// SessionStore issues and rotates the cohort-scoped refresh token backing
// the token endpoint's authorization_code and refresh_token grants.
// A subset (Create, Rotate) of auth.SessionStore/adminauth.SessionStore;
// the same infrastructure implementation satisfies all three.
type SessionStore interface {
	Create(ctx context.Context, sess domain.Session, ttl time.Duration) (string, error)
	Rotate(ctx context.Context, oldRefreshToken string, ttl time.Duration) (string, domain.Session, error)
}

// Signer mints signed JWTs from the active JWKS key. Implemented by
// internal/jwks.Manager.
type Signer interface {
	Signer() (signer jose.Signer, kid string, err error)
}
