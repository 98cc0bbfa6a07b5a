// Package security holds small cryptographic adapters that sit outside the
// OPAQUE/ZK core: the admin-cohort bearer access token and the session
// cookie helpers.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darkauth/server/internal/domain"
)

// JWTSigner issues and verifies the short-lived admin access token that
// rides alongside the opaque admin refresh token minted by
// internal/application/adminauth. It is never used for OIDC-facing ID or
// access tokens, which are EdDSA-signed via internal/jwks.
type JWTSigner struct {
	secret []byte
	issuer string
}

func NewJWTSigner(secret, issuer string) *JWTSigner {
	return &JWTSigner{secret: []byte(secret), issuer: issuer}
}

// AdminClaims is the admin cohort's bearer claim set: subject id and RBAC
// role, so middleware can authorize admin endpoints without a store round
// trip on every request.
type AdminClaims struct {
	AdminID string `json:"aid"`
	Role    string `json:"role"`
	Exp     time.Time
}

type adminAccessClaims struct {
	AdminID string `json:"aid"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) SignAdminAccessToken(adminID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := adminAccessClaims{
		AdminID: adminID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

func (s *JWTSigner) VerifyAdminAccessToken(token string) (AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &adminAccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AdminClaims{}, domain.ErrTokenExpired()
		}
		return AdminClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*adminAccessClaims)
	if !ok || !parsed.Valid {
		return AdminClaims{}, domain.ErrTokenInvalid()
	}

	exp := time.Time{}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return AdminClaims{AdminID: claims.AdminID, Role: claims.Role, Exp: exp}, nil
}
