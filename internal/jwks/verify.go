package jwks

import (
	"time"

	jose "github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/darkauth/server/internal/domain"
)

// AccessTokenClaims is the subset of internal/application/oidc's access
// token shape the resource-server side (HTTP middleware) needs to verify a
// bearer token without importing the oidc package.
type AccessTokenClaims struct {
	josejwt.Claims
	TokenUse string `json:"token_use"`
	Scope    string `json:"scope"`
}

// VerifyAccessToken checks a bearer token's signature against the active
// and retired keys in PublicSet, then validates standard claims and that
// token_use is "access" (an ID token presented as a bearer token is
// rejected, spec §4.4).
func (m *Manager) VerifyAccessToken(issuer, token string) (AccessTokenClaims, error) {
	tok, err := josejwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return AccessTokenClaims{}, domain.ErrTokenInvalid()
	}

	set := m.PublicSet()
	var claims AccessTokenClaims
	verified := false
	for _, k := range set.Keys {
		if err := tok.Claims(k.Key, &claims); err == nil {
			verified = true
			break
		}
	}
	if !verified {
		return AccessTokenClaims{}, domain.ErrTokenInvalid()
	}

	expected := josejwt.Expected{Issuer: issuer, Time: time.Now()}
	if err := claims.Claims.Validate(expected); err != nil {
		if err == josejwt.ErrExpired {
			return AccessTokenClaims{}, domain.ErrTokenExpired()
		}
		return AccessTokenClaims{}, domain.ErrTokenInvalid()
	}
	if claims.TokenUse != "access" {
		return AccessTokenClaims{}, domain.ErrTokenInvalid()
	}

	return claims, nil
}
