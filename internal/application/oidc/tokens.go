package oidc

import (
	"time"

	josejwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/darkauth/server/internal/domain"
)

// idTokenClaims mirrors the claim set spec.md §4.4 names for ID tokens.
type idTokenClaims struct {
	josejwt.Claims
	Nonce     string   `json:"nonce,omitempty"`
	Email     string   `json:"email,omitempty"`
	Name      string   `json:"name,omitempty"`
	AMR       []string `json:"amr"`
	ACR       string   `json:"acr"`
	ZKDRKHash string   `json:"zk_drk_hash,omitempty"`
}

// accessTokenClaims is a signed JWT distinct from the ID token: token_use
// pins its purpose so /userinfo and resource servers can reject an ID token
// presented as a bearer access token.
type accessTokenClaims struct {
	josejwt.Claims
	TokenUse string `json:"token_use"`
	Scope    string `json:"scope"`
}

func defaultIDTokenLifetime(c domain.Client) time.Duration {
	if c.IDTokenLifetime > 0 {
		return c.IDTokenLifetime
	}
	return 300 * time.Second
}

func defaultAccessTokenLifetime(c domain.Client) time.Duration {
	if c.AccessTokenLifetime > 0 {
		return c.AccessTokenLifetime
	}
	return 600 * time.Second
}

func (s *Service) mintIDToken(client domain.Client, subjectID string, user *domain.User, nonce, zkDRKHash string, amr []string, acr string) (string, error) {
	signer, _, err := s.signer.Signer()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := idTokenClaims{
		Claims: josejwt.Claims{
			Issuer:   s.issuer,
			Subject:  subjectID,
			Audience: josejwt.Audience{client.ClientID},
			IssuedAt: josejwt.NewNumericDate(now),
			Expiry:   josejwt.NewNumericDate(now.Add(defaultIDTokenLifetime(client))),
		},
		Nonce:     nonce,
		AMR:       amr,
		ACR:       acr,
		ZKDRKHash: zkDRKHash,
	}
	if user != nil {
		claims.Email = user.Email
		claims.Name = user.Name
	}

	tok, err := josejwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", domain.ErrCryptoFailed(err)
	}
	return tok, nil
}

func (s *Service) mintAccessToken(client domain.Client, subjectID, scope string) (string, error) {
	signer, _, err := s.signer.Signer()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := accessTokenClaims{
		Claims: josejwt.Claims{
			Issuer:   s.issuer,
			Subject:  subjectID,
			Audience: josejwt.Audience{client.ClientID},
			IssuedAt: josejwt.NewNumericDate(now),
			Expiry:   josejwt.NewNumericDate(now.Add(defaultAccessTokenLifetime(client))),
		},
		TokenUse: "access",
		Scope:    scope,
	}

	tok, err := josejwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", domain.ErrCryptoFailed(err)
	}
	return tok, nil
}
