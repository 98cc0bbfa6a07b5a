package oidc

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/zk"
)

const (
	pendingAuthTTL = 10 * time.Minute
	authCodeTTL    = 60 * time.Second
)

// Service implements the authorization-code pipeline described in spec §4.4:
// GET /authorize creates a PendingAuth, POST /finalize binds it to an
// authenticated subject and mints a single-use code, and POST /token
// exchanges that code (or rotates a refresh token, or mints a
// client-credentials token) for the OIDC token set.
type Service struct {
	clients  ClientRepo
	users    UserRepo
	wrapped  WrappedRootKeyRepo
	encJWKs  EncPublicJWKRepo
	pending  PendingAuthRepo
	codes    AuthCodeRepo
	sessions SessionStore
	signer   Signer

	issuer     string
	refreshTTL time.Duration
}

type Config struct {
	Issuer     string
	RefreshTTL time.Duration
}

func NewService(clients ClientRepo, users UserRepo, wrapped WrappedRootKeyRepo, encJWKs EncPublicJWKRepo, pending PendingAuthRepo, codes AuthCodeRepo, sessions SessionStore, signer Signer, cfg Config) *Service {
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		clients: clients, users: users, wrapped: wrapped, encJWKs: encJWKs,
		pending: pending, codes: codes, sessions: sessions, signer: signer,
		issuer: cfg.Issuer, refreshTTL: refreshTTL,
	}
}

// GetWrappedRootKey exposes the stored wrapped DRK for the authenticated
// subject (GET /crypto/wrapped-drk).
func (s *Service) GetWrappedRootKey(ctx context.Context, userID string) (domain.WrappedRootKey, error) {
	return s.wrapped.Get(ctx, userID)
}

// PutWrappedRootKey lets an authenticated subject (re-)upload its
// client-wrapped DRK outside the registration flow, e.g. after a local key
// rotation (PUT /crypto/wrapped-drk).
func (s *Service) PutWrappedRootKey(ctx context.Context, userID string, ciphertext, nonce []byte, kdfVersion int) error {
	return s.wrapped.Upsert(ctx, domain.WrappedRootKey{
		UserID: userID, Ciphertext: ciphertext, Nonce: nonce, KDFVersion: kdfVersion, UpdatedAt: time.Now(),
	})
}

// GetEncPublicJWK/PutEncPublicJWK back PUT/GET /crypto/enc-public-jwk.
func (s *Service) GetEncPublicJWK(ctx context.Context, userID string) (string, error) {
	return s.encJWKs.Get(ctx, userID)
}

func (s *Service) PutEncPublicJWK(ctx context.Context, userID, jwk string) error {
	return s.encJWKs.Upsert(ctx, userID, jwk)
}

// LookupUserByEmail backs GET /api/users (spec §6); a directory search by
// other fields is out of scope until a dedicated search port exists.
func (s *Service) LookupUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// AuthorizeRequest is the validated GET /authorize query.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	ZKPub               string // base64url(JSON JWK), optional
	Origin              string
}

// Authorize validates the request against the client registration and
// creates a PendingAuth record, returning its id for the login UI to carry
// through the OPAQUE login flow.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (requestID string, err error) {
	client, err := s.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return "", domain.ErrInvalidClient("unknown client_id")
	}

	if req.ResponseType != "code" {
		return "", domain.ErrInvalidRequest("response_type must be code")
	}

	if !containsExact(client.RedirectURIs, req.RedirectURI) {
		return "", domain.ErrInvalidClient("redirect_uri does not match a registered URI")
	}

	requirePKCE := client.RequirePKCE
	if req.CodeChallenge == "" && requirePKCE {
		return "", domain.ErrInvalidRequest("code_challenge required")
	}
	if req.CodeChallenge != "" && req.CodeChallengeMethod != "S256" {
		return "", domain.ErrInvalidRequest("code_challenge_method must be S256")
	}

	var zkPubKID string
	if client.ZKDelivery {
		if req.ZKPub == "" {
			if client.ZKRequired {
				return "", domain.ErrInvalidRequest("zk_pub required")
			}
		} else {
			if _, err := parseZKPub(req.ZKPub); err != nil {
				return "", domain.ErrInvalidRequest("zk_pub is not a valid P-256 public JWK")
			}
			if len(client.AllowedZKOrigins) > 0 && !containsExact(client.AllowedZKOrigins, req.Origin) {
				return "", domain.ErrInvalidRequest("origin not allowed for ZK delivery")
			}
			zkPubKID = cryptoutil.HashToken(req.ZKPub)
		}
	}

	id := uuid.NewString()
	pa := domain.PendingAuth{
		ID:                  id,
		ClientID:            client.ClientID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		State:               req.State,
		Nonce:               req.Nonce,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		ZKPub:               req.ZKPub,
		ZKPubKID:            zkPubKID,
		Origin:              req.Origin,
		CreatedAt:           time.Now(),
	}

	if err := s.pending.Create(ctx, pa, pendingAuthTTL); err != nil {
		return "", err
	}
	return id, nil
}

// BindSubject stamps the authenticated subject onto a PendingAuth record
// once OPAQUE login (and OTP, if required) succeeds.
func (s *Service) BindSubject(ctx context.Context, requestID, subjectID string) error {
	pa, err := s.pending.Get(ctx, requestID)
	if err != nil {
		return domain.ErrPendingAuthStateMismatch()
	}
	pa.SubjectID = subjectID
	return s.pending.Update(ctx, pa, pendingAuthTTL)
}

// FinalizeResult is what POST /finalize returns: the single-use code, and
// for ZK clients the one-time DRK JWE plus its binding hash.
type FinalizeResult struct {
	Code      string
	ZKDRKHash string
	DRKJWE    string
}

// Finalize mints a single-use authorization code for a bound PendingAuth. If
// the client expects ZK delivery, the zk_pub validated at /authorize time is
// used to re-encrypt the wrapped DRK into a compact JWE here and return it
// exactly once; only its hash is retained server-side (spec §4.5 — drk_jwe
// must never be persisted).
func (s *Service) Finalize(ctx context.Context, requestID string) (FinalizeResult, error) {
	pa, err := s.pending.Get(ctx, requestID)
	if err != nil {
		return FinalizeResult{}, domain.ErrPendingAuthStateMismatch()
	}
	if pa.SubjectID == "" {
		return FinalizeResult{}, domain.ErrPendingAuthStateMismatch()
	}

	client, err := s.clients.GetByID(ctx, pa.ClientID)
	if err != nil {
		return FinalizeResult{}, domain.ErrInvalidClient("unknown client_id")
	}

	code, err := cryptoutil.NewOpaqueToken(24) // >=128 bits entropy
	if err != nil {
		return FinalizeResult{}, err
	}

	ac := domain.AuthCode{
		Code:          code,
		ClientID:      client.ClientID,
		SubjectID:     pa.SubjectID,
		RedirectURI:   pa.RedirectURI,
		Scope:         pa.Scope,
		Nonce:         pa.Nonce,
		CodeChallenge: pa.CodeChallenge,
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(authCodeTTL),
	}

	result := FinalizeResult{Code: code}

	if client.ZKDelivery && pa.ZKPub != "" {
		pub, perr := parseZKPub(pa.ZKPub)
		if perr != nil {
			return FinalizeResult{}, domain.ErrInvalidRequest("zk_pub is not a valid P-256 public JWK")
		}
		wrk, werr := s.wrapped.Get(ctx, pa.SubjectID)
		if werr != nil {
			return FinalizeResult{}, werr
		}
		payload := zk.Payload{
			WrappedDRK: base64.RawURLEncoding.EncodeToString(wrk.Ciphertext),
			Nonce:      base64.RawURLEncoding.EncodeToString(wrk.Nonce),
			KDFVersion: wrk.KDFVersion,
		}
		compactJWE, zkHash, eerr := zk.Encrypt(payload, pub)
		if eerr != nil {
			return FinalizeResult{}, eerr
		}
		ac.ZKDRKHash = zkHash
		result.ZKDRKHash = zkHash
		result.DRKJWE = compactJWE
	}

	if err := s.codes.Save(ctx, ac, authCodeTTL); err != nil {
		return FinalizeResult{}, err
	}
	_ = s.pending.Delete(ctx, requestID)

	return result, nil
}

// TokenResult is the token endpoint's JSON response shape.
type TokenResult struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ZKDRKHash    string
	Scope        string
	TokenType    string
	ExpiresIn    int
}

// ExchangeAuthorizationCode implements grant_type=authorization_code: PKCE
// verification, single-use code consumption, and ID+access token minting.
func (s *Service) ExchangeAuthorizationCode(ctx context.Context, clientID, code, redirectURI, codeVerifier string) (TokenResult, error) {
	ac, err := s.codes.Consume(ctx, code)
	if err != nil {
		return TokenResult{}, domain.ErrInvalidGrant("authorization code not found or already consumed")
	}
	if ac.ClientID != clientID {
		return TokenResult{}, domain.ErrInvalidGrant("client_id mismatch")
	}
	if ac.RedirectURI != redirectURI {
		return TokenResult{}, domain.ErrInvalidGrant("redirect_uri mismatch")
	}
	if time.Now().After(ac.ExpiresAt) && !ac.ExpiresAt.IsZero() {
		return TokenResult{}, domain.ErrInvalidGrant("authorization code expired")
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return TokenResult{}, domain.ErrInvalidClient("unknown client_id")
	}

	if ac.CodeChallenge != "" {
		if codeVerifier == "" || cryptoutil.HashToken(codeVerifier) != ac.CodeChallenge {
			return TokenResult{}, domain.ErrInvalidGrant("PKCE verifier mismatch")
		}
	} else if client.RequirePKCE {
		return TokenResult{}, domain.ErrInvalidGrant("PKCE verifier required")
	}

	user, uerr := s.users.GetByID(ctx, ac.SubjectID)
	var userPtr *domain.User
	if uerr == nil {
		userPtr = &user
	}

	amr := []string{"pwd"}
	acr := "1"

	idToken, err := s.mintIDToken(client, ac.SubjectID, userPtr, ac.Nonce, ac.ZKDRKHash, amr, acr)
	if err != nil {
		return TokenResult{}, err
	}
	accessToken, err := s.mintAccessToken(client, ac.SubjectID, ac.Scope)
	if err != nil {
		return TokenResult{}, err
	}

	refreshToken, _, err := s.sessions.Create(ctx, domain.Session{
		ID: uuid.NewString(), Cohort: domain.CohortUser, SubjectID: ac.SubjectID,
		ClientID: clientID, CreatedAt: time.Now(),
	}, s.refreshTTL)
	if err != nil {
		return TokenResult{}, err
	}

	return TokenResult{
		IDToken: idToken, AccessToken: accessToken, RefreshToken: refreshToken,
		ZKDRKHash: ac.ZKDRKHash, Scope: ac.Scope, TokenType: "Bearer",
		ExpiresIn: int(defaultAccessTokenLifetime(client).Seconds()),
	}, nil
}

// ExchangeRefreshToken implements grant_type=refresh_token by delegating to
// the session store's atomic single-use rotation (property P3).
func (s *Service) ExchangeRefreshToken(ctx context.Context, clientID, oldRefreshToken string) (TokenResult, error) {
	newToken, sess, err := s.sessions.Rotate(ctx, oldRefreshToken, s.refreshTTL)
	if err != nil {
		return TokenResult{}, domain.ErrInvalidGrant("refresh token invalid or already rotated")
	}
	if sess.Cohort != domain.CohortUser {
		return TokenResult{}, domain.ErrInvalidGrant("refresh token invalid or already rotated")
	}
	if sess.ClientID != clientID {
		return TokenResult{}, domain.ErrInvalidGrant("client_id mismatch")
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return TokenResult{}, domain.ErrInvalidClient("unknown client_id")
	}

	accessToken, err := s.mintAccessToken(client, sess.SubjectID, "")
	if err != nil {
		return TokenResult{}, err
	}

	return TokenResult{
		AccessToken: accessToken, RefreshToken: newToken, TokenType: "Bearer",
		ExpiresIn: int(defaultAccessTokenLifetime(client).Seconds()),
	}, nil
}

// ClientCredentials implements grant_type=client_credentials: confidential
// clients only, no ID token, scopes limited to the client's registration.
func (s *Service) ClientCredentials(ctx context.Context, clientID, clientSecretHash, requestedScope string) (TokenResult, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return TokenResult{}, domain.ErrInvalidClient("unknown client_id")
	}
	if client.Public {
		return TokenResult{}, domain.ErrInvalidClient("public clients cannot use client_credentials")
	}
	if !containsExact(client.GrantTypes, "client_credentials") {
		return TokenResult{}, domain.ErrUnsupportedGrantType("client_credentials")
	}
	if client.SecretHash != clientSecretHash {
		return TokenResult{}, domain.ErrInvalidClient("bad client secret")
	}

	scope := restrictScope(requestedScope, client.Scopes)

	accessToken, err := s.mintAccessToken(client, clientID, scope)
	if err != nil {
		return TokenResult{}, err
	}
	return TokenResult{
		AccessToken: accessToken, Scope: scope, TokenType: "Bearer",
		ExpiresIn: int(defaultAccessTokenLifetime(client).Seconds()),
	}, nil
}

func restrictScope(requested string, allowed []string) string {
	if requested == "" {
		return strings.Join(allowed, " ")
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	var kept []string
	for _, s := range strings.Fields(requested) {
		if _, ok := allowedSet[s]; ok {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}

func containsExact(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// parseZKPub decodes an authorize-time zk_pub parameter: base64url(JSON JWK)
// with kty=EC, crv=P-256, x/y present, no private component (spec §4.4).
func parseZKPub(b64 string) (*ecdsa.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(raw, &jwk); err != nil {
		return nil, err
	}
	pub, ok := jwk.Key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, domain.ErrInvalidRequest("zk_pub must be an EC P-256 public key")
	}
	if !jwk.IsPublic() {
		return nil, domain.ErrInvalidRequest("zk_pub must not contain a private component")
	}
	return pub, nil
}
