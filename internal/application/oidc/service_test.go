package oidc

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/infrastructure/memory"
	"github.com/darkauth/server/internal/jwks"
	"github.com/darkauth/server/internal/zk"
)

// ---- in-memory fakes ----

type fakeClientRepo struct {
	clients map[string]domain.Client
}

func (f *fakeClientRepo) GetByID(_ context.Context, id string) (domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound()
	}
	return c, nil
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

type fakeWrappedRepo struct {
	keys map[string]domain.WrappedRootKey
}

func (f *fakeWrappedRepo) Get(_ context.Context, userID string) (domain.WrappedRootKey, error) {
	k, ok := f.keys[userID]
	if !ok {
		return domain.WrappedRootKey{}, domain.ErrUserNotFound()
	}
	return k, nil
}

func (f *fakeWrappedRepo) Upsert(_ context.Context, wrk domain.WrappedRootKey) error {
	f.keys[wrk.UserID] = wrk
	return nil
}

type fakePendingAuthRepo struct {
	entries map[string]domain.PendingAuth
}

func newFakePendingAuthRepo() *fakePendingAuthRepo {
	return &fakePendingAuthRepo{entries: map[string]domain.PendingAuth{}}
}

func (f *fakePendingAuthRepo) Create(_ context.Context, pa domain.PendingAuth, _ time.Duration) error {
	f.entries[pa.ID] = pa
	return nil
}

func (f *fakePendingAuthRepo) Get(_ context.Context, id string) (domain.PendingAuth, error) {
	pa, ok := f.entries[id]
	if !ok {
		return domain.PendingAuth{}, domain.ErrPendingAuthStateMismatch()
	}
	return pa, nil
}

func (f *fakePendingAuthRepo) Update(_ context.Context, pa domain.PendingAuth, _ time.Duration) error {
	f.entries[pa.ID] = pa
	return nil
}

func (f *fakePendingAuthRepo) Delete(_ context.Context, id string) error {
	delete(f.entries, id)
	return nil
}

type fakeAuthCodeRepo struct {
	codes map[string]domain.AuthCode
}

func newFakeAuthCodeRepo() *fakeAuthCodeRepo {
	return &fakeAuthCodeRepo{codes: map[string]domain.AuthCode{}}
}

func (f *fakeAuthCodeRepo) Save(_ context.Context, code domain.AuthCode, _ time.Duration) error {
	f.codes[code.Code] = code
	return nil
}

func (f *fakeAuthCodeRepo) Consume(_ context.Context, code string) (domain.AuthCode, error) {
	ac, ok := f.codes[code]
	if !ok {
		return domain.AuthCode{}, domain.ErrAuthCodeNotFound()
	}
	delete(f.codes, code)
	return ac, nil
}

type fakeSessionStore struct {
	sessions map[string]domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]domain.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, sess domain.Session, _ time.Duration) (string, error) {
	tok, err := cryptoutil.NewOpaqueToken(16)
	if err != nil {
		return "", err
	}
	f.sessions[tok] = sess
	return tok, nil
}

func (f *fakeSessionStore) Rotate(_ context.Context, oldToken string, _ time.Duration) (string, domain.Session, error) {
	sess, ok := f.sessions[oldToken]
	if !ok {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	delete(f.sessions, oldToken)
	newTok, err := cryptoutil.NewOpaqueToken(16)
	if err != nil {
		return "", domain.Session{}, err
	}
	f.sessions[newTok] = sess
	return newTok, sess, nil
}

func testSigner(t *testing.T) *jwks.Manager {
	t.Helper()
	store := memory.NewJWKSStore()
	m := jwks.New(store)
	require.NoError(t, m.Bootstrap(context.Background()))
	return m
}

func testECKey() (*ecdsa.PrivateKey, error) {
	return zk.NewEphemeralKey()
}

// ---- service construction ----

func newTestService(t *testing.T, client domain.Client) (*Service, *fakePendingAuthRepo, *fakeAuthCodeRepo, *fakeSessionStore) {
	t.Helper()
	clients := &fakeClientRepo{clients: map[string]domain.Client{client.ClientID: client}}
	users := &fakeUserRepo{users: map[string]domain.User{}}
	wrapped := &fakeWrappedRepo{keys: map[string]domain.WrappedRootKey{}}
	pending := newFakePendingAuthRepo()
	codes := newFakeAuthCodeRepo()
	sessions := newFakeSessionStore()
	signer := testSigner(t)

	svc := NewService(clients, users, wrapped, memory.NewEncPublicJWKStore(), pending, codes, sessions, signer, Config{Issuer: "https://darkauth.test"})
	return svc, pending, codes, sessions
}

func TestAuthorize_RejectsUnknownClient(t *testing.T) {
	svc, _, _, _ := newTestService(t, domain.Client{ClientID: "c1", RedirectURIs: []string{"https://app/cb"}})

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID: "unknown", RedirectURI: "https://app/cb", ResponseType: "code",
	})
	require.True(t, domain.Is(err, "invalid_client"))
}

func TestAuthorize_RejectsRedirectURIMismatch(t *testing.T) {
	svc, _, _, _ := newTestService(t, domain.Client{ClientID: "c1", RedirectURIs: []string{"https://app/cb"}, RequirePKCE: true})

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID: "c1", RedirectURI: "https://evil/cb", ResponseType: "code",
		CodeChallenge: "x", CodeChallengeMethod: "S256",
	})
	require.True(t, domain.Is(err, "invalid_client"))
}

func TestAuthorize_RequiresPKCEByDefault(t *testing.T) {
	svc, _, _, _ := newTestService(t, domain.Client{ClientID: "c1", RedirectURIs: []string{"https://app/cb"}, RequirePKCE: true})

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID: "c1", RedirectURI: "https://app/cb", ResponseType: "code",
	})
	require.True(t, domain.Is(err, "invalid_request"))
}

func TestFullAuthorizationCodeFlow_WithPKCE(t *testing.T) {
	client := domain.Client{ClientID: "c1", RedirectURIs: []string{"https://app/cb"}, RequirePKCE: true, GrantTypes: []string{"authorization_code"}}
	svc, _, _, _ := newTestService(t, client)

	verifier := "abcdefghijklmnopqrstuvwxyz0123456789_-abcdefghij"
	challenge := cryptoutil.HashToken(verifier)

	reqID, err := svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID: "c1", RedirectURI: "https://app/cb", ResponseType: "code",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)

	require.NoError(t, svc.BindSubject(context.Background(), reqID, "user-1"))

	fin, err := svc.Finalize(context.Background(), reqID)
	require.NoError(t, err)
	require.NotEmpty(t, fin.Code)

	result, err := svc.ExchangeAuthorizationCode(context.Background(), "c1", fin.Code, "https://app/cb", verifier)
	require.NoError(t, err)
	require.NotEmpty(t, result.IDToken)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
}

func TestExchangeAuthorizationCode_RejectsWrongVerifier(t *testing.T) {
	client := domain.Client{ClientID: "c1", RedirectURIs: []string{"https://app/cb"}, RequirePKCE: true, GrantTypes: []string{"authorization_code"}}
	svc, _, _, _ := newTestService(t, client)

	verifier := "abcdefghijklmnopqrstuvwxyz0123456789_-abcdefghij"
	challenge := cryptoutil.HashToken(verifier)

	reqID, err := svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID: "c1", RedirectURI: "https://app/cb", ResponseType: "code",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)
	require.NoError(t, svc.BindSubject(context.Background(), reqID, "user-1"))
	fin, err := svc.Finalize(context.Background(), reqID)
	require.NoError(t, err)

	_, err = svc.ExchangeAuthorizationCode(context.Background(), "c1", fin.Code, "https://app/cb", "wrong-verifier-wrong-verifier-wrong-verifier123")
	require.True(t, domain.Is(err, "invalid_grant"))
}

func TestExchangeAuthorizationCode_CodeIsSingleUse(t *testing.T) {
	client := domain.Client{ClientID: "c1", RedirectURIs: []string{"https://app/cb"}, RequirePKCE: true, GrantTypes: []string{"authorization_code"}}
	svc, _, _, _ := newTestService(t, client)

	verifier := "abcdefghijklmnopqrstuvwxyz0123456789_-abcdefghij"
	challenge := cryptoutil.HashToken(verifier)

	reqID, err := svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID: "c1", RedirectURI: "https://app/cb", ResponseType: "code",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)
	require.NoError(t, svc.BindSubject(context.Background(), reqID, "user-1"))
	fin, err := svc.Finalize(context.Background(), reqID)
	require.NoError(t, err)

	_, err = svc.ExchangeAuthorizationCode(context.Background(), "c1", fin.Code, "https://app/cb", verifier)
	require.NoError(t, err)

	_, err = svc.ExchangeAuthorizationCode(context.Background(), "c1", fin.Code, "https://app/cb", verifier)
	require.True(t, domain.Is(err, "invalid_grant"))
}

func TestClientCredentials_RejectsPublicClient(t *testing.T) {
	client := domain.Client{ClientID: "c1", Public: true, GrantTypes: []string{"client_credentials"}}
	svc, _, _, _ := newTestService(t, client)

	_, err := svc.ClientCredentials(context.Background(), "c1", "", "")
	require.True(t, domain.Is(err, "invalid_client"))
}

func TestClientCredentials_RejectsBadSecret(t *testing.T) {
	client := domain.Client{ClientID: "c1", SecretHash: "good-hash", GrantTypes: []string{"client_credentials"}}
	svc, _, _, _ := newTestService(t, client)

	_, err := svc.ClientCredentials(context.Background(), "c1", "bad-hash", "")
	require.True(t, domain.Is(err, "invalid_client"))
}

func TestClientCredentials_RestrictsScopeToRegistration(t *testing.T) {
	client := domain.Client{ClientID: "c1", SecretHash: "good-hash", GrantTypes: []string{"client_credentials"}, Scopes: []string{"read", "write"}}
	svc, _, _, _ := newTestService(t, client)

	result, err := svc.ClientCredentials(context.Background(), "c1", "good-hash", "read admin")
	require.NoError(t, err)
	require.Equal(t, "read", result.Scope)
}

func TestParseZKPub_RejectsPrivateKey(t *testing.T) {
	priv, err := testECKey()
	require.NoError(t, err)

	raw, err := json.Marshal(jose.JSONWebKey{Key: priv})
	require.NoError(t, err)
	b64 := base64.RawURLEncoding.EncodeToString(raw)

	_, err = parseZKPub(b64)
	require.Error(t, err)
}
