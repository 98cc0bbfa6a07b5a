package domain

import "time"

// Cohort separates the end-user authentication realm from the admin
// authentication realm. The two never share a session store namespace.
type Cohort string

const (
	CohortUser  Cohort = "user"
	CohortAdmin Cohort = "admin"
)

// User is an end-user identity. DarkAuth never stores or derives a password
// hash for a user — OpaqueRecord carries everything the OPAQUE server side
// needs, and the user's data root key never leaves the client in the clear.
type User struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AdminUser is a separate cohort from User; admins authenticate via their
// own OPAQUE registration and never receive a ZK-wrapped DRK (spec §4.6 —
// no zero-knowledge data for the admin console).
type AdminUser struct {
	ID        string
	Email     string
	Role      string // "read" or "write"
	CreatedAt time.Time
}

// OpaqueRecord is the server-side state produced by an OPAQUE registration:
// the serialized envelope plus the client's OPRF-related public material.
// It never contains anything derived from the plaintext password.
type OpaqueRecord struct {
	SubjectID       string // User.ID or AdminUser.ID
	Cohort          Cohort
	Envelope        []byte // bytemare/opaque RegistrationRecord serialization
	ServerPublicKey []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WrappedRootKey stores the client-wrapped Data Root Key (DRK). The server
// only ever stores and returns this ciphertext; it cannot unwrap it because
// it never possesses KW (see internal/keyschedule).
type WrappedRootKey struct {
	UserID      string
	Ciphertext  []byte // AES-256-GCM(KW, DRK)
	Nonce       []byte
	KDFVersion  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OpaqueLoginSession tracks server-side OPAQUE AKE state between
// login-start and login-finish. It is single-use and short-lived.
type OpaqueLoginSession struct {
	ID         string
	SubjectID  string
	Cohort     Cohort
	ServerAKE  []byte // serialized bytemare/opaque server state
	ExpiresAt  time.Time
}

// Client is an OIDC relying party registration.
type Client struct {
	ClientID            string
	Name                string
	Public              bool // public clients (SPA/native) must use PKCE, no secret
	SecretHash          string
	RedirectURIs        []string
	GrantTypes          []string // "authorization_code", "refresh_token", "client_credentials"
	Scopes              []string
	RequirePKCE         bool // default true; only S256 is accepted
	ZKDelivery          bool // whether this client expects a fragment-delivered ZK DRK
	ZKRequired          bool // absence of zk_pub at /authorize is an error
	AllowedZKOrigins    []string
	IDTokenLifetime     time.Duration // defaults to 300s when zero
	AccessTokenLifetime time.Duration // defaults to 600s when zero
	CreatedAt           time.Time
}

// PendingAuth is the server-side record of an in-progress authorization
// request, keyed by a server-generated request id, created at
// GET /authorize time and consumed once the user completes OPAQUE login.
type PendingAuth struct {
	ID                  string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	ZKPub               string // base64url(JSON JWK), validated at /authorize time
	ZKPubKID            string // base64url(SHA256(zk_pub)), binds the exact presentation
	Origin              string
	SubjectID           string // set once the user authenticates
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// AuthCode is a single-use authorization code minted after a PendingAuth is
// satisfied. ZKDRKHash binds the code to the exact JWE fragment the client
// will receive, per spec §4.5.
type AuthCode struct {
	Code          string
	ClientID      string
	SubjectID     string
	RedirectURI   string
	Scope         string
	Nonce         string
	CodeChallenge string // carried forward from PendingAuth; empty if the client didn't use PKCE
	ZKDRKHash     string // base64url(SHA256(compact JWE)), empty for admin-cohort codes
	Consumed      bool
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Session is a cohort-scoped server-side session backing a refresh token.
// RefreshTokenHash is SHA-256 of the opaque bearer value; the plaintext
// token is never persisted.
type Session struct {
	ID               string
	Cohort           Cohort
	SubjectID        string
	ClientID         string
	RefreshTokenHash string
	Revoked          bool
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// JWKSEntry is one signing key in the rotation set published at the JWKS
// endpoint. Exactly one entry is Active at a time; retired entries are kept
// until every token signed with them has expired.
type JWKSEntry struct {
	KID        string
	Alg        string // "EdDSA" or "RS256"
	PrivateJWK []byte // JSON-encoded JWK, kept only in the signer process
	PublicJWK  []byte
	Active     bool
	CreatedAt  time.Time
	RotatedAt  *time.Time
}

// OTPConfig is a user's TOTP second factor. Secret is encrypted at rest
// under the server KEK (never under the user's DRK — the server must be
// able to verify the code without the client present).
type OTPConfig struct {
	UserID        string
	EncSecret     []byte
	ConfirmedAt   *time.Time
	FailureCount  int
	LockedUntil   *time.Time
	LastUsedStep  int64 // replay guard: reject a step <= last accepted step
	CreatedAt     time.Time
}

// OTPBackupCode is a single-use recovery code, stored hashed.
type OTPBackupCode struct {
	UserID   string
	CodeHash string
	UsedAt   *time.Time
}
