package domain

import (
	"errors"
	"fmt"
)

// ErrKind maps domain errors to HTTP status codes at exactly one boundary
// (internal/transport/http/response.WriteError).
type ErrKind string

const (
	KindValidation      ErrKind = "validation"      // 400
	KindUnauthenticated ErrKind = "unauthenticated" // 401
	KindForbidden       ErrKind = "forbidden"        // 403
	KindNotFound        ErrKind = "not_found"        // 404
	KindConflict        ErrKind = "conflict"         // 409
	KindRateLimited     ErrKind = "rate_limited"     // 429
	KindInfrastructure  ErrKind = "infrastructure"   // 503
	KindInternal        ErrKind = "internal"         // 500
)

// Error is a structured domain error.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ---- validation (400) ----

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{"field": field})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{"field": field, "reason": reason})
}

func ErrUnsupportedGrantType(grant string) *Error {
	return WithMeta(New(KindValidation, "unsupported_grant_type", "grant type not supported"), map[string]string{"grant_type": grant})
}

func ErrInvalidRequest(reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_request", "invalid request"), map[string]string{"reason": reason})
}

// ErrInvalidClient covers an unknown client_id, a redirect_uri that doesn't
// exactly match a registered one, or a confidential client presenting a bad
// secret — OIDC Core's invalid_client error code.
func ErrInvalidClient(reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_client", "invalid client"), map[string]string{"reason": reason})
}

// ErrInvalidGrant covers a bad/expired/already-consumed authorization code,
// a PKCE verifier mismatch, or a refresh token the session store rejects.
func ErrInvalidGrant(reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_grant", "invalid grant"), map[string]string{"reason": reason})
}

func ErrAccessDenied(reason string) *Error {
	return WithMeta(New(KindForbidden, "access_denied", "access denied"), map[string]string{"reason": reason})
}

// ---- unauthenticated (401) ----

// ErrInvalidCredentials is used for OPAQUE login-finish failure. Never
// distinguish "unknown user" from "wrong password" in the message, to avoid
// user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindUnauthenticated, "invalid_credentials", "invalid credentials")
}

func ErrSessionMissing() *Error {
	return New(KindUnauthenticated, "session_missing", "no session provided")
}

func ErrSessionInvalid() *Error {
	return New(KindUnauthenticated, "session_invalid", "invalid or expired session")
}

func ErrRefreshTokenInvalid() *Error {
	return New(KindUnauthenticated, "refresh_token_invalid", "invalid refresh token")
}

func ErrRefreshTokenReused() *Error {
	return New(KindUnauthenticated, "refresh_token_reused", "refresh token reuse detected, session revoked")
}

func ErrTokenExpired() *Error {
	return New(KindUnauthenticated, "token_expired", "token expired")
}

func ErrTokenInvalid() *Error {
	return New(KindUnauthenticated, "token_invalid", "invalid token")
}

func ErrOTPRequired() *Error {
	return New(KindUnauthenticated, "otp_required", "one-time password required")
}

func ErrOTPInvalid() *Error {
	return New(KindUnauthenticated, "otp_invalid", "invalid one-time password")
}

func ErrOPAQUEProtocolViolation(cause error) *Error {
	return Wrap(KindUnauthenticated, "opaque_protocol_violation", "invalid OPAQUE protocol message", cause)
}

// ---- forbidden (403) ----

func ErrForbidden() *Error {
	return New(KindForbidden, "forbidden", "forbidden")
}

func ErrAccountLocked() *Error {
	return New(KindForbidden, "account_locked", "account locked after repeated OTP failures")
}

func ErrCannotAffectSelf() *Error {
	return New(KindForbidden, "cannot_affect_self", "cannot perform this action on self")
}

func ErrLastAdminProtected() *Error {
	return New(KindForbidden, "last_admin_protected", "cannot remove or demote the last admin")
}

// ---- not found (404) ----

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

func ErrClientNotFound() *Error {
	return New(KindNotFound, "client_not_found", "client not registered")
}

func ErrSessionNotFound() *Error {
	return New(KindNotFound, "session_not_found", "session not found")
}

func ErrAuthCodeNotFound() *Error {
	return New(KindNotFound, "auth_code_not_found", "authorization code not found")
}

// ---- conflict (409) ----

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "email already registered")
}

func ErrAuthCodeAlreadyConsumed() *Error {
	return New(KindConflict, "auth_code_already_consumed", "authorization code already consumed")
}

func ErrPendingAuthStateMismatch() *Error {
	return New(KindConflict, "pending_auth_state_mismatch", "pending authorization state mismatch")
}

func ErrOTPAlreadyConfigured() *Error {
	return New(KindConflict, "otp_already_configured", "one-time password already configured")
}

// ---- rate limit (429) ----

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{"scope": scope})
}

// ---- infrastructure / internal (5xx) ----

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrCryptoFailed(cause error) *Error {
	return Wrap(KindInternal, "crypto_failed", "cryptographic operation failed", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}

func ErrNotImplemented() *Error {
	return New(KindInternal, "not_implemented", "not implemented")
}
