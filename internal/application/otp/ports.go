// Package otp implements the TOTP second factor: setup with a provisional
// secret, confirm-on-first-valid-code, verify with replay/lockout guards,
// backup codes, and disable. The secret is encrypted at rest under a
// server-held KEK — never under the user's DRK, since the server must be
// able to check a code without the client present.
package otp

import (
	"context"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// Repo persists TOTP configuration and backup codes.
type Repo interface {
	Get(ctx context.Context, userID string) (domain.OTPConfig, error)
	Create(ctx context.Context, cfg domain.OTPConfig) error
	Confirm(ctx context.Context, userID string) error
	RecordFailure(ctx context.Context, userID string) (int, error)
	Lock(ctx context.Context, userID string, until time.Time) error
	ResetFailures(ctx context.Context, userID string, lastUsedStep int64) error
	Delete(ctx context.Context, userID string) error
	AddBackupCodes(ctx context.Context, userID string, codeHashes []string) error
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error)
}

// UserRepo is the slice of the user repository this package needs to build
// otpauth:// provisioning URIs (the account label).
type UserRepo interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
}
