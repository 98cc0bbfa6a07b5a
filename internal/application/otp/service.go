package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
)

const (
	issuer          = "DarkAuth"
	maxFailures     = 5
	lockoutDuration = 15 * time.Minute
	backupCodeCount = 10
)

type Service struct {
	repo  Repo
	users UserRepo
	box   *cryptoutil.SecretBox
}

func NewService(repo Repo, users UserRepo, box *cryptoutil.SecretBox) *Service {
	return &Service{repo: repo, users: users, box: box}
}

// SetupResult carries the provisioning URI for the authenticator app. The
// secret is not confirmed (and cannot be used to pass Verify) until
// Confirm succeeds once.
type SetupResult struct {
	Secret          string
	ProvisioningURI string
}

// Setup generates a fresh TOTP secret for a user who has none configured,
// or who is re-enrolling after Disable. It overwrites any unconfirmed
// secret from a prior, abandoned Setup call.
func (s *Service) Setup(ctx context.Context, userID string) (SetupResult, error) {
	existing, err := s.repo.Get(ctx, userID)
	if err == nil && existing.ConfirmedAt != nil {
		return SetupResult{}, domain.ErrOTPAlreadyConfigured()
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return SetupResult{}, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return SetupResult{}, domain.ErrCryptoFailed(err)
	}

	sealed, err := s.box.Seal([]byte(key.Secret()))
	if err != nil {
		return SetupResult{}, err
	}

	if err := s.repo.Create(ctx, domain.OTPConfig{UserID: userID, EncSecret: sealed}); err != nil {
		return SetupResult{}, err
	}

	return SetupResult{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

// Confirm validates the first code from the authenticator app and marks
// the secret active. Until this succeeds, Verify always fails — an
// unconfirmed secret never gates a login.
func (s *Service) Confirm(ctx context.Context, userID, code string) error {
	cfg, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if cfg.ConfirmedAt != nil {
		return domain.ErrOTPAlreadyConfigured()
	}

	secret, err := s.box.Open(cfg.EncSecret)
	if err != nil {
		return err
	}
	if !totp.Validate(code, string(secret)) {
		return domain.ErrOTPInvalid()
	}

	if err := s.repo.Confirm(ctx, userID); err != nil {
		return err
	}
	return nil
}

// Verify checks a login-time TOTP code against the confirmed secret,
// enforcing lockout after repeated failures and rejecting step replay
// (spec's OTP gate §4.3): a code for a 30s window already accepted once
// cannot be accepted again.
func (s *Service) Verify(ctx context.Context, userID, code string) error {
	cfg, err := s.repo.Get(ctx, userID)
	if err != nil {
		return domain.ErrOTPRequired()
	}
	if cfg.ConfirmedAt == nil {
		return domain.ErrOTPRequired()
	}
	if cfg.LockedUntil != nil && time.Now().Before(*cfg.LockedUntil) {
		return domain.ErrAccountLocked()
	}

	secret, err := s.box.Open(cfg.EncSecret)
	if err != nil {
		return err
	}

	// Find the 30s step the code belongs to (current window ±1), so the
	// replay guard compares the code's own step, not the current one.
	now := time.Now()
	step := int64(-1)
	for _, skew := range []int64{-1, 0, 1} {
		t := now.Add(time.Duration(skew*30) * time.Second)
		want, gerr := totp.GenerateCode(string(secret), t)
		if gerr == nil && subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			step = t.Unix() / 30
			break
		}
	}
	if step < 0 {
		n, ferr := s.repo.RecordFailure(ctx, userID)
		if ferr == nil && n >= maxFailures {
			_ = s.repo.Lock(ctx, userID, time.Now().Add(lockoutDuration))
		}
		return domain.ErrOTPInvalid()
	}
	if step <= cfg.LastUsedStep {
		return domain.ErrOTPInvalid()
	}

	return s.repo.ResetFailures(ctx, userID, step)
}

// Disable removes a user's TOTP configuration entirely, requiring Setup +
// Confirm to re-enroll.
func (s *Service) Disable(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}

// GenerateBackupCodes mints a fresh set of single-use recovery codes,
// returning the plaintext values exactly once; only their hashes persist.
func (s *Service) GenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	hashes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, cryptoutil.HashToken(code))
	}
	if err := s.repo.AddBackupCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// VerifyBackupCode consumes a single-use recovery code in place of a TOTP
// code. Each code works exactly once.
func (s *Service) VerifyBackupCode(ctx context.Context, userID, code string) error {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return domain.ErrOTPInvalid()
	}
	ok, err := s.repo.ConsumeBackupCode(ctx, userID, cryptoutil.HashToken(code))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOTPInvalid()
	}
	return nil
}

func randomBackupCode() (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	return fmt.Sprintf("%s-%s", enc[:8], enc[8:16]), nil
}
