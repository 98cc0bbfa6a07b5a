package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// OTPRepo persists TOTP configuration and backup codes for internal/application/otp.
type OTPRepo struct {
	db *sql.DB
}

func NewOTPRepo(db *sql.DB) *OTPRepo {
	return &OTPRepo{db: db}
}

func (r *OTPRepo) Get(ctx context.Context, userID string) (domain.OTPConfig, error) {
	const q = `
SELECT user_id, enc_secret, confirmed_at, failure_count, locked_until, last_used_step, created_at
FROM otp_configs
WHERE user_id = $1
LIMIT 1;
`
	var cfg domain.OTPConfig
	var confirmedAt, lockedUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, q, userID).
		Scan(&cfg.UserID, &cfg.EncSecret, &confirmedAt, &cfg.FailureCount, &lockedUntil, &cfg.LastUsedStep, &cfg.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.OTPConfig{}, domain.ErrUserNotFound()
		}
		return domain.OTPConfig{}, domain.ErrDBUnavailable(err)
	}
	if confirmedAt.Valid {
		cfg.ConfirmedAt = &confirmedAt.Time
	}
	if lockedUntil.Valid {
		cfg.LockedUntil = &lockedUntil.Time
	}
	return cfg, nil
}

func (r *OTPRepo) Create(ctx context.Context, cfg domain.OTPConfig) error {
	const q = `
INSERT INTO otp_configs (user_id, enc_secret)
VALUES ($1,$2)
ON CONFLICT (user_id) DO UPDATE SET enc_secret = EXCLUDED.enc_secret, confirmed_at = NULL, failure_count = 0, locked_until = NULL, last_used_step = 0;
`
	_, err := r.db.ExecContext(ctx, q, cfg.UserID, cfg.EncSecret)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *OTPRepo) Confirm(ctx context.Context, userID string) error {
	const q = `UPDATE otp_configs SET confirmed_at = NOW() WHERE user_id = $1;`
	res, err := r.db.ExecContext(ctx, q, userID)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// RecordFailure increments the failure counter and returns the new count so
// the caller (internal/application/otp) can decide whether to lock the
// account.
func (r *OTPRepo) RecordFailure(ctx context.Context, userID string) (int, error) {
	const q = `UPDATE otp_configs SET failure_count = failure_count + 1 WHERE user_id = $1 RETURNING failure_count;`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

func (r *OTPRepo) Lock(ctx context.Context, userID string, until time.Time) error {
	const q = `UPDATE otp_configs SET locked_until = $2 WHERE user_id = $1;`
	_, err := r.db.ExecContext(ctx, q, userID, until)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *OTPRepo) ResetFailures(ctx context.Context, userID string, lastUsedStep int64) error {
	const q = `UPDATE otp_configs SET failure_count = 0, locked_until = NULL, last_used_step = $2 WHERE user_id = $1;`
	_, err := r.db.ExecContext(ctx, q, userID, lastUsedStep)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *OTPRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_configs WHERE user_id = $1;`, userID)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *OTPRepo) AddBackupCodes(ctx context.Context, userID string, codeHashes []string) error {
	const q = `INSERT INTO otp_backup_codes (user_id, code_hash) VALUES ($1,$2);`
	for _, hash := range codeHashes {
		if _, err := r.db.ExecContext(ctx, q, userID, hash); err != nil {
			return domain.ErrDBUnavailable(err)
		}
	}
	return nil
}

func (r *OTPRepo) ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error) {
	const q = `UPDATE otp_backup_codes SET used_at = NOW() WHERE user_id = $1 AND code_hash = $2 AND used_at IS NULL;`
	res, err := r.db.ExecContext(ctx, q, userID, codeHash)
	if err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
