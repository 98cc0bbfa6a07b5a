package postgres

import (
	"context"
	"database/sql"

	"github.com/darkauth/server/internal/domain"
)

type WrappedRootKeyRepo struct {
	db *sql.DB
}

func NewWrappedRootKeyRepo(db *sql.DB) *WrappedRootKeyRepo {
	return &WrappedRootKeyRepo{db: db}
}

func (r *WrappedRootKeyRepo) Get(ctx context.Context, userID string) (domain.WrappedRootKey, error) {
	const q = `
SELECT user_id, ciphertext, nonce, kdf_version, created_at, updated_at
FROM wrapped_root_keys
WHERE user_id = $1
LIMIT 1;
`
	var wrk domain.WrappedRootKey
	err := r.db.QueryRowContext(ctx, q, userID).
		Scan(&wrk.UserID, &wrk.Ciphertext, &wrk.Nonce, &wrk.KDFVersion, &wrk.CreatedAt, &wrk.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.WrappedRootKey{}, domain.ErrUserNotFound()
		}
		return domain.WrappedRootKey{}, domain.ErrDBUnavailable(err)
	}
	return wrk, nil
}

func (r *WrappedRootKeyRepo) Upsert(ctx context.Context, wrk domain.WrappedRootKey) error {
	const q = `
INSERT INTO wrapped_root_keys (user_id, ciphertext, nonce, kdf_version)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id) DO UPDATE
SET ciphertext = EXCLUDED.ciphertext,
    nonce = EXCLUDED.nonce,
    kdf_version = EXCLUDED.kdf_version,
    updated_at = NOW();
`
	_, err := r.db.ExecContext(ctx, q, wrk.UserID, wrk.Ciphertext, wrk.Nonce, wrk.KDFVersion)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
