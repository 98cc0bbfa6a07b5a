package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// JWKSRepo backs internal/jwks.Store.
type JWKSRepo struct {
	db *sql.DB
}

func NewJWKSRepo(db *sql.DB) *JWKSRepo {
	return &JWKSRepo{db: db}
}

func (r *JWKSRepo) Insert(ctx context.Context, entry domain.JWKSEntry) error {
	const q = `
INSERT INTO jwks_entries (kid, alg, private_jwk, public_jwk, active)
VALUES ($1,$2,$3,$4,$5);
`
	_, err := r.db.ExecContext(ctx, q, entry.KID, entry.Alg, entry.PrivateJWK, entry.PublicJWK, entry.Active)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// ListActive returns every signing key the process still needs in memory:
// the one active key plus every retired-but-not-yet-purged key (still
// needed to verify tokens signed before their rotation). Despite the name
// this is not filtered to Active=true — jwks.Manager.Bootstrap sorts active
// vs. retired itself from the Active column.
func (r *JWKSRepo) ListActive(ctx context.Context) ([]domain.JWKSEntry, error) {
	const q = `
SELECT kid, alg, private_jwk, public_jwk, active, created_at, rotated_at
FROM jwks_entries
ORDER BY created_at ASC;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []domain.JWKSEntry
	for rows.Next() {
		var e domain.JWKSEntry
		var rotatedAt sql.NullTime
		if err := rows.Scan(&e.KID, &e.Alg, &e.PrivateJWK, &e.PublicJWK, &e.Active, &e.CreatedAt, &rotatedAt); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		if rotatedAt.Valid {
			e.RotatedAt = &rotatedAt.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *JWKSRepo) SetActive(ctx context.Context, kid string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE jwks_entries SET active = FALSE WHERE active = TRUE;`); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE jwks_entries SET active = TRUE WHERE kid = $1;`, kid); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *JWKSRepo) Retire(ctx context.Context, kid string, rotatedAt time.Time) error {
	const q = `UPDATE jwks_entries SET rotated_at = $2 WHERE kid = $1;`
	_, err := r.db.ExecContext(ctx, q, kid, rotatedAt)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
