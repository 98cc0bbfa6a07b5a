package postgres

import (
	"context"
	"database/sql"

	"github.com/darkauth/server/internal/domain"
)

// OpaqueRecordRepo persists the OPAQUE server-side registration record for
// either cohort, keyed by (subject_id, cohort).
type OpaqueRecordRepo struct {
	db *sql.DB
}

func NewOpaqueRecordRepo(db *sql.DB) *OpaqueRecordRepo {
	return &OpaqueRecordRepo{db: db}
}

func (r *OpaqueRecordRepo) Get(ctx context.Context, subjectID string, cohort domain.Cohort) (domain.OpaqueRecord, error) {
	const q = `
SELECT subject_id, cohort, envelope, server_public_key, created_at, updated_at
FROM opaque_records
WHERE subject_id = $1 AND cohort = $2
LIMIT 1;
`
	var rec domain.OpaqueRecord
	var cohortStr string
	err := r.db.QueryRowContext(ctx, q, subjectID, string(cohort)).
		Scan(&rec.SubjectID, &cohortStr, &rec.Envelope, &rec.ServerPublicKey, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.OpaqueRecord{}, domain.ErrUserNotFound()
		}
		return domain.OpaqueRecord{}, domain.ErrDBUnavailable(err)
	}
	rec.Cohort = domain.Cohort(cohortStr)
	return rec, nil
}

func (r *OpaqueRecordRepo) Upsert(ctx context.Context, rec domain.OpaqueRecord) error {
	const q = `
INSERT INTO opaque_records (subject_id, cohort, envelope, server_public_key)
VALUES ($1,$2,$3,$4)
ON CONFLICT (subject_id, cohort) DO UPDATE
SET envelope = EXCLUDED.envelope,
    server_public_key = EXCLUDED.server_public_key,
    updated_at = NOW();
`
	_, err := r.db.ExecContext(ctx, q, rec.SubjectID, string(rec.Cohort), rec.Envelope, rec.ServerPublicKey)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
