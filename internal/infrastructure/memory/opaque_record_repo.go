package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// OpaqueRecordRepo satisfies both auth.OpaqueRecordRepo and
// adminauth.OpaqueRecordRepo (identical method sets) via Go's structural
// interface typing — one in-memory implementation, two cohorts.
type OpaqueRecordRepo struct {
	mu      sync.RWMutex
	records map[string]domain.OpaqueRecord
}

func NewOpaqueRecordRepo() *OpaqueRecordRepo {
	return &OpaqueRecordRepo{records: make(map[string]domain.OpaqueRecord)}
}

func recordKey(subjectID string, cohort domain.Cohort) string {
	return string(cohort) + ":" + subjectID
}

func (r *OpaqueRecordRepo) Get(_ context.Context, subjectID string, cohort domain.Cohort) (domain.OpaqueRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[recordKey(subjectID, cohort)]
	if !ok {
		return domain.OpaqueRecord{}, domain.ErrUserNotFound()
	}
	return rec, nil
}

func (r *OpaqueRecordRepo) Upsert(_ context.Context, rec domain.OpaqueRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.records[recordKey(rec.SubjectID, rec.Cohort)] = rec
	return nil
}
