package middleware

import (
	"context"

	"github.com/darkauth/server/internal/domain"
)

type ctxKey string

const (
	ctxSubjectID ctxKey = "subject_id"
	ctxCohort    ctxKey = "cohort"
	ctxRole      ctxKey = "admin_role"
)

// WithSubject stamps the authenticated subject's id and cohort onto the
// request context. role is only meaningful for domain.CohortAdmin; the
// user cohort has no role hierarchy.
func WithSubject(ctx context.Context, subjectID string, cohort domain.Cohort, role string) context.Context {
	ctx = context.WithValue(ctx, ctxSubjectID, subjectID)
	ctx = context.WithValue(ctx, ctxCohort, cohort)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func SubjectIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxSubjectID).(string)
	return v, ok && v != ""
}

func CohortFromContext(ctx context.Context) (domain.Cohort, bool) {
	v, ok := ctx.Value(ctxCohort).(domain.Cohort)
	return v, ok && v != ""
}

func AdminRoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxRole).(string)
	return v, ok && v != ""
}
