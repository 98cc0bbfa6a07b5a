package adminauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/opaqueengine"
)

type fakeAdminRepo struct {
	byID    map[string]domain.AdminUser
	byEmail map[string]domain.AdminUser
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{byID: map[string]domain.AdminUser{}, byEmail: map[string]domain.AdminUser{}}
}

func (f *fakeAdminRepo) GetByEmail(_ context.Context, email string) (domain.AdminUser, error) {
	if a, ok := f.byEmail[email]; ok {
		return a, nil
	}
	return domain.AdminUser{}, domain.ErrUserNotFound()
}

func (f *fakeAdminRepo) GetByID(_ context.Context, id string) (domain.AdminUser, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return domain.AdminUser{}, domain.ErrUserNotFound()
}

func (f *fakeAdminRepo) Create(_ context.Context, a domain.AdminUser) (domain.AdminUser, error) {
	f.byID[a.ID] = a
	f.byEmail[a.Email] = a
	return a, nil
}

func (f *fakeAdminRepo) List(_ context.Context) ([]domain.AdminUser, error) {
	out := make([]domain.AdminUser, 0, len(f.byID))
	for _, a := range f.byID {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAdminRepo) CountByRole(_ context.Context, role domain.AdminRole) (int, error) {
	n := 0
	for _, a := range f.byID {
		if a.Role == string(role) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAdminRepo) SetRole(_ context.Context, id string, role domain.AdminRole) error {
	a, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	a.Role = string(role)
	f.byID[id] = a
	f.byEmail[a.Email] = a
	return nil
}

type fakeRecordRepo struct {
	records map[string]domain.OpaqueRecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[string]domain.OpaqueRecord{}}
}

func (f *fakeRecordRepo) Get(_ context.Context, subjectID string, cohort domain.Cohort) (domain.OpaqueRecord, error) {
	if r, ok := f.records[string(cohort)+":"+subjectID]; ok {
		return r, nil
	}
	return domain.OpaqueRecord{}, domain.ErrUserNotFound()
}

func (f *fakeRecordRepo) Upsert(_ context.Context, rec domain.OpaqueRecord) error {
	f.records[string(rec.Cohort)+":"+rec.SubjectID] = rec
	return nil
}

type fakeLoginSessions struct {
	sessions map[string]domain.OpaqueLoginSession
}

func newFakeLoginSessions() *fakeLoginSessions {
	return &fakeLoginSessions{sessions: map[string]domain.OpaqueLoginSession{}}
}

func (f *fakeLoginSessions) Create(_ context.Context, sess domain.OpaqueLoginSession, _ time.Duration) error {
	f.sessions[sess.ID] = sess
	return nil
}

func (f *fakeLoginSessions) Consume(_ context.Context, id string) (domain.OpaqueLoginSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return domain.OpaqueLoginSession{}, domain.ErrSessionNotFound()
	}
	delete(f.sessions, id)
	return sess, nil
}

type fakeSessionStore struct {
	byToken map[string]domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byToken: map[string]domain.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, sess domain.Session, _ time.Duration) (string, error) {
	token := sess.ID + "-rt"
	f.byToken[token] = sess
	return token, nil
}

func (f *fakeSessionStore) Rotate(_ context.Context, oldToken string, _ time.Duration) (string, domain.Session, error) {
	sess, ok := f.byToken[oldToken]
	if !ok {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	delete(f.byToken, oldToken)
	newToken := sess.ID + "-rotated"
	f.byToken[newToken] = sess
	return newToken, sess, nil
}

func (f *fakeSessionStore) Revoke(_ context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessionStore) RevokeAllForSubject(_ context.Context, cohort domain.Cohort, subjectID string) error {
	for tok, sess := range f.byToken {
		if sess.Cohort == cohort && sess.SubjectID == subjectID {
			delete(f.byToken, tok)
		}
	}
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, token string) (domain.Session, error) {
	sess, ok := f.byToken[token]
	if !ok {
		return domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	return sess, nil
}

func testEngine(t *testing.T) *opaqueengine.Engine {
	t.Helper()
	cfg, err := opaqueengine.GenerateServerKeyMaterial()
	require.NoError(t, err)
	eng, err := opaqueengine.New(cfg)
	require.NoError(t, err)
	return eng
}

func newTestService(t *testing.T) (*Service, *fakeAdminRepo) {
	admins := newFakeAdminRepo()
	svc := NewService(admins, newFakeRecordRepo(), newFakeLoginSessions(), newFakeSessionStore(), testEngine(t), Config{})
	return svc, admins
}

func TestSetRole_RejectsSelf(t *testing.T) {
	svc, admins := newTestService(t)
	_, _ = admins.Create(context.Background(), domain.AdminUser{ID: "a1", Email: "a1@example.com", Role: string(domain.AdminRoleWrite)})

	err := svc.SetRole(context.Background(), "a1", string(domain.AdminRoleWrite), "a1", string(domain.AdminRoleRead))
	require.Error(t, err)
	require.True(t, domain.Is(err, "cannot_affect_self"))
}

func TestSetRole_ProtectsLastWriteAdmin(t *testing.T) {
	svc, admins := newTestService(t)
	_, _ = admins.Create(context.Background(), domain.AdminUser{ID: "a1", Email: "a1@example.com", Role: string(domain.AdminRoleWrite)})
	_, _ = admins.Create(context.Background(), domain.AdminUser{ID: "a2", Email: "a2@example.com", Role: string(domain.AdminRoleWrite)})

	// Demoting a2 while a1 remains write-role is fine.
	err := svc.SetRole(context.Background(), "a1", string(domain.AdminRoleWrite), "a2", string(domain.AdminRoleRead))
	require.NoError(t, err)

	// Now a1 is the last write admin; demoting it must be rejected even when
	// the actor holds the write role.
	err = svc.SetRole(context.Background(), "a3", string(domain.AdminRoleWrite), "a1", string(domain.AdminRoleRead))
	require.Error(t, err)
	require.True(t, domain.Is(err, "last_admin_protected"))
}

func TestSetRole_RequiresWriteActor(t *testing.T) {
	svc, admins := newTestService(t)
	_, _ = admins.Create(context.Background(), domain.AdminUser{ID: "a1", Email: "a1@example.com", Role: string(domain.AdminRoleRead)})
	_, _ = admins.Create(context.Background(), domain.AdminUser{ID: "a2", Email: "a2@example.com", Role: string(domain.AdminRoleWrite)})

	err := svc.SetRole(context.Background(), "a1", string(domain.AdminRoleRead), "a2", string(domain.AdminRoleRead))
	require.Error(t, err)
	require.True(t, domain.Is(err, "forbidden"))
}

func TestAdminCohort_SessionsNeverMatchUserCohort(t *testing.T) {
	svc, admins := newTestService(t)
	_, _ = admins.Create(context.Background(), domain.AdminUser{ID: "a1", Email: "a1@example.com", Role: string(domain.AdminRoleWrite)})

	token, sess, err := svc.IssueSession(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, domain.CohortAdmin, sess.Cohort)
	require.NoError(t, svc.Logout(context.Background(), token))
}
