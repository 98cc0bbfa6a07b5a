package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/opaqueengine"
)

// ---- in-memory fakes, grounded on the teacher's test_fakes_test.go pattern ----

type fakeUserRepo struct {
	byID    map[string]domain.User
	byEmail map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}, byEmail: map[string]domain.User{}}
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUserRepo) SetEmailVerified(_ context.Context, userID string) error {
	u := f.byID[userID]
	u.EmailVerified = true
	f.byID[userID] = u
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

type fakeWrappedRepo struct {
	keys map[string]domain.WrappedRootKey
}

func newFakeWrappedRepo() *fakeWrappedRepo {
	return &fakeWrappedRepo{keys: map[string]domain.WrappedRootKey{}}
}

func (f *fakeWrappedRepo) Get(_ context.Context, userID string) (domain.WrappedRootKey, error) {
	if k, ok := f.keys[userID]; ok {
		return k, nil
	}
	return domain.WrappedRootKey{}, domain.ErrUserNotFound()
}

func (f *fakeWrappedRepo) Upsert(_ context.Context, wrk domain.WrappedRootKey) error {
	f.keys[wrk.UserID] = wrk
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

func TestRefresh_SingleUse(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := NewService(newFakeUserRepo(), newFakeRecordRepo(), newFakeWrappedRepo(), newFakeLoginSessions(), sessions, testEngine(t), Config{})

	token, _, err := svc.IssueSession(context.Background(), "user-1", "client-1")
	require.NoError(t, err)

	newToken, _, err := svc.Refresh(context.Background(), token)
	require.NoError(t, err)
	require.NotEqual(t, token, newToken)

	// Reusing the old (now-rotated) token must fail: exactly one winner.
	_, _, err = svc.Refresh(context.Background(), token)
	require.Error(t, err)
}

func TestRegisterStart_RejectsDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	_, _ = users.Create(context.Background(), domain.User{ID: "u1", Email: "a@example.com"})

	svc := NewService(users, newFakeRecordRepo(), newFakeWrappedRepo(), newFakeLoginSessions(), newFakeSessionStore(), testEngine(t), Config{})

	_, err := svc.RegisterStart(context.Background(), "a@example.com", []byte("req"))
	require.Error(t, err)
	require.True(t, domain.Is(err, "email_already_exists"))
}

func TestLogout_RevokesSession(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := NewService(newFakeUserRepo(), newFakeRecordRepo(), newFakeWrappedRepo(), newFakeLoginSessions(), sessions, testEngine(t), Config{})

	token, _, err := svc.IssueSession(context.Background(), "user-1", "client-1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))
	_, err = sessions.Get(context.Background(), token)
	require.Error(t, err)
}
