package memory

import (
	"context"
	"sync"
	"time"

	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
)

// SessionStore is a cohort-scoped, single-use-rotation refresh-token store
// satisfying both auth.SessionStore and adminauth.SessionStore. Grounded on
// the teacher's token-to-entry map + per-subject token-set shape, extended
// with domain.Session and an atomic (mutex-guarded) rotate so a reused
// refresh token can never mint two live successors (property P3).
type SessionStore struct {
	mu           sync.Mutex
	tokenToEntry map[string]domain.Session
	subjectIndex map[string]map[string]struct{} // cohort|subjectID -> set(token)
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		tokenToEntry: make(map[string]domain.Session),
		subjectIndex: make(map[string]map[string]struct{}),
	}
}

func subjectKey(cohort domain.Cohort, subjectID string) string {
	return string(cohort) + ":" + subjectID
}

func (s *SessionStore) Create(_ context.Context, sess domain.Session, ttl time.Duration) (string, error) {
	token, err := cryptoutil.NewOpaqueToken(32)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess.ExpiresAt = time.Now().Add(ttl)
	s.tokenToEntry[token] = sess

	k := subjectKey(sess.Cohort, sess.SubjectID)
	if s.subjectIndex[k] == nil {
		s.subjectIndex[k] = make(map[string]struct{})
	}
	s.subjectIndex[k][token] = struct{}{}

	return token, nil
}

func (s *SessionStore) Get(_ context.Context, token string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.tokenToEntry[token]
	if !ok || sess.Revoked {
		return domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	if time.Now().After(sess.ExpiresAt) {
		s.revokeLocked(token)
		return domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	return sess, nil
}

// Rotate atomically invalidates oldRefreshToken and mints a new token for
// the same session. A concurrent double-rotate sees the second caller fail
// with refresh_token_invalid, since the first call already deleted the
// token entry under the same mutex.
func (s *SessionStore) Rotate(_ context.Context, oldRefreshToken string, ttl time.Duration) (string, domain.Session, error) {
	newToken, err := cryptoutil.NewOpaqueToken(32)
	if err != nil {
		return "", domain.Session{}, domain.ErrRandomFailed(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.tokenToEntry[oldRefreshToken]
	if !ok || sess.Revoked {
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}
	if time.Now().After(sess.ExpiresAt) {
		s.revokeLocked(oldRefreshToken)
		return "", domain.Session{}, domain.ErrRefreshTokenInvalid()
	}

	s.revokeLocked(oldRefreshToken)

	sess.ExpiresAt = time.Now().Add(ttl)
	s.tokenToEntry[newToken] = sess
	k := subjectKey(sess.Cohort, sess.SubjectID)
	if s.subjectIndex[k] == nil {
		s.subjectIndex[k] = make(map[string]struct{})
	}
	s.subjectIndex[k][newToken] = struct{}{}

	return newToken, sess, nil
}

func (s *SessionStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeLocked(token)
	return nil
}

func (s *SessionStore) revokeLocked(token string) {
	sess, ok := s.tokenToEntry[token]
	if !ok {
		return
	}
	delete(s.tokenToEntry, token)
	k := subjectKey(sess.Cohort, sess.SubjectID)
	if set := s.subjectIndex[k]; set != nil {
		delete(set, token)
		if len(set) == 0 {
			delete(s.subjectIndex, k)
		}
	}
}

func (s *SessionStore) RevokeAllForSubject(_ context.Context, cohort domain.Cohort, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := subjectKey(cohort, subjectID)
	for tok := range s.subjectIndex[k] {
		delete(s.tokenToEntry, tok)
	}
	delete(s.subjectIndex, k)
	return nil
}
