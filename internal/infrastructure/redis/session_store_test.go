package redis

import (
	"context"
	"testing"
	"time"

	"github.com/darkauth/server/internal/domain"
)

func TestSessionStore_Create_RedisNil(t *testing.T) {
	s := NewSessionStore(nil)

	_, err := s.Create(context.Background(), domain.Session{Cohort: domain.CohortUser, SubjectID: "u1"}, time.Hour)
	if err == nil {
		t.Fatalf("expected error when redis not configured")
	}
}

func TestSessionStore_Get_EmptyToken(t *testing.T) {
	s := NewSessionStore(nil)

	_, err := s.Get(context.Background(), "")
	if !domain.Is(err, "refresh_token_invalid") {
		t.Fatalf("expected refresh_token_invalid, got %v", err)
	}
}

func TestSessionStore_Rotate_EmptyToken(t *testing.T) {
	s := NewSessionStore(nil)

	_, _, err := s.Rotate(context.Background(), "", time.Hour)
	if !domain.Is(err, "refresh_token_invalid") {
		t.Fatalf("expected refresh_token_invalid, got %v", err)
	}
}

func TestSessionStore_Revoke_EmptyToken_NoError(t *testing.T) {
	s := NewSessionStore(nil)

	if err := s.Revoke(context.Background(), ""); err != nil {
		t.Fatalf("expected nil error for empty token, got %v", err)
	}
}

func TestSessionStore_IndexKey_ScopesByCohort(t *testing.T) {
	s := NewSessionStore(nil)

	userKey := s.indexKey(domain.CohortUser, "subj-1")
	adminKey := s.indexKey(domain.CohortAdmin, "subj-1")
	if userKey == adminKey {
		t.Fatalf("expected cohort-scoped index keys to differ")
	}
}
