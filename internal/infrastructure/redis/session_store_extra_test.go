package redis

import (
	"context"
	"testing"

	"github.com/darkauth/server/internal/domain"
)

func TestSessionStore_Revoke_Whitespace_IsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewSessionStore(nil)

	if err := s.Revoke(context.Background(), ""); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := s.Revoke(context.Background(), "   "); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestSessionStore_RevokeAllForSubject_RedisNil_ReturnsError(t *testing.T) {
	t.Parallel()

	s := NewSessionStore(nil)

	err := s.RevokeAllForSubject(context.Background(), domain.CohortUser, "subj-1")
	if !domain.Is(err, "redis_unavailable") {
		t.Fatalf("expected redis_unavailable, got %v", err)
	}
}
