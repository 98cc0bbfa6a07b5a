package redis

import (
	"context"
	"testing"
	"time"

	"github.com/darkauth/server/internal/domain"
)

func TestPendingAuthStore_Create_RedisNil(t *testing.T) {
	s := NewPendingAuthStore(nil)

	err := s.Create(context.Background(), domain.PendingAuth{ID: "req-1"}, time.Minute)
	if !domain.Is(err, "redis_unavailable") {
		t.Fatalf("expected redis_unavailable, got %v", err)
	}
}

func TestPendingAuthStore_Create_MissingID(t *testing.T) {
	s := NewPendingAuthStore(nil)

	err := s.Create(context.Background(), domain.PendingAuth{}, time.Minute)
	if !domain.Is(err, "missing_field") {
		t.Fatalf("expected missing_field, got %v", err)
	}
}

func TestPendingAuthStore_Get_RedisNil(t *testing.T) {
	s := NewPendingAuthStore(nil)

	_, err := s.Get(context.Background(), "req-1")
	if !domain.Is(err, "redis_unavailable") {
		t.Fatalf("expected redis_unavailable, got %v", err)
	}
}

func TestAuthCodeStore_Save_RedisNil(t *testing.T) {
	s := NewAuthCodeStore(nil)

	err := s.Save(context.Background(), domain.AuthCode{Code: "abc"}, time.Minute)
	if !domain.Is(err, "redis_unavailable") {
		t.Fatalf("expected redis_unavailable, got %v", err)
	}
}

func TestAuthCodeStore_Save_MissingCode(t *testing.T) {
	s := NewAuthCodeStore(nil)

	err := s.Save(context.Background(), domain.AuthCode{}, time.Minute)
	if !domain.Is(err, "missing_field") {
		t.Fatalf("expected missing_field, got %v", err)
	}
}

func TestAuthCodeStore_Consume_EmptyCode(t *testing.T) {
	s := NewAuthCodeStore(nil)

	_, err := s.Consume(context.Background(), "")
	if !domain.Is(err, "auth_code_not_found") {
		t.Fatalf("expected auth_code_not_found, got %v", err)
	}
}

func TestAuthCodeStore_Consume_RedisNil(t *testing.T) {
	s := NewAuthCodeStore(nil)

	_, err := s.Consume(context.Background(), "abc")
	if !domain.Is(err, "redis_unavailable") {
		t.Fatalf("expected redis_unavailable, got %v", err)
	}
}
