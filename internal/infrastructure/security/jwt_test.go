package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darkauth/server/internal/domain"
)

func TestJWTSigner_SignAndVerify_Success(t *testing.T) {
	t.Parallel()

	s := NewJWTSigner("secret", "darkauth")
	tok, err := s.SignAdminAccessToken("a1", "write", 2*time.Minute)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected non-empty token")
	}

	claims, err := s.VerifyAdminAccessToken(tok)
	if err != nil {
		t.Fatalf("verify err: %v", err)
	}
	if claims.AdminID != "a1" || claims.Role != "write" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Exp.IsZero() {
		t.Fatalf("expected exp to be set")
	}
}

func TestJWTSigner_Verify_Expired_ReturnsTokenExpired(t *testing.T) {
	t.Parallel()

	s := NewJWTSigner("secret", "darkauth")
	tok, err := s.SignAdminAccessToken("a1", "write", -1*time.Second)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	_, verr := s.VerifyAdminAccessToken(tok)
	if verr == nil {
		t.Fatalf("expected error, got nil")
	}
	if !domain.Is(verr, "token_expired") {
		t.Fatalf("expected token_expired, got %v", verr)
	}
}

func TestJWTSigner_Verify_WrongSecret_ReturnsTokenInvalid(t *testing.T) {
	t.Parallel()

	s1 := NewJWTSigner("secret1", "darkauth")
	s2 := NewJWTSigner("secret2", "darkauth")

	tok, err := s1.SignAdminAccessToken("a1", "write", time.Minute)
	if err != nil {
		t.Fatalf("sign err: %v", err)
	}

	_, verr := s2.VerifyAdminAccessToken(tok)
	if verr == nil {
		t.Fatalf("expected error, got nil")
	}
	if !domain.Is(verr, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", verr)
	}
}

func TestJWTSigner_Verify_AlgConfusion_Rejected(t *testing.T) {
	t.Parallel()

	claims := jwt.MapClaims{
		"aid":  "a1",
		"role": "write",
		"iss":  "darkauth",
		"sub":  "a1",
		"exp":  time.Now().Add(time.Minute).Unix(),
		"iat":  time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims)

	unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected signing err: %v", err)
	}

	s := NewJWTSigner("secret", "darkauth")
	_, verr := s.VerifyAdminAccessToken(unsigned)
	if verr == nil {
		t.Fatalf("expected error, got nil")
	}
	if !domain.Is(verr, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", verr)
	}
}

func TestJWTSigner_Verify_Garbage_ReturnsTokenInvalid(t *testing.T) {
	t.Parallel()

	s := NewJWTSigner("secret", "darkauth")

	_, err := s.VerifyAdminAccessToken("not.a.jwt")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !domain.Is(err, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", err)
	}
}
