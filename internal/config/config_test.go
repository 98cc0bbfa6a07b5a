package config

import (
	"os"
	"testing"
	"time"
)

// helper: set env and auto-restore after test
func setEnv(t *testing.T, key, value string) {
	t.Helper()

	old, existed := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("Setenv %s: %v", key, err)
	}

	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()

	old, existed := os.LookupEnv(key)
	_ = os.Unsetenv(key)

	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, old)
		}
	})
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	setEnv(t, "APP_ENV", "dev")
	setEnv(t, "DB_ADDR", "postgres://localhost:5432/db")
}

func TestLoad_MissingDBAddr_ReturnsError(t *testing.T) {
	unsetEnv(t, "DB_ADDR")
	setEnv(t, "APP_ENV", "dev")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err.Error() != "missing required env var: DB_ADDR" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidDBAddrScheme_ReturnsError(t *testing.T) {
	setEnv(t, "APP_ENV", "dev")
	setEnv(t, "DB_ADDR", "mysql://localhost:5432/db")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestLoad_Prod_MissingOpaqueKeyMaterial_ReturnsError(t *testing.T) {
	setEnv(t, "APP_ENV", "prod")
	setEnv(t, "DB_ADDR", "postgres://localhost:5432/db")
	unsetEnv(t, "OPAQUE_SERVER_SECRET_KEY")
	unsetEnv(t, "OPAQUE_OPRF_SEED")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestLoad_Defaults_WhenOptionalUnset(t *testing.T) {
	setRequiredEnv(t)

	unsetEnv(t, "ENV")
	unsetEnv(t, "HTTP_ADDR")
	unsetEnv(t, "ACCESS_TOKEN_TTL")
	unsetEnv(t, "REFRESH_TOKEN_TTL")
	unsetEnv(t, "HTTP_READ_TIMEOUT")
	unsetEnv(t, "HTTP_WRITE_TIMEOUT")
	unsetEnv(t, "HTTP_IDLE_TIMEOUT")
	unsetEnv(t, "OIDC_ISSUER")
	unsetEnv(t, "OTP_ISSUER")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if cfg.Env != "dev" {
		t.Fatalf("Env default mismatch: got %q want %q", cfg.Env, "dev")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default mismatch: got %q want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("AccessTokenTTL default mismatch: got %v want %v", cfg.AccessTokenTTL, 5*time.Minute)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("RefreshTokenTTL default mismatch: got %v want %v", cfg.RefreshTokenTTL, 30*24*time.Hour)
	}
	if cfg.HTTPReadTimeout != 10*time.Second {
		t.Fatalf("HTTPReadTimeout default mismatch: got %v want %v", cfg.HTTPReadTimeout, 10*time.Second)
	}
	if cfg.HTTPWriteTimeout != 30*time.Second {
		t.Fatalf("HTTPWriteTimeout default mismatch: got %v want %v", cfg.HTTPWriteTimeout, 30*time.Second)
	}
	if cfg.HTTPIdleTimeout != time.Minute {
		t.Fatalf("HTTPIdleTimeout default mismatch: got %v want %v", cfg.HTTPIdleTimeout, time.Minute)
	}
	if cfg.OTPIssuer != "DarkAuth" {
		t.Fatalf("OTPIssuer default mismatch: got %q", cfg.OTPIssuer)
	}
}

func TestLoad_OverridesOptionalValues_FromEnv(t *testing.T) {
	setRequiredEnv(t)

	setEnv(t, "HTTP_ADDR", ":9999")
	setEnv(t, "ACCESS_TOKEN_TTL", "1h")
	setEnv(t, "REFRESH_TOKEN_TTL", "48h")
	setEnv(t, "HTTP_READ_TIMEOUT", "2s")
	setEnv(t, "HTTP_WRITE_TIMEOUT", "3s")
	setEnv(t, "HTTP_IDLE_TIMEOUT", "4s")
	setEnv(t, "OIDC_ISSUER", "https://auth.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("HTTPAddr override mismatch: got %q want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Fatalf("AccessTokenTTL override mismatch: got %v want %v", cfg.AccessTokenTTL, time.Hour)
	}
	if cfg.RefreshTokenTTL != 48*time.Hour {
		t.Fatalf("RefreshTokenTTL override mismatch: got %v want %v", cfg.RefreshTokenTTL, 48*time.Hour)
	}
	if cfg.HTTPReadTimeout != 2*time.Second {
		t.Fatalf("HTTPReadTimeout override mismatch: got %v want %v", cfg.HTTPReadTimeout, 2*time.Second)
	}
	if cfg.HTTPWriteTimeout != 3*time.Second {
		t.Fatalf("HTTPWriteTimeout override mismatch: got %v want %v", cfg.HTTPWriteTimeout, 3*time.Second)
	}
	if cfg.HTTPIdleTimeout != 4*time.Second {
		t.Fatalf("HTTPIdleTimeout override mismatch: got %v want %v", cfg.HTTPIdleTimeout, 4*time.Second)
	}
	if cfg.Issuer != "https://auth.example.com" {
		t.Fatalf("Issuer override mismatch: got %q", cfg.Issuer)
	}
}

func TestLoad_InvalidDuration_ReturnsError(t *testing.T) {
	setRequiredEnv(t)

	setEnv(t, "ACCESS_TOKEN_TTL", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	wantPrefix := `invalid duration for ACCESS_TOKEN_TTL: "not-a-duration":`
	if len(err.Error()) < len(wantPrefix) || err.Error()[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("unexpected error: %v", err)
	}
}
