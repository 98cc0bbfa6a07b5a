package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything internal/bootstrap needs to wire the OPAQUE
// engine, JWKS signer, OIDC issuer, OTP gate, rate limiter, and the
// Postgres/Redis backends. Grounded on the teacher's config.Load shape:
// required-vs-defaulted env vars, a Postgres DSN sanity check, and
// APP_ENV/ENV aliasing — the fields themselves are DarkAuth's, not the
// teacher's JWT/OAuth/RabbitMQ set.
type Config struct {
	// App
	Env string // dev / staging / prod

	// HTTP
	HTTPAddr string

	// OPAQUE server identity (spec §4.1). Hex-encoded P-256 keypair + OPRF
	// seed; generated once via cmd/darkauthd bootstrap-admin and persisted
	// by the operator, never derived at runtime.
	OpaqueServerIdentity  string
	OpaqueServerSecretKey string
	OpaqueServerPublicKey string
	OpaqueOPRFSeed        string

	// Server-side KEK wrapping the OTP secret at rest (32 raw bytes, hex).
	OTPEncryptionKey string
	OTPIssuer        string

	// OIDC issuer + token lifetimes
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	JWKSRotateEvery time.Duration

	// Admin cohort bearer token (internal/infrastructure/security.JWTSigner)
	AdminJWTSecret string
	AdminTokenTTL  time.Duration

	// Infrastructure
	DBAddr        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// CORS / ZK origin allowlist for the authorize/finalize surface.
	AllowedOrigins []string

	// Debug toggles
	DBDebug bool
}

func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = getEnvFirst([]string{"APP_ENV", "ENV"}, "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.Issuer = getEnv("OIDC_ISSUER", "http://localhost:8080")

	cfg.OpaqueServerIdentity = strings.TrimSpace(os.Getenv("OPAQUE_SERVER_IDENTITY"))
	cfg.OpaqueServerSecretKey = strings.TrimSpace(os.Getenv("OPAQUE_SERVER_SECRET_KEY"))
	cfg.OpaqueServerPublicKey = strings.TrimSpace(os.Getenv("OPAQUE_SERVER_PUBLIC_KEY"))
	cfg.OpaqueOPRFSeed = strings.TrimSpace(os.Getenv("OPAQUE_OPRF_SEED"))
	if cfg.Env != "dev" {
		if cfg.OpaqueServerSecretKey == "" || cfg.OpaqueOPRFSeed == "" {
			return nil, fmt.Errorf("missing required env vars: OPAQUE_SERVER_SECRET_KEY, OPAQUE_OPRF_SEED (run cmd/darkauthd bootstrap-admin to mint them)")
		}
	}

	cfg.OTPEncryptionKey = strings.TrimSpace(os.Getenv("OTP_ENCRYPTION_KEY"))
	if cfg.Env != "dev" && cfg.OTPEncryptionKey == "" {
		return nil, fmt.Errorf("missing required env var: OTP_ENCRYPTION_KEY")
	}
	cfg.OTPIssuer = getEnv("OTP_ISSUER", "DarkAuth")

	cfg.AdminJWTSecret = strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET"))
	if cfg.AdminJWTSecret == "" {
		if cfg.Env == "prod" {
			return nil, fmt.Errorf("missing required env var: ADMIN_JWT_SECRET")
		}
		cfg.AdminJWTSecret = "dev-admin-secret"
	}

	var err error
	cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWKSRotateEvery, err = getDuration("JWKS_ROTATE_EVERY", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.AdminTokenTTL, err = getDuration("ADMIN_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.DBAddr = strings.TrimSpace(os.Getenv("DB_ADDR"))
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if err := validatePostgresDSN(cfg.DBAddr); err != nil {
		return nil, fmt.Errorf("invalid DB_ADDR: %w", err)
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	cfg.RedisDB, err = getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.DBDebug = parseBool(getEnv("DB_DEBUG", "false"))
	cfg.AllowedOrigins = parseStringList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFirst(keys []string, def string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("scheme must be postgres/postgresql, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("missing database name in path, expected /<db>")
	}
	return nil
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
