package bootstrap

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/darkauth/server/internal/application/adminauth"
	"github.com/darkauth/server/internal/application/auth"
	"github.com/darkauth/server/internal/application/oidc"
	"github.com/darkauth/server/internal/application/otp"
	"github.com/darkauth/server/internal/config"
	"github.com/darkauth/server/internal/cryptoutil"
	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/infrastructure/db/postgres"
	"github.com/darkauth/server/internal/infrastructure/memory"
	"github.com/darkauth/server/internal/infrastructure/redis"
	"github.com/darkauth/server/internal/infrastructure/security"
	"github.com/darkauth/server/internal/jwks"
	"github.com/darkauth/server/internal/logger"
	"github.com/darkauth/server/internal/opaqueengine"
	"github.com/darkauth/server/internal/ratelimit"
	http_handlers "github.com/darkauth/server/internal/transport/http/handlers"
	"github.com/darkauth/server/internal/transport/http/middleware"
	"github.com/darkauth/server/internal/transport/http/response"
	"github.com/darkauth/server/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing.
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (DBCloser, error)

	NewRedis func(addr, password string, db int) RedisClient

	NewRouter func(router.Deps) (http.Handler, error)
}

type DBCloser interface {
	Close() error
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return nil, nil, err
	}

	cleanupFns := []func(){
		func() { _ = db.Close() },
	}

	sqlDB, ok := db.(*sql.DB)
	if !ok {
		runCleanup(cleanupFns)
		return nil, nil, errors.New("bootstrap: NewDB did not return *sql.DB")
	}

	// Postgres-backed repos: durable records that must survive a restart.
	userRepo := postgres.NewUserRepo(sqlDB)
	adminRepo := postgres.NewAdminRepo(sqlDB)
	clientRepo := postgres.NewClientRepo(sqlDB)
	opaqueRecords := postgres.NewOpaqueRecordRepo(sqlDB)
	wrappedKeys := postgres.NewWrappedRootKeyRepo(sqlDB)
	otpRepo := postgres.NewOTPRepo(sqlDB)
	jwksRepo := postgres.NewJWKSRepo(sqlDB)

	// redis (best-effort; session/pending-auth/rate-limit state degrades to
	// in-process memory stores when Redis is unavailable, matching the
	// teacher's fail-open posture for cache infrastructure)
	var redisCli RedisClient
	if deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := c.Ping(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; falling back to in-memory session/rate-limit stores")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	var userSessions auth.SessionStore
	var adminSessions adminauth.SessionStore
	var oidcSessions oidc.SessionStore
	var pendingAuth oidc.PendingAuthRepo
	var authCodes oidc.AuthCodeRepo
	var limiter ratelimit.Limiter

	if redisCli != nil {
		rc := redisCli.(*redis.Client)
		sharedSessions := redis.NewSessionStore(rc)
		userSessions = sharedSessions
		adminSessions = sharedSessions
		oidcSessions = sharedSessions
		pendingAuth = redis.NewPendingAuthStore(rc)
		authCodes = redis.NewAuthCodeStore(rc)
		limiter = ratelimit.NewRedisLimiter(redis.NewFixedWindowLimiter(rc))
	} else {
		sharedSessions := memory.NewSessionStore()
		userSessions = sharedSessions
		adminSessions = sharedSessions
		oidcSessions = sharedSessions
		pendingAuth = memory.NewPendingAuthStore()
		authCodes = memory.NewAuthCodeStore()
		limiter = ratelimit.NewMemoryLimiter()
	}

	loginSessions := memory.NewLoginSessionStore()
	encPubJWKs := memory.NewEncPublicJWKStore()

	// 1) OPAQUE engine (shared by both cohorts)
	engine, err := newOpaqueEngine(cfg)
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 2) JWKS manager (Ed25519 signing keys, Postgres-backed, rotated on a
	// timer) + admin cohort HS256 signer
	keys := jwks.New(jwksRepo)
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := keys.Bootstrap(bootCtx); err != nil {
		bootCancel()
		runCleanup(cleanupFns)
		return nil, nil, fmt.Errorf("bootstrap: jwks: %w", err)
	}
	bootCancel()
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	cleanupFns = append(cleanupFns, sweepCancel)
	go keys.RotateSweep(sweepCtx, cfg.JWKSRotateEvery)

	adminSigner := security.NewJWTSigner(cfg.AdminJWTSecret, cfg.Issuer)

	otpBox, err := cryptoutil.NewSecretBox(otpKEK(cfg))
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, fmt.Errorf("bootstrap: otp kek: %w", err)
	}

	// 3) application services
	authSvc := auth.NewService(userRepo, opaqueRecords, wrappedKeys, loginSessions, userSessions, engine, auth.Config{
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	adminSvc := adminauth.NewService(adminRepo, opaqueRecords, loginSessions, adminSessions, engine, adminauth.Config{
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	oidcSvc := oidc.NewService(clientRepo, userRepo, wrappedKeys, encPubJWKs, pendingAuth, authCodes, oidcSessions, keys, oidc.Config{
		Issuer:     cfg.Issuer,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	otpSvc := otp.NewService(otpRepo, userRepo, otpBox)

	// 4) handlers
	authH := http_handlers.NewAuthHandler(authSvc, cfg.RefreshTokenTTL)
	oidcH := http_handlers.NewOIDCHandler(oidcSvc, keys, cfg.Issuer)
	otpH := http_handlers.NewOTPHandler(otpSvc)
	adminH := http_handlers.NewAdminHandler(adminSvc, adminSigner, cfg.AdminTokenTTL, cfg.RefreshTokenTTL)
	healthH := http_handlers.NewHealthHandler(sqlDB)

	// 5) middleware
	authUserMW := middleware.AuthUser(keys, cfg.Issuer, response.WriteError)
	authAdminMW := middleware.AuthAdmin(adminSigner, response.WriteError)
	requireRead := middleware.RequireAdminRole(domain.AdminRoleRead, response.WriteError)
	requireWrite := middleware.RequireAdminRole(domain.AdminRoleWrite, response.WriteError)

	gate := ratelimit.NewGate(limiter, ratelimit.DefaultRules())
	rateLimit := func(class ratelimit.Class) func(http.Handler) http.Handler {
		return middleware.RateLimit(gate, class, response.WriteError)
	}

	// 6) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Auth:   authH,
		OIDC:   oidcH,
		OTP:    otpH,
		Admin:  adminH,

		AuthUserMW:   authUserMW,
		AuthAdminMW:  authAdminMW,
		RequireRead:  requireRead,
		RequireWrite: requireWrite,

		RateLimit: rateLimit,

		CORSOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func newOpaqueEngine(cfg *config.Config) (*opaqueengine.Engine, error) {
	identity, err := hex.DecodeString(cfg.OpaqueServerIdentity)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: OPAQUE_SERVER_IDENTITY: %w", err)
	}
	secretKey, err := hex.DecodeString(cfg.OpaqueServerSecretKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: OPAQUE_SERVER_SECRET_KEY: %w", err)
	}
	publicKey, err := hex.DecodeString(cfg.OpaqueServerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: OPAQUE_SERVER_PUBLIC_KEY: %w", err)
	}
	oprfSeed, err := hex.DecodeString(cfg.OpaqueOPRFSeed)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: OPAQUE_OPRF_SEED: %w", err)
	}

	return opaqueengine.New(opaqueengine.Config{
		ServerIdentity:  identity,
		ServerSecretKey: secretKey,
		ServerPublicKey: publicKey,
		OPRFSeed:        oprfSeed,
	})
}

func otpKEK(cfg *config.Config) []byte {
	if cfg.OTPEncryptionKey == "" {
		// dev-only fallback; Config.Load already rejects an empty key
		// outside cfg.Env == "dev".
		return []byte("0123456789abcdef0123456789abcdef")
	}
	key, err := hex.DecodeString(cfg.OTPEncryptionKey)
	if err != nil || len(key) != 32 {
		return []byte("0123456789abcdef0123456789abcdef")
	}
	return key
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(addr string, debug bool) (DBCloser, error) {
			return config.NewDB(addr, debug)
		},
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewRouter: func(d router.Deps) (http.Handler, error) {
			return router.New(d)
		},
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
