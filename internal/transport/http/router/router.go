// Package router assembles the chi mux for every HTTP surface spec.md §6
// names: the end-user OPAQUE/session surface, the OIDC authorization-code
// pipeline, the OTP second factor, and the admin cohort's mirror of
// login/RBAC. Grounded on the teacher's router.go: a Deps struct of
// handler interfaces plus middleware function fields, validated non-nil,
// wired onto a chi.Mux.
package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darkauth/server/internal/domain"
	"github.com/darkauth/server/internal/ratelimit"
	"github.com/darkauth/server/internal/transport/http/middleware"
	"github.com/darkauth/server/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	RegisterStart(w http.ResponseWriter, r *http.Request)
	RegisterFinish(w http.ResponseWriter, r *http.Request)
	LoginStart(w http.ResponseWriter, r *http.Request)
	LoginFinish(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	SessionsRevoke(w http.ResponseWriter, r *http.Request)
	PasswordChangeStart(w http.ResponseWriter, r *http.Request)
	PasswordChangeFinish(w http.ResponseWriter, r *http.Request)
}

type OIDCHandler interface {
	Discovery(w http.ResponseWriter, r *http.Request)
	JWKS(w http.ResponseWriter, r *http.Request)
	Authorize(w http.ResponseWriter, r *http.Request)
	Finalize(w http.ResponseWriter, r *http.Request)
	Token(w http.ResponseWriter, r *http.Request)
	UserInfo(w http.ResponseWriter, r *http.Request)
	GetWrappedDRK(w http.ResponseWriter, r *http.Request)
	PutWrappedDRK(w http.ResponseWriter, r *http.Request)
	GetEncPublicJWK(w http.ResponseWriter, r *http.Request)
	PutEncPublicJWK(w http.ResponseWriter, r *http.Request)
	SearchUsers(w http.ResponseWriter, r *http.Request)
}

type OTPHandler interface {
	SetupInit(w http.ResponseWriter, r *http.Request)
	SetupVerify(w http.ResponseWriter, r *http.Request)
	Verify(w http.ResponseWriter, r *http.Request)
	Disable(w http.ResponseWriter, r *http.Request)
	BackupRegenerate(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	RegisterStart(w http.ResponseWriter, r *http.Request)
	RegisterFinish(w http.ResponseWriter, r *http.Request)
	LoginStart(w http.ResponseWriter, r *http.Request)
	LoginFinish(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	SetRole(w http.ResponseWriter, r *http.Request)
}

// Deps carries every handler and middleware the router wires. All fields
// except CORSOrigins are required; New returns an error if a required
// handler is nil so a missing wiring mistake fails at startup rather than
// with a 500 at request time.
type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	OIDC   OIDCHandler
	OTP    OTPHandler
	Admin  AdminHandler

	AuthUserMW   func(http.Handler) http.Handler
	AuthAdminMW  func(http.Handler) http.Handler
	RequireRead  func(http.Handler) http.Handler
	RequireWrite func(http.Handler) http.Handler

	RateLimit func(class ratelimit.Class) func(http.Handler) http.Handler

	CORSOrigins []string
}

func New(deps Deps) (http.Handler, error) {
	switch {
	case deps.Health == nil, deps.Auth == nil, deps.OIDC == nil, deps.OTP == nil, deps.Admin == nil:
		return nil, domain.ErrInternal(errors.New("router: missing required dependency"))
	case deps.AuthUserMW == nil, deps.AuthAdminMW == nil:
		return nil, domain.ErrInternal(errors.New("router: missing required dependency"))
	case deps.RequireRead == nil, deps.RequireWrite == nil:
		return nil, domain.ErrInternal(errors.New("router: missing required dependency"))
	case deps.RateLimit == nil:
		return nil, domain.ErrInternal(errors.New("router: missing required dependency"))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Metrics)
	r.Use(middleware.CSRFProtection(deps.CORSOrigins))

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/.well-known/openid-configuration", deps.OIDC.Discovery)
	r.Get("/jwks", deps.OIDC.JWKS)
	r.Get("/authorize", deps.OIDC.Authorize)
	r.With(deps.RateLimit(ratelimit.ClassLogin)).Post("/finalize", deps.OIDC.Finalize)
	r.With(deps.RateLimit(ratelimit.ClassToken)).Post("/token", deps.OIDC.Token)
	r.With(deps.AuthUserMW).Get("/userinfo", deps.OIDC.UserInfo)
	r.Get("/api/users", deps.OIDC.SearchUsers)

	r.Route("/opaque/register", func(r chi.Router) {
		r.With(deps.RateLimit(ratelimit.ClassRegister)).Post("/start", deps.Auth.RegisterStart)
		r.With(deps.RateLimit(ratelimit.ClassRegister)).Post("/finish", deps.Auth.RegisterFinish)
	})
	r.Route("/opaque/login", func(r chi.Router) {
		r.With(deps.RateLimit(ratelimit.ClassLogin)).Post("/start", deps.Auth.LoginStart)
		r.With(deps.RateLimit(ratelimit.ClassLogin)).Post("/finish", deps.Auth.LoginFinish)
	})
	r.Post("/logout", deps.Auth.Logout)
	r.With(deps.AuthUserMW).Post("/sessions/revoke", deps.Auth.SessionsRevoke)

	r.Route("/password/change", func(r chi.Router) {
		r.Use(deps.AuthUserMW)
		r.With(deps.RateLimit(ratelimit.ClassPasswordReset)).Post("/start", deps.Auth.PasswordChangeStart)
		r.With(deps.RateLimit(ratelimit.ClassPasswordReset)).Post("/finish", deps.Auth.PasswordChangeFinish)
	})

	r.Route("/crypto", func(r chi.Router) {
		r.Use(deps.AuthUserMW)
		r.Get("/wrapped-drk", deps.OIDC.GetWrappedDRK)
		r.Put("/wrapped-drk", deps.OIDC.PutWrappedDRK)
		r.Get("/enc-public-jwk", deps.OIDC.GetEncPublicJWK)
		r.Put("/enc-public-jwk", deps.OIDC.PutEncPublicJWK)
	})

	r.Route("/otp", func(r chi.Router) {
		r.Use(deps.AuthUserMW)
		r.Post("/setup/init", deps.OTP.SetupInit)
		r.Post("/setup/verify", deps.OTP.SetupVerify)
		r.With(deps.RateLimit(ratelimit.ClassOTPVerify)).Post("/verify", deps.OTP.Verify)
		r.Post("/disable", deps.OTP.Disable)
		r.Post("/backup/regenerate", deps.OTP.BackupRegenerate)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Route("/register", func(r chi.Router) {
			r.Use(deps.AuthAdminMW, deps.RequireWrite)
			r.Post("/start", deps.Admin.RegisterStart)
			r.Post("/finish", deps.Admin.RegisterFinish)
		})
		r.Route("/login", func(r chi.Router) {
			r.With(deps.RateLimit(ratelimit.ClassAdminLogin)).Post("/start", deps.Admin.LoginStart)
			r.With(deps.RateLimit(ratelimit.ClassAdminLogin)).Post("/finish", deps.Admin.LoginFinish)
		})
		r.Post("/logout", deps.Admin.Logout)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthAdminMW, deps.RequireRead)
			r.Get("/users", deps.Admin.List)
		})
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthAdminMW, deps.RequireWrite)
			r.Put("/users/{id}/role", deps.Admin.SetRole)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, r, domain.New(domain.KindNotFound, "not_found", "resource not found"))
	})

	return r, nil
}
