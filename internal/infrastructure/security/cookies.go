package security

import (
	"net/http"
	"time"

	"github.com/darkauth/server/internal/domain"
)

// Cookie names follow spec: __Host- prefixed, cohort-scoped, plus a
// paired CSRF cookie readable by the browser (not HttpOnly) so
// state-changing requests can echo it back in a header.
const (
	UserSessionCookie  = "__Host-DarkAuth"
	UserCSRFCookie     = "__Host-DarkAuth-CSRF"
	UserRefreshCookie  = "__Host-DarkAuth-Refresh"
	AdminSessionCookie = "__Host-DarkAuth-Admin"
	AdminCSRFCookie    = "__Host-DarkAuth-Admin-CSRF"
	AdminRefreshCookie = "__Host-DarkAuth-Admin-Refresh"
)

func cookieNames(cohort domain.Cohort) (session, csrf, refresh string) {
	if cohort == domain.CohortAdmin {
		return AdminSessionCookie, AdminCSRFCookie, AdminRefreshCookie
	}
	return UserSessionCookie, UserCSRFCookie, UserRefreshCookie
}

// SetSession writes the session, CSRF, and refresh-token cookies for the
// given cohort. __Host- prefixed cookies require Secure, Path=/, and no
// Domain attribute (enforced by every modern browser), so callers must run
// behind HTTPS even in development or the browser silently drops them.
func SetSession(w http.ResponseWriter, cohort domain.Cohort, sessionID, csrfToken, refreshToken string, refreshTTL time.Duration) {
	sessionName, csrfName, refreshName := cookieNames(cohort)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfName,
		Value:    csrfToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshName,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(refreshTTL.Seconds()),
	})
}

func ClearSession(w http.ResponseWriter, cohort domain.Cohort) {
	sessionName, csrfName, refreshName := cookieNames(cohort)
	for _, name := range []string{sessionName, csrfName, refreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: name != csrfName,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

func ReadRefreshToken(r *http.Request, cohort domain.Cohort) (string, error) {
	_, _, refreshName := cookieNames(cohort)
	c, err := r.Cookie(refreshName)
	if err != nil {
		return "", domain.ErrRefreshTokenInvalid()
	}
	return c.Value, nil
}

func ReadCSRFCookie(r *http.Request, cohort domain.Cohort) (string, error) {
	_, csrfName, _ := cookieNames(cohort)
	c, err := r.Cookie(csrfName)
	if err != nil {
		return "", domain.ErrSessionMissing()
	}
	return c.Value, nil
}
