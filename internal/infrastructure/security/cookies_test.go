package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darkauth/server/internal/domain"
)

func TestSetSession_UserCohort_SetsCookieAttributes(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	SetSession(rr, domain.CohortUser, "sess123", "csrf123", "refresh123", 10*time.Minute)

	cookies := rr.Result().Cookies()
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	sess, ok := byName[UserSessionCookie]
	if !ok {
		t.Fatalf("expected %s cookie", UserSessionCookie)
	}
	if sess.Value != "sess123" || !sess.HttpOnly || !sess.Secure || sess.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected session cookie: %+v", sess)
	}

	csrf, ok := byName[UserCSRFCookie]
	if !ok {
		t.Fatalf("expected %s cookie", UserCSRFCookie)
	}
	if csrf.HttpOnly {
		t.Fatalf("expected CSRF cookie to be readable by script (HttpOnly=false)")
	}

	refresh, ok := byName[UserRefreshCookie]
	if !ok {
		t.Fatalf("expected %s cookie", UserRefreshCookie)
	}
	if refresh.MaxAge <= 0 {
		t.Fatalf("expected MaxAge > 0, got %d", refresh.MaxAge)
	}

	if _, ok := byName[AdminSessionCookie]; ok {
		t.Fatalf("user cohort must never set admin cookies")
	}
}

func TestClearSession_ClearsAllThreeCookies(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	ClearSession(rr, domain.CohortAdmin)

	byName := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		byName[c.Name] = c
	}

	for _, name := range []string{AdminSessionCookie, AdminCSRFCookie, AdminRefreshCookie} {
		c, ok := byName[name]
		if !ok {
			t.Fatalf("expected %s cookie", name)
		}
		if c.MaxAge != -1 {
			t.Fatalf("expected MaxAge=-1 for %s, got %d", name, c.MaxAge)
		}
	}
}

func TestReadRefreshToken_ReadsCohortScopedCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "https://example.com/api/me", nil)
	req.AddCookie(&http.Cookie{Name: UserRefreshCookie, Value: "abc"})

	v, err := ReadRefreshToken(req, domain.CohortUser)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v != "abc" {
		t.Fatalf("expected abc, got %q", v)
	}

	// Admin cohort must not see the user cohort's refresh cookie.
	if _, err := ReadRefreshToken(req, domain.CohortAdmin); err == nil {
		t.Fatalf("expected error reading admin refresh cookie from user-only request")
	}
}

func TestReadRefreshToken_Missing_ReturnsError(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "https://example.com/api/me", nil)

	if _, err := ReadRefreshToken(req, domain.CohortUser); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
