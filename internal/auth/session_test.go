// internal/auth/session_test.go
package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
)

func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSessionRoundTrip(t *testing.T) {
	id := uuid.New()
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, NewSession(id, models.KindEmployee), false)

	got := ReadSession(requestWithCookies(rec), models.KindEmployee)
	if got == nil {
		t.Fatal("session not readable back")
	}
	if got.PrincipalID != id || got.Kind != models.KindEmployee {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionNamespacesAreDisjoint(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, NewSession(uuid.New(), models.KindBoss), false)

	r := requestWithCookies(rec)
	if ReadSession(r, models.KindEmployee) != nil {
		t.Error("boss cookie accepted in the employee namespace")
	}
	if ReadSession(r, models.KindBoss) == nil {
		t.Error("boss cookie rejected in its own namespace")
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, NewSession(uuid.New(), models.KindEmployee), true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes = %+v", c)
	}
	ttl := time.Until(c.Expires)
	if ttl < 6*24*time.Hour || ttl > 8*24*time.Hour {
		t.Errorf("cookie expiry %v from now, want ~7 days", ttl)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	s := models.Session{
		PrincipalID: uuid.New(),
		Kind:        models.KindEmployee,
		Expiry:      time.Now().Add(-time.Minute),
	}
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, s, false)

	if ReadSession(requestWithCookies(rec), models.KindEmployee) != nil {
		t.Error("expired session accepted")
	}
}

func TestMalformedCookieRejected(t *testing.T) {
	for _, value := range []string{"", "%%%", "bm90LWpzb24"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName(models.KindEmployee), Value: value})
		if ReadSession(r, models.KindEmployee) != nil {
			t.Errorf("malformed cookie %q accepted", value)
		}
	}
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, models.KindBoss, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName(models.KindBoss) || c.Value != "" || c.MaxAge != -1 {
		t.Errorf("clearing cookie = %+v", c)
	}
}
