// internal/auth/session.go
package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
)

// SessionTTL is how long an issued session cookie stays valid.
const SessionTTL = 7 * 24 * time.Hour

// CookieName returns the cookie key for a principal namespace. The two
// namespaces carry independent cookies so a boss session is never read
// as an employee session.
func CookieName(kind models.PrincipalKind) string {
	if kind == models.KindBoss {
		return "boss_session"
	}
	return "employee_session"
}

// SetSessionCookie serializes the session into its namespace cookie.
func SetSessionCookie(w http.ResponseWriter, s models.Session, secure bool) {
	b, _ := json.Marshal(s)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(s.Kind),
		Value:    base64.RawStdEncoding.EncodeToString(b),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.Expiry,
	})
}

// ClearSessionCookie revokes the namespace cookie by overwriting it with
// an already-expired one.
func ClearSessionCookie(w http.ResponseWriter, kind models.PrincipalKind, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(kind),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// ReadSession decodes and validates the cookie for the given namespace.
// Returns nil for a missing, malformed, expired, or wrong-namespace cookie.
func ReadSession(r *http.Request, kind models.PrincipalKind) *models.Session {
	c, err := r.Cookie(CookieName(kind))
	if err != nil {
		return nil
	}
	b, err := base64.RawStdEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var s models.Session
	if json.Unmarshal(b, &s) != nil {
		return nil
	}
	if s.Kind != kind {
		return nil
	}
	if s.Expiry.Before(time.Now()) {
		return nil
	}
	return &s
}

// NewSession issues a 7-day session bound to the principal.
func NewSession(id uuid.UUID, kind models.PrincipalKind) models.Session {
	return models.Session{
		PrincipalID: id,
		Kind:        kind,
		Expiry:      time.Now().Add(SessionTTL),
	}
}
