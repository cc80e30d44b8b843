// internal/middleware/auth.go
package middleware

import (
	"context"
	"net/http"

	"agenthub/internal/auth"
	httpserver "agenthub/internal/http"
	"agenthub/internal/models"
)

type ctxKeySession struct{}

func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, s)
}

func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKeySession{}).(*models.Session)
	return s, ok
}

// RequireEmployee authenticates using the employee namespace cookie and
// injects the session into the context. A boss cookie does not pass.
func RequireEmployee(next http.Handler) http.Handler {
	return requireKind(models.KindEmployee, next)
}

// RequireBoss authenticates using the boss namespace cookie and injects
// the session into the context. An employee cookie does not pass.
func RequireBoss(next http.Handler) http.Handler {
	return requireKind(models.KindBoss, next)
}

func requireKind(kind models.PrincipalKind, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := auth.ReadSession(r, kind)
		if s == nil {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}
