// internal/handlers/calendar/calendar.go
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"agenthub/internal/agent"
	"agenthub/internal/config"
	httpserver "agenthub/internal/http"
	"agenthub/internal/middleware"
	"agenthub/internal/models"
	"agenthub/internal/oauth"
)

// Exchanger is the slice of the OAuth client the callback needs.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (oauth.Tokens, error)
}

type Handler struct {
	coord     *agent.Coordinator
	exchanger Exchanger
	cfg       config.Config
}

func New(coord *agent.Coordinator, ex Exchanger, cfg config.Config) *Handler {
	return &Handler{coord: coord, exchanger: ex, cfg: cfg}
}

// Connect returns the provider consent URL for the session's principal.
// GET /calendar/connect and /boss/calendar/connect
func (h *Handler) Connect(kind models.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		state := oauth.EncodeState(kind, s.PrincipalID)
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"authUrl": oauth.AuthURL(h.cfg.Google.ClientID, h.cfg.RedirectURI(), state),
		})
	}
}

// Callback handles the provider redirect: exchanges the code, stores the
// tokens, advances the agent state, and sends the browser back to the
// dashboard. All failures redirect with an error marker rather than
// rendering JSON, since the caller is a browser mid-OAuth-flow.
// GET /calendar/callback?code=...&state=...
func (h *Handler) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("error") != "" {
			h.redirect(w, r, "error=calendar_denied")
			return
		}
		code, state := q.Get("code"), q.Get("state")
		if code == "" || state == "" {
			h.redirect(w, r, "error=invalid_callback")
			return
		}
		kind, principalID, err := oauth.DecodeState(state)
		if err != nil {
			slog.ErrorContext(r.Context(), "malformed oauth state", "err", err)
			h.redirect(w, r, "error=invalid_callback")
			return
		}

		tokens, err := h.exchanger.ExchangeCode(r.Context(), code, h.cfg.RedirectURI())
		if err != nil {
			slog.ErrorContext(r.Context(), "token exchange failed", "principal_id", principalID.String(), "err", err)
			h.redirect(w, r, "error=token_failed")
			return
		}

		if err := h.coord.ConnectCalendar(r.Context(), kind, principalID, tokens); err != nil {
			slog.ErrorContext(r.Context(), "calendar connect failed", "principal_id", principalID.String(), "err", err)
			h.redirect(w, r, "error=callback_failed")
			return
		}
		h.redirect(w, r, "success=calendar_connected")
	}
}

// Disconnect clears the stored token pair. The agent status stays where
// it is; only the calendar linkage is dropped.
// POST /calendar/disconnect and /boss/calendar/disconnect
func (h *Handler) Disconnect(kind models.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if err := h.coord.DisconnectCalendar(r.Context(), kind, s.PrincipalID); err != nil {
			if errors.Is(err, models.ErrPrincipalNotFound) {
				httpserver.Error(w, http.StatusNotFound, "user not found")
				return
			}
			httpserver.Error(w, http.StatusInternalServerError, "failed to disconnect calendar")
			return
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, marker string) {
	base := strings.TrimRight(h.cfg.Frontend.URL, "/")
	http.Redirect(w, r, base+"/dashboard?"+marker, http.StatusTemporaryRedirect)
}
