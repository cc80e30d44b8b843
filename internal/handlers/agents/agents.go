// internal/handlers/agents/agents.go
package agents

import (
	"encoding/json"
	"errors"
	"net/http"

	"agenthub/internal/agent"
	httpserver "agenthub/internal/http"
	"agenthub/internal/middleware"
	"agenthub/internal/models"
	"agenthub/internal/repo"
)

type Handler struct {
	repo       repo.Repo
	coord      *agent.Coordinator
	dispatcher *agent.Dispatcher
}

func New(r repo.Repo, coord *agent.Coordinator, d *agent.Dispatcher) *Handler {
	return &Handler{repo: r, coord: coord, dispatcher: d}
}

// Chat routes a principal's message to its own agent.
// POST /agent/chat and /boss/agent/chat { "message": "..." }
func (h *Handler) Chat(kind models.PrincipalKind) http.HandlerFunc {
	type bodyT struct {
		Message string `json:"message"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		var b bodyT
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		reply, err := h.dispatcher.Chat(r.Context(), kind, s.PrincipalID, b.Message)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrAgentNotReady), errors.Is(err, models.ErrPrincipalNotFound):
				httpserver.Error(w, http.StatusNotFound, "AI Agent not found")
			case errors.Is(err, models.ErrEmptyMessage):
				httpserver.Error(w, http.StatusBadRequest, "message is required")
			default:
				httpserver.Error(w, http.StatusBadGateway, "failed to chat with AI agent")
			}
			return
		}

		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"response":  reply.Response,
			"agentId":   reply.AgentID,
			"timestamp": reply.Timestamp,
		})
	}
}

// Status reports the local agent record alongside the runtime's view.
// GET /agent/status and /boss/agent/status
func (h *Handler) Status(kind models.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		var principal map[string]any
		if kind == models.KindBoss {
			boss, err := h.repo.FindBossByID(r.Context(), s.PrincipalID)
			if err != nil {
				httpserver.Error(w, http.StatusNotFound, "boss not found")
				return
			}
			principal = map[string]any{
				"id":           boss.ID,
				"name":         boss.Name,
				"email":        boss.Email,
				"timezone":     boss.Timezone,
				"company":      boss.Company,
				"position":     boss.Position,
				"profilePhoto": boss.ProfilePhoto,
				"bossAgent":    boss.Agent,
				"googleCalendar": map[string]any{
					"connected": boss.Calendar.Connected,
				},
			}
		} else {
			e, err := h.repo.FindEmployeeByID(r.Context(), s.PrincipalID)
			if err != nil {
				httpserver.Error(w, http.StatusNotFound, "user not found")
				return
			}
			principal = map[string]any{
				"id":           e.ID,
				"name":         e.Name,
				"email":        e.Email,
				"timezone":     e.Timezone,
				"profilePhoto": e.ProfilePhoto,
				"aiAgent":      e.Agent,
				"googleCalendar": map[string]any{
					"connected": e.Calendar.Connected,
				},
			}
		}

		// The runtime view is best-effort; local state is reported truthfully
		// even when the runtime is down.
		var runtimeAgent any
		if st := h.coord.RuntimeStatus(r.Context(), s.PrincipalID); st != nil {
			runtimeAgent = st.Agent
		}

		key := "user"
		if kind == models.KindBoss {
			key = "boss"
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success":        true,
			key:              principal,
			"mcpAgentStatus": runtimeAgent,
		})
	}
}
