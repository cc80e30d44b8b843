// internal/handlers/team/team.go
package team

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/a2a"
	httpserver "agenthub/internal/http"
	"agenthub/internal/middleware"
	"agenthub/internal/models"
	"agenthub/internal/repo"
)

// PerformanceSource is the slice of the runtime client the team view
// uses for aggregate data. Failures mean the section is omitted.
type PerformanceSource interface {
	TeamPerformance(ctx context.Context, bossID string, employees []map[string]any) (json.RawMessage, error)
}

type Handler struct {
	repo  repo.Repo
	relay *a2a.Relay
	perf  PerformanceSource
}

func New(r repo.Repo, relay *a2a.Relay, perf PerformanceSource) *Handler {
	return &Handler{repo: r, relay: relay, perf: perf}
}

// Employees lists every employee for the boss dashboard.
// GET /boss/employees
func (h *Handler) Employees(w http.ResponseWriter, r *http.Request) {
	if !h.requireBoss(w, r) {
		return
	}
	employees, err := h.repo.ListEmployees(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "list employees failed", "err", err)
		httpserver.Error(w, http.StatusInternalServerError, "failed to get employees")
		return
	}

	active := 0
	for _, e := range employees {
		if e.AgentStatus == models.AgentCalendarConnected {
			active++
		}
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"employees":    employees,
		"total":        len(employees),
		"activeAgents": active,
	})
}

// Team returns the employee roster with aggregate statistics, timezone
// grouping, and (best-effort) runtime performance data.
// GET /boss/team
func (h *Handler) Team(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		httpserver.Error(w, http.StatusUnauthorized, "not authenticated as boss")
		return
	}
	if _, err := h.repo.FindBossByID(r.Context(), s.PrincipalID); err != nil {
		httpserver.Error(w, http.StatusNotFound, "boss not found")
		return
	}

	employees, err := h.repo.ListEmployees(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "list employees failed", "err", err)
		httpserver.Error(w, http.StatusInternalServerError, "failed to get team data")
		return
	}

	stats := map[string]int{
		"total":             len(employees),
		"active":            0,
		"setupRequired":     0,
		"inactive":          0,
		"calendarConnected": 0,
	}
	timezoneGroups := map[string][]models.EmployeeSummary{}
	for _, e := range employees {
		switch e.AgentStatus {
		case models.AgentCalendarConnected:
			stats["active"]++
		case models.AgentCreated:
			stats["setupRequired"]++
		default:
			stats["inactive"]++
		}
		if e.CalendarConnected {
			stats["calendarConnected"]++
		}
		timezoneGroups[e.Timezone] = append(timezoneGroups[e.Timezone], e)
	}

	// Runtime performance data is optional; the roster and statistics
	// never depend on the runtime being up.
	var performance json.RawMessage
	if h.perf != nil {
		summaries := make([]map[string]any, 0, len(employees))
		for _, e := range employees {
			summaries = append(summaries, map[string]any{
				"id":          e.ID.String(),
				"name":        e.Name,
				"timezone":    e.Timezone,
				"agentStatus": e.AgentStatus,
			})
		}
		if raw, err := h.perf.TeamPerformance(r.Context(), s.PrincipalID.String(), summaries); err == nil {
			performance = raw
		} else {
			slog.DebugContext(r.Context(), "team performance unavailable", "err", err)
		}
	}

	httpserver.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"team": map[string]any{
			"employees":      employees,
			"statistics":     stats,
			"timezoneGroups": timezoneGroups,
			"performance":    performance,
			"lastUpdated":    time.Now().UTC(),
		},
	})
}

// Action dispatches a boss team action to an employee's agent.
// POST /boss/team { "action", "employeeId", "message", "data": {...} }
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		httpserver.Error(w, http.StatusUnauthorized, "not authenticated as boss")
		return
	}

	type bodyT struct {
		Action     a2a.Action   `json:"action"`
		EmployeeID string       `json:"employeeId"`
		Message    string       `json:"message"`
		Data       *a2a.TaskSpec `json:"data"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		httpserver.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	employeeID, err := uuid.Parse(b.EmployeeID)
	if err != nil {
		httpserver.Error(w, http.StatusBadRequest, "employee ID required")
		return
	}

	switch b.Action {
	case a2a.ActionSendMessage:
		result, err := h.relay.SendMessage(r.Context(), s.PrincipalID, employeeID, b.Message)
		h.writeRelayResult(w, r, result.Raw, err, "employee ID and message required")
	case a2a.ActionAssignTask:
		if b.Data == nil {
			httpserver.Error(w, http.StatusBadRequest, "employee ID and task data required")
			return
		}
		result, err := h.relay.AssignTask(r.Context(), s.PrincipalID, employeeID, *b.Data)
		h.writeRelayResult(w, r, result.Raw, err, "employee ID and task data required")
	default:
		httpserver.Error(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *Handler) writeRelayResult(w http.ResponseWriter, r *http.Request, raw json.RawMessage, err error, missingMsg string) {
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyMessage):
			httpserver.Error(w, http.StatusBadRequest, missingMsg)
		case errors.Is(err, models.ErrEmployeeNotFound):
			httpserver.Error(w, http.StatusNotFound, "employee not found")
		case errors.Is(err, models.ErrPrincipalNotFound):
			httpserver.Error(w, http.StatusNotFound, "boss not found")
		default:
			slog.ErrorContext(r.Context(), "team action failed", "err", err)
			httpserver.Error(w, http.StatusBadGateway, "failed to perform team action")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// A2ATest runs the boss->employee delegation diagnostic.
// POST /boss/a2a/test { "employeeId", "testMessage" }
func (h *Handler) A2ATest(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		httpserver.Error(w, http.StatusUnauthorized, "not authenticated as boss")
		return
	}

	type bodyT struct {
		EmployeeID  string `json:"employeeId"`
		TestMessage string `json:"testMessage"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		httpserver.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	employeeID, err := uuid.Parse(b.EmployeeID)
	if err != nil {
		httpserver.Error(w, http.StatusBadRequest, "employee ID required")
		return
	}

	result, err := h.relay.TestCommunication(r.Context(), s.PrincipalID, employeeID, b.TestMessage)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmployeeNotFound):
			httpserver.Error(w, http.StatusNotFound, "employee not found")
		case errors.Is(err, models.ErrPrincipalNotFound):
			httpserver.Error(w, http.StatusNotFound, "boss not found")
		default:
			slog.ErrorContext(r.Context(), "a2a test failed", "err", err)
			httpserver.Error(w, http.StatusBadGateway, "failed to test A2A communication")
		}
		return
	}

	httpserver.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"boss":       result.Boss,
		"employee":   result.Employee,
		"testResult": result.TestResult,
		"message":    "A2A communication test completed",
	})
}

func (h *Handler) requireBoss(w http.ResponseWriter, r *http.Request) bool {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		httpserver.Error(w, http.StatusUnauthorized, "not authenticated as boss")
		return false
	}
	if _, err := h.repo.FindBossByID(r.Context(), s.PrincipalID); err != nil {
		httpserver.Error(w, http.StatusNotFound, "boss not found")
		return false
	}
	return true
}
