// internal/auth/handlers.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/agent"
	httpserver "agenthub/internal/http"
	"agenthub/internal/models"
	"agenthub/internal/repo"
)

// provisionTimeout bounds the background EnsureAgent call spawned after a
// successful login: three create attempts plus backoff, with headroom.
const provisionTimeout = 60 * time.Second

// Handlers carries the dependencies shared by both auth namespaces.
type Handlers struct {
	repo          repo.Repo
	coord         *agent.Coordinator
	secureCookies bool
}

func NewHandlers(r repo.Repo, coord *agent.Coordinator, secureCookies bool) *Handlers {
	return &Handlers{repo: r, coord: coord, secureCookies: secureCookies}
}

// ensureAgentAsync kicks off provisioning without tying it to the request
// lifecycle. Login succeeds regardless of the outcome.
func (h *Handlers) ensureAgentAsync(kind models.PrincipalKind, id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
		defer cancel()
		if err := h.coord.EnsureAgent(ctx, kind, id); err != nil {
			slog.Error("background agent provisioning failed", "kind", string(kind), "principal_id", id.String(), "err", err)
		}
	}()
}

// RegisterHandler creates an employee account.
// POST /auth/register { "name", "email", "password", "timezone" }
func (h *Handlers) RegisterHandler() http.HandlerFunc {
	type bodyT struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Timezone string `json:"timezone"`
	}
	return func(w http.ResponseWriter, req *http.Request) {
		var b bodyT
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		b.Name = strings.TrimSpace(b.Name)
		b.Email = normalizeEmail(b.Email)
		if b.Timezone == "" {
			b.Timezone = "UTC"
		}
		if b.Name == "" || b.Email == "" || b.Password == "" {
			httpserver.Error(w, http.StatusBadRequest, "all fields are required")
			return
		}

		phc, err := HashPassword(b.Password)
		if err != nil {
			httpserver.Error(w, http.StatusInternalServerError, "registration failed")
			return
		}
		e, err := h.repo.CreateEmployee(req.Context(), models.Employee{
			ID:           uuid.New(),
			Name:         b.Name,
			Email:        b.Email,
			PasswordHash: phc,
			Timezone:     b.Timezone,
			Agent:        models.AgentRecord{Status: models.AgentNotCreated},
			CreatedAt:    time.Now(),
		})
		if err != nil {
			if errors.Is(err, models.ErrDuplicateEmail) {
				httpserver.Error(w, http.StatusBadRequest, "email already registered")
				return
			}
			slog.ErrorContext(req.Context(), "employee registration failed", "err", err)
			httpserver.Error(w, http.StatusInternalServerError, "registration failed")
			return
		}

		slog.InfoContext(req.Context(), "employee registered", "email", e.Email)
		httpserver.JSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Registration successful",
			"user": map[string]any{
				"id":       e.ID,
				"name":     e.Name,
				"email":    e.Email,
				"timezone": e.Timezone,
			},
		})
	}
}

// LoginHandler authenticates an employee and issues the session cookie.
// POST /auth/login { "email", "password" }
func (h *Handlers) LoginHandler() http.HandlerFunc {
	type bodyT struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, req *http.Request) {
		var b bodyT
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil || b.Email == "" || b.Password == "" {
			httpserver.Error(w, http.StatusBadRequest, "email and password required")
			return
		}

		e, err := h.repo.FindEmployeeByEmail(req.Context(), normalizeEmail(b.Email))
		if err != nil {
			// Unknown email and wrong password are indistinguishable.
			httpserver.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if VerifyPassword(e.PasswordHash, b.Password) != nil {
			httpserver.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		SetSessionCookie(w, NewSession(e.ID, models.KindEmployee), h.secureCookies)
		h.ensureAgentAsync(models.KindEmployee, e.ID)

		slog.InfoContext(req.Context(), "employee logged in", "email", e.Email)
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Login successful",
			"user":    employeePayload(e),
		})
	}
}

// LogoutHandler revokes the employee session cookie.
func (h *Handlers) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ClearSessionCookie(w, models.KindEmployee, h.secureCookies)
		httpserver.JSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// MeHandler returns the authenticated employee.
// GET /auth/user (behind RequireEmployee)
func (h *Handlers) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s := ReadSession(req, models.KindEmployee)
		if s == nil {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		e, err := h.repo.FindEmployeeByID(req.Context(), s.PrincipalID)
		if err != nil {
			httpserver.Error(w, http.StatusNotFound, "user not found")
			return
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user":    employeePayload(e),
		})
	}
}

// UpdateProfileHandler edits the employee's display fields. Blank fields
// keep their current value.
// PUT /auth/user { "name", "timezone", "profilePhoto" }
func (h *Handlers) UpdateProfileHandler() http.HandlerFunc {
	type bodyT struct {
		Name         string `json:"name"`
		Timezone     string `json:"timezone"`
		ProfilePhoto string `json:"profilePhoto"`
	}
	return func(w http.ResponseWriter, req *http.Request) {
		s := ReadSession(req, models.KindEmployee)
		if s == nil {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		e, err := h.repo.FindEmployeeByID(req.Context(), s.PrincipalID)
		if err != nil {
			httpserver.Error(w, http.StatusNotFound, "user not found")
			return
		}

		var b bodyT
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if name := strings.TrimSpace(b.Name); name != "" {
			e.Name = name
		}
		if b.Timezone != "" {
			e.Timezone = b.Timezone
		}
		if b.ProfilePhoto != "" {
			e.ProfilePhoto = b.ProfilePhoto
		}
		if err := h.repo.UpdateEmployeeProfile(req.Context(), e.ID, e.Name, e.Timezone, e.ProfilePhoto); err != nil {
			slog.ErrorContext(req.Context(), "profile update failed", "err", err)
			httpserver.Error(w, http.StatusInternalServerError, "failed to update profile")
			return
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user":    employeePayload(e),
		})
	}
}

func employeePayload(e models.Employee) map[string]any {
	return map[string]any{
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

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
