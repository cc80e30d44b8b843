// internal/auth/boss_handlers.go
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	httpserver "agenthub/internal/http"
	"agenthub/internal/models"
)

// BossRegisterHandler creates a boss account.
// POST /boss/auth/register { "name", "email", "password", "timezone", "company", "position" }
func (h *Handlers) BossRegisterHandler() http.HandlerFunc {
	type bodyT struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Timezone string `json:"timezone"`
		Company  string `json:"company"`
		Position string `json:"position"`
	}
	return func(w http.ResponseWriter, req *http.Request) {
		var b bodyT
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		b.Name = strings.TrimSpace(b.Name)
		b.Email = normalizeEmail(b.Email)
		b.Company = strings.TrimSpace(b.Company)
		if b.Timezone == "" {
			b.Timezone = "UTC"
		}
		if b.Position == "" {
			b.Position = "Manager"
		}
		if b.Name == "" || b.Email == "" || b.Password == "" || b.Company == "" {
			httpserver.Error(w, http.StatusBadRequest, "all fields are required")
			return
		}

		phc, err := HashPassword(b.Password)
		if err != nil {
			httpserver.Error(w, http.StatusInternalServerError, "registration failed")
			return
		}
		boss, err := h.repo.CreateBoss(req.Context(), models.Boss{
			ID:           uuid.New(),
			Name:         b.Name,
			Email:        b.Email,
			PasswordHash: phc,
			Timezone:     b.Timezone,
			Company:      b.Company,
			Position:     b.Position,
			Agent:        models.AgentRecord{Status: models.AgentNotCreated},
			CreatedAt:    time.Now(),
		})
		if err != nil {
			if errors.Is(err, models.ErrDuplicateEmail) {
				httpserver.Error(w, http.StatusBadRequest, "email already registered")
				return
			}
			slog.ErrorContext(req.Context(), "boss registration failed", "err", err)
			httpserver.Error(w, http.StatusInternalServerError, "registration failed")
			return
		}

		slog.InfoContext(req.Context(), "boss registered", "email", boss.Email, "company", boss.Company)
		httpserver.JSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Registration successful",
			"boss": map[string]any{
				"id":       boss.ID,
				"name":     boss.Name,
				"email":    boss.Email,
				"timezone": boss.Timezone,
				"company":  boss.Company,
				"position": boss.Position,
			},
		})
	}
}

// BossLoginHandler authenticates a boss and issues the boss session
// cookie. Agent provisioning runs in the background with the same retry
// policy as the employee path.
// POST /boss/auth/login { "email", "password" }
func (h *Handlers) BossLoginHandler() http.HandlerFunc {
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

		boss, err := h.repo.FindBossByEmail(req.Context(), normalizeEmail(b.Email))
		if err != nil {
			httpserver.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if VerifyPassword(boss.PasswordHash, b.Password) != nil {
			httpserver.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		SetSessionCookie(w, NewSession(boss.ID, models.KindBoss), h.secureCookies)
		h.ensureAgentAsync(models.KindBoss, boss.ID)

		slog.InfoContext(req.Context(), "boss logged in", "email", boss.Email, "company", boss.Company)
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Boss login successful",
			"boss":    bossPayload(boss),
		})
	}
}

// BossLogoutHandler revokes the boss session cookie.
func (h *Handlers) BossLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ClearSessionCookie(w, models.KindBoss, h.secureCookies)
		httpserver.JSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// BossMeHandler returns the authenticated boss.
// GET /boss/auth/user (behind RequireBoss)
func (h *Handlers) BossMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s := ReadSession(req, models.KindBoss)
		if s == nil {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated as boss")
			return
		}
		boss, err := h.repo.FindBossByID(req.Context(), s.PrincipalID)
		if err != nil {
			httpserver.Error(w, http.StatusNotFound, "boss not found")
			return
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"boss":    bossPayload(boss),
		})
	}
}

// BossUpdateProfileHandler edits the boss's display fields. Blank fields
// keep their current value.
// PUT /boss/auth/user { "name", "timezone", "company", "position", "profilePhoto" }
func (h *Handlers) BossUpdateProfileHandler() http.HandlerFunc {
	type bodyT struct {
		Name         string `json:"name"`
		Timezone     string `json:"timezone"`
		Company      string `json:"company"`
		Position     string `json:"position"`
		ProfilePhoto string `json:"profilePhoto"`
	}
	return func(w http.ResponseWriter, req *http.Request) {
		s := ReadSession(req, models.KindBoss)
		if s == nil {
			httpserver.Error(w, http.StatusUnauthorized, "not authenticated as boss")
			return
		}
		boss, err := h.repo.FindBossByID(req.Context(), s.PrincipalID)
		if err != nil {
			httpserver.Error(w, http.StatusNotFound, "boss not found")
			return
		}

		var b bodyT
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
			httpserver.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if name := strings.TrimSpace(b.Name); name != "" {
			boss.Name = name
		}
		if b.Timezone != "" {
			boss.Timezone = b.Timezone
		}
		if company := strings.TrimSpace(b.Company); company != "" {
			boss.Company = company
		}
		if b.Position != "" {
			boss.Position = b.Position
		}
		if b.ProfilePhoto != "" {
			boss.ProfilePhoto = b.ProfilePhoto
		}
		if err := h.repo.UpdateBossProfile(req.Context(), boss.ID, boss.Name, boss.Timezone, boss.Company, boss.Position, boss.ProfilePhoto); err != nil {
			slog.ErrorContext(req.Context(), "boss profile update failed", "err", err)
			httpserver.Error(w, http.StatusInternalServerError, "failed to update profile")
			return
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"boss":    bossPayload(boss),
		})
	}
}

func bossPayload(b models.Boss) map[string]any {
	return map[string]any{
		"id":           b.ID,
		"name":         b.Name,
		"email":        b.Email,
		"timezone":     b.Timezone,
		"company":      b.Company,
		"position":     b.Position,
		"profilePhoto": b.ProfilePhoto,
		"bossAgent":    b.Agent,
		"googleCalendar": map[string]any{
			"connected": b.Calendar.Connected,
		},
	}
}
