// internal/models/types.go
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PrincipalKind selects which collection a session or lookup is scoped to.
// The employee and boss namespaces are disjoint: a boss session never
// authenticates an employee route.
type PrincipalKind string

const (
	KindEmployee PrincipalKind = "employee"
	KindBoss     PrincipalKind = "boss"
)

// AgentStatus is the per-principal agent state machine. It only ever
// advances; calendar disconnect clears tokens but never regresses it.
type AgentStatus string

const (
	AgentNotCreated        AgentStatus = "not_created"
	AgentCreated           AgentStatus = "created"
	AgentCalendarConnected AgentStatus = "calendar_connected" // employee terminal
	AgentActive            AgentStatus = "active"             // boss terminal
)

// TerminalStatus returns the calendar-connected terminal state for a kind.
func TerminalStatus(kind PrincipalKind) AgentStatus {
	if kind == KindBoss {
		return AgentActive
	}
	return AgentCalendarConnected
}

// AgentRecord is embedded 1:1 in a principal. AgentID is non-empty iff
// Status != not_created; both fields are always written together.
type AgentRecord struct {
	AgentID   string      `json:"agentId,omitempty"`
	Status    AgentStatus `json:"status"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
}

// CalendarLink holds the OAuth token pair for a principal's calendar.
// Connected == true implies both tokens are present.
type CalendarLink struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	Connected    bool   `json:"connected"`
}

type Employee struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Timezone     string       `json:"timezone"`
	ProfilePhoto string       `json:"profilePhoto,omitempty"`
	Agent        AgentRecord  `json:"aiAgent"`
	Calendar     CalendarLink `json:"googleCalendar"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type Boss struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Timezone     string       `json:"timezone"`
	Company      string       `json:"company"`
	Position     string       `json:"position"`
	ProfilePhoto string       `json:"profilePhoto,omitempty"`
	Agent        AgentRecord  `json:"bossAgent"`
	Calendar     CalendarLink `json:"googleCalendar"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// EmployeeSummary is the projection returned to boss-facing list views.
type EmployeeSummary struct {
	ID                uuid.UUID   `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Timezone          string      `json:"timezone"`
	ProfilePhoto      string      `json:"profilePhoto,omitempty"`
	AgentStatus       AgentStatus `json:"agentStatus"`
	AgentID           string      `json:"agentId,omitempty"`
	CalendarConnected bool        `json:"calendarConnected"`
	MemberSince       time.Time   `json:"memberSince"`
}

// Session is the value serialized into the namespace-specific cookie.
type Session struct {
	PrincipalID uuid.UUID     `json:"pid"`
	Kind        PrincipalKind `json:"kind"`
	Expiry      time.Time     `json:"exp"`
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrAgentNotReady      = errors.New("agent not created")
	ErrEmptyMessage       = errors.New("message is required")
	ErrUnknownAction      = errors.New("unknown action")
	ErrRelayFailed        = errors.New("a2a relay failed")
	ErrAgentCommunication = errors.New("failed to communicate with agent")
	ErrTokenExchange      = errors.New("token exchange failed")
	ErrInvariantViolation = errors.New("agent record invariant violated")
)
