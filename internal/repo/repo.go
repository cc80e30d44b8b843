// internal/repo/repo.go
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
)

// Repo defines the persistence methods the rest of the app uses.
// Employees and bosses live in separate collections; every lookup and
// update is scoped to exactly one of them via PrincipalKind.
type Repo interface {
	CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error)
	CreateBoss(ctx context.Context, b models.Boss) (models.Boss, error)

	FindEmployeeByID(ctx context.Context, id uuid.UUID) (models.Employee, error)
	FindEmployeeByEmail(ctx context.Context, email string) (models.Employee, error)
	FindBossByID(ctx context.Context, id uuid.UUID) (models.Boss, error)
	FindBossByEmail(ctx context.Context, email string) (models.Boss, error)

	// ListEmployees returns a fresh snapshot per call, ordered by name.
	ListEmployees(ctx context.Context) ([]models.EmployeeSummary, error)

	// AdvanceAgentCreated performs the not_created -> created transition
	// with `status = not_created` as a write precondition. AgentID, status
	// and createdAt are written in one statement so the record invariant
	// holds under concurrent callers. Returns false when another call
	// already advanced the record.
	AdvanceAgentCreated(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, agentID string, at time.Time) (bool, error)

	// SetCalendarConnected stores both tokens, connected=true and the
	// status advance in a single atomic update.
	SetCalendarConnected(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, accessToken, refreshToken string, status models.AgentStatus) error

	// ClearCalendar nulls both tokens and sets connected=false without
	// touching the agent status.
	ClearCalendar(ctx context.Context, kind models.PrincipalKind, id uuid.UUID) error

	UpdateEmployeeProfile(ctx context.Context, id uuid.UUID, name, timezone, photo string) error
	UpdateBossProfile(ctx context.Context, id uuid.UUID, name, timezone, company, position, photo string) error
}
