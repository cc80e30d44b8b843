// internal/testfixtures/repo.go
package testfixtures

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
	"agenthub/internal/repo"
)

// MemoryRepo is an in-memory Repo with the same atomicity semantics as
// the Postgres implementation: every update mutates one principal record
// under one lock acquisition, and AdvanceAgentCreated honors the
// status=not_created write precondition.
type MemoryRepo struct {
	mu        sync.Mutex
	employees map[uuid.UUID]models.Employee
	bosses    map[uuid.UUID]models.Boss
}

var _ repo.Repo = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		employees: map[uuid.UUID]models.Employee{},
		bosses:    map[uuid.UUID]models.Boss{},
	}
}

func (m *MemoryRepo) CreateEmployee(_ context.Context, e models.Employee) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.employees {
		if strings.EqualFold(existing.Email, e.Email) {
			return models.Employee{}, models.ErrDuplicateEmail
		}
	}
	e.Agent.Status = models.AgentNotCreated
	m.employees[e.ID] = e
	return e, nil
}

func (m *MemoryRepo) CreateBoss(_ context.Context, b models.Boss) (models.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bosses {
		if strings.EqualFold(existing.Email, b.Email) {
			return models.Boss{}, models.ErrDuplicateEmail
		}
	}
	b.Agent.Status = models.AgentNotCreated
	m.bosses[b.ID] = b
	return b, nil
}

func (m *MemoryRepo) FindEmployeeByID(_ context.Context, id uuid.UUID) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return models.Employee{}, models.ErrPrincipalNotFound
	}
	return e, nil
}

func (m *MemoryRepo) FindEmployeeByEmail(_ context.Context, email string) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.employees {
		if strings.EqualFold(e.Email, email) {
			return e, nil
		}
	}
	return models.Employee{}, models.ErrPrincipalNotFound
}

func (m *MemoryRepo) FindBossByID(_ context.Context, id uuid.UUID) (models.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[id]
	if !ok {
		return models.Boss{}, models.ErrPrincipalNotFound
	}
	return b, nil
}

func (m *MemoryRepo) FindBossByEmail(_ context.Context, email string) (models.Boss, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bosses {
		if strings.EqualFold(b.Email, email) {
			return b, nil
		}
	}
	return models.Boss{}, models.ErrPrincipalNotFound
}

func (m *MemoryRepo) ListEmployees(_ context.Context) ([]models.EmployeeSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EmployeeSummary, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, models.EmployeeSummary{
			ID:                e.ID,
			Name:              e.Name,
			Email:             e.Email,
			Timezone:          e.Timezone,
			ProfilePhoto:      e.ProfilePhoto,
			AgentStatus:       e.Agent.Status,
			AgentID:           e.Agent.AgentID,
			CalendarConnected: e.Calendar.Connected,
			MemberSince:       e.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepo) AdvanceAgentCreated(_ context.Context, kind models.PrincipalKind, id uuid.UUID, agentID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == models.KindBoss {
		b, ok := m.bosses[id]
		if !ok || b.Agent.Status != models.AgentNotCreated {
			return false, nil
		}
		b.Agent = models.AgentRecord{AgentID: agentID, Status: models.AgentCreated, CreatedAt: &at}
		m.bosses[id] = b
		return true, nil
	}
	e, ok := m.employees[id]
	if !ok || e.Agent.Status != models.AgentNotCreated {
		return false, nil
	}
	e.Agent = models.AgentRecord{AgentID: agentID, Status: models.AgentCreated, CreatedAt: &at}
	m.employees[id] = e
	return true, nil
}

func (m *MemoryRepo) SetCalendarConnected(_ context.Context, kind models.PrincipalKind, id uuid.UUID, accessToken, refreshToken string, status models.AgentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal := models.CalendarLink{AccessToken: accessToken, RefreshToken: refreshToken, Connected: true}
	if kind == models.KindBoss {
		b, ok := m.bosses[id]
		if !ok {
			return models.ErrPrincipalNotFound
		}
		b.Calendar = cal
		b.Agent.Status = status
		m.bosses[id] = b
		return nil
	}
	e, ok := m.employees[id]
	if !ok {
		return models.ErrPrincipalNotFound
	}
	e.Calendar = cal
	e.Agent.Status = status
	m.employees[id] = e
	return nil
}

func (m *MemoryRepo) ClearCalendar(_ context.Context, kind models.PrincipalKind, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == models.KindBoss {
		b, ok := m.bosses[id]
		if !ok {
			return models.ErrPrincipalNotFound
		}
		b.Calendar = models.CalendarLink{}
		m.bosses[id] = b
		return nil
	}
	e, ok := m.employees[id]
	if !ok {
		return models.ErrPrincipalNotFound
	}
	e.Calendar = models.CalendarLink{}
	m.employees[id] = e
	return nil
}

func (m *MemoryRepo) UpdateEmployeeProfile(_ context.Context, id uuid.UUID, name, timezone, photo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return models.ErrPrincipalNotFound
	}
	e.Name, e.Timezone, e.ProfilePhoto = name, timezone, photo
	m.employees[id] = e
	return nil
}

func (m *MemoryRepo) UpdateBossProfile(_ context.Context, id uuid.UUID, name, timezone, company, position, photo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[id]
	if !ok {
		return models.ErrPrincipalNotFound
	}
	b.Name, b.Timezone, b.Company, b.Position, b.ProfilePhoto = name, timezone, company, position, photo
	m.bosses[id] = b
	return nil
}
