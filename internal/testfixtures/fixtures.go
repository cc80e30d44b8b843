// internal/testfixtures/fixtures.go
package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
)

// SeedEmployee inserts an employee with sensible defaults and returns it.
func SeedEmployee(t *testing.T, r *MemoryRepo, mutate ...func(*models.Employee)) models.Employee {
	t.Helper()
	e := models.Employee{
		ID:           uuid.New(),
		Name:         "Ann Example",
		Email:        "ann@x.com",
		PasswordHash: "$2a$12$invalidhashforseeding0000000000000000000000000000000",
		Timezone:     "UTC",
		Agent:        models.AgentRecord{Status: models.AgentNotCreated},
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for _, fn := range mutate {
		fn(&e)
	}
	created, err := r.CreateEmployee(context.Background(), e)
	if err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	// CreateEmployee resets the agent record to not_created; restore any
	// advanced state the test asked for.
	if e.Agent.Status != models.AgentNotCreated {
		r.mu.Lock()
		created.Agent = e.Agent
		created.Calendar = e.Calendar
		r.employees[created.ID] = created
		r.mu.Unlock()
	}
	return created
}

// SeedBoss inserts a boss with sensible defaults and returns it.
func SeedBoss(t *testing.T, r *MemoryRepo, mutate ...func(*models.Boss)) models.Boss {
	t.Helper()
	b := models.Boss{
		ID:           uuid.New(),
		Name:         "Bea Boss",
		Email:        "bea@corp.com",
		PasswordHash: "$2a$12$invalidhashforseeding0000000000000000000000000000000",
		Timezone:     "UTC",
		Company:      "Corp",
		Position:     "Manager",
		Agent:        models.AgentRecord{Status: models.AgentNotCreated},
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for _, fn := range mutate {
		fn(&b)
	}
	created, err := r.CreateBoss(context.Background(), b)
	if err != nil {
		t.Fatalf("seed boss: %v", err)
	}
	if b.Agent.Status != models.AgentNotCreated {
		r.mu.Lock()
		created.Agent = b.Agent
		created.Calendar = b.Calendar
		r.bosses[created.ID] = created
		r.mu.Unlock()
	}
	return created
}
