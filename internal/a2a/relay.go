// internal/a2a/relay.go
package a2a

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"agenthub/internal/models"
	"agenthub/internal/repo"
	"agenthub/internal/runtime"
)

// defaultTestMessage is sent when a boss triggers a diagnostic without
// writing their own prompt.
const defaultTestMessage = "Check availability for tomorrow at 2 PM"

// Action identifies a boss team action relayed to an employee's agent.
type Action string

const (
	ActionSendMessage Action = "send_message"
	ActionAssignTask  Action = "assign_task"
)

// Runtime is the slice of the runtime client the relay needs.
type Runtime interface {
	A2ATest(ctx context.Context, bossID, employeeID, message string) (runtime.A2AResult, error)
	A2AMessage(ctx context.Context, bossID, employeeID, message string) (runtime.A2AResult, error)
	AssignTask(ctx context.Context, bossID, employeeID, task, deadline, priority string) (runtime.A2AResult, error)
}

// Relay forwards boss-initiated requests to an employee's agent. Every
// relayed call is a user-triggered one-shot: no automatic retry.
type Relay struct {
	repo repo.Repo
	rt   Runtime
}

func NewRelay(r repo.Repo, rt Runtime) *Relay {
	return &Relay{repo: r, rt: rt}
}

// TestResult carries the runtime envelope plus display metadata for the
// two principals involved.
type TestResult struct {
	Boss struct {
		Name    string `json:"name"`
		Company string `json:"company"`
	} `json:"boss"`
	Employee struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"employee"`
	TestResult runtime.A2AResult `json:"testResult"`
}

// TaskSpec is the free-form assignment payload for ActionAssignTask.
type TaskSpec struct {
	Task     string `json:"task"`
	Deadline string `json:"deadline"`
	Priority string `json:"priority"`
}

// resolve looks up both ends of the relay. The employee lookup failing
// must be reported before the runtime is ever contacted.
func (rl *Relay) resolve(ctx context.Context, bossID, employeeID uuid.UUID) (models.Boss, models.Employee, error) {
	boss, err := rl.repo.FindBossByID(ctx, bossID)
	if err != nil {
		return models.Boss{}, models.Employee{}, err
	}
	emp, err := rl.repo.FindEmployeeByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, models.ErrPrincipalNotFound) {
			return models.Boss{}, models.Employee{}, models.ErrEmployeeNotFound
		}
		return models.Boss{}, models.Employee{}, err
	}
	return boss, emp, nil
}

// TestCommunication runs the boss->employee delegation diagnostic:
// lookup, capability check, relay, response.
func (rl *Relay) TestCommunication(ctx context.Context, bossID, employeeID uuid.UUID, message string) (TestResult, error) {
	boss, emp, err := rl.resolve(ctx, bossID, employeeID)
	if err != nil {
		return TestResult{}, err
	}
	if strings.TrimSpace(message) == "" {
		message = defaultTestMessage
	}

	result, err := rl.rt.A2ATest(ctx, bossID.String(), employeeID.String(), message)
	if err != nil {
		slog.ErrorContext(ctx, "a2a test failed", "boss_id", bossID.String(), "employee_id", employeeID.String(), "err", err)
		return TestResult{}, fmt.Errorf("%w: %v", models.ErrRelayFailed, err)
	}

	out := TestResult{TestResult: result}
	out.Boss.Name = boss.Name
	out.Boss.Company = boss.Company
	out.Employee.Name = emp.Name
	out.Employee.Email = emp.Email
	slog.InfoContext(ctx, "a2a test completed", "boss_id", bossID.String(), "employee_id", employeeID.String())
	return out, nil
}

// SendMessage relays a direct boss message to the employee's agent.
func (rl *Relay) SendMessage(ctx context.Context, bossID, employeeID uuid.UUID, message string) (runtime.A2AResult, error) {
	if strings.TrimSpace(message) == "" {
		return runtime.A2AResult{}, models.ErrEmptyMessage
	}
	if _, _, err := rl.resolve(ctx, bossID, employeeID); err != nil {
		return runtime.A2AResult{}, err
	}
	result, err := rl.rt.A2AMessage(ctx, bossID.String(), employeeID.String(), message)
	if err != nil {
		slog.ErrorContext(ctx, "a2a message failed", "boss_id", bossID.String(), "employee_id", employeeID.String(), "err", err)
		return runtime.A2AResult{}, fmt.Errorf("%w: %v", models.ErrRelayFailed, err)
	}
	return result, nil
}

// AssignTask relays a task assignment to the employee's agent.
func (rl *Relay) AssignTask(ctx context.Context, bossID, employeeID uuid.UUID, task TaskSpec) (runtime.A2AResult, error) {
	if strings.TrimSpace(task.Task) == "" {
		return runtime.A2AResult{}, models.ErrEmptyMessage
	}
	if _, _, err := rl.resolve(ctx, bossID, employeeID); err != nil {
		return runtime.A2AResult{}, err
	}
	result, err := rl.rt.AssignTask(ctx, bossID.String(), employeeID.String(), task.Task, task.Deadline, task.Priority)
	if err != nil {
		slog.ErrorContext(ctx, "assign task failed", "boss_id", bossID.String(), "employee_id", employeeID.String(), "err", err)
		return runtime.A2AResult{}, fmt.Errorf("%w: %v", models.ErrRelayFailed, err)
	}
	return result, nil
}
