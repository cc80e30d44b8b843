// internal/agent/coordinator.go
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
	"agenthub/internal/oauth"
	"agenthub/internal/repo"
	"agenthub/internal/runtime"
)

// Runtime is the slice of the runtime client the coordinator needs.
type Runtime interface {
	CreateAgent(ctx context.Context, principalID, name, email, timezone string) (runtime.CreateAgentResult, error)
	CreateBossAgent(ctx context.Context, principalID, name, email, timezone, company, position string) (runtime.CreateAgentResult, error)
	ConnectCalendar(ctx context.Context, principalID, accessToken, refreshToken string) error
	DisconnectCalendar(ctx context.Context, principalID string) error
	AgentStatus(ctx context.Context, principalID string) (runtime.AgentStatusResult, error)
}

const (
	createAttempts = 3
	createBackoff  = 2 * time.Second
)

// Coordinator owns the per-principal agent state machine. All durable
// state lives in the repo; the coordinator itself is stateless.
type Coordinator struct {
	repo repo.Repo
	rt   Runtime

	// sleep and now are injectable so tests run without real delays.
	sleep func(time.Duration)
	now   func() time.Time
}

func NewCoordinator(r repo.Repo, rt Runtime) *Coordinator {
	return &Coordinator{repo: r, rt: rt, sleep: time.Sleep, now: time.Now}
}

// principalInfo is the kind-independent view the coordinator works on.
type principalInfo struct {
	ID       uuid.UUID
	Kind     models.PrincipalKind
	Name     string
	Email    string
	Timezone string
	Company  string
	Position string
	Agent    models.AgentRecord
	Calendar models.CalendarLink
}

func (c *Coordinator) loadPrincipal(ctx context.Context, kind models.PrincipalKind, id uuid.UUID) (principalInfo, error) {
	if kind == models.KindBoss {
		b, err := c.repo.FindBossByID(ctx, id)
		if err != nil {
			return principalInfo{}, err
		}
		return principalInfo{
			ID: b.ID, Kind: kind, Name: b.Name, Email: b.Email, Timezone: b.Timezone,
			Company: b.Company, Position: b.Position, Agent: b.Agent, Calendar: b.Calendar,
		}, nil
	}
	e, err := c.repo.FindEmployeeByID(ctx, id)
	if err != nil {
		return principalInfo{}, err
	}
	return principalInfo{
		ID: e.ID, Kind: kind, Name: e.Name, Email: e.Email, Timezone: e.Timezone,
		Agent: e.Agent, Calendar: e.Calendar,
	}, nil
}

func checkAgentInvariant(a models.AgentRecord) error {
	created := a.Status != models.AgentNotCreated
	if created != (a.AgentID != "") {
		return models.ErrInvariantViolation
	}
	return nil
}

// EnsureAgent makes sure the principal's agent exists, both locally and
// in the runtime. It is idempotent: once the record has advanced beyond
// not_created, local status, agentId and createdAt are never overwritten;
// the runtime is still contacted so the agent exists server-side.
//
// Create failures are retried up to createAttempts times with a fixed
// backoff. Exhaustion leaves the record at not_created and returns the
// last error; callers on the login path invoke this fire-and-forget so a
// provisioning failure never fails a login.
func (c *Coordinator) EnsureAgent(ctx context.Context, kind models.PrincipalKind, id uuid.UUID) error {
	p, err := c.loadPrincipal(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := checkAgentInvariant(p.Agent); err != nil {
		slog.ErrorContext(ctx, "agent record invariant violated", "kind", string(kind), "principal_id", id.String(), "status", string(p.Agent.Status))
		return err
	}

	if p.Agent.Status != models.AgentNotCreated {
		// Local state is the source of truth once advanced. Re-ensure the
		// runtime side best-effort and leave the record alone.
		if _, err := c.createRemote(ctx, p); err != nil {
			slog.ErrorContext(ctx, "runtime re-ensure failed", "kind", string(kind), "principal_id", id.String(), "err", err)
		}
		return nil
	}

	var result runtime.CreateAgentResult
	for attempt := 1; ; attempt++ {
		result, err = c.createRemote(ctx, p)
		if err == nil {
			break
		}
		slog.ErrorContext(ctx, "agent creation attempt failed",
			"kind", string(kind), "principal_id", id.String(), "attempt", attempt, "err", err)
		if attempt == createAttempts {
			return err
		}
		c.sleep(createBackoff)
	}

	advanced, err := c.repo.AdvanceAgentCreated(ctx, kind, id, result.AgentID, c.now())
	if err != nil {
		return err
	}
	if !advanced {
		// A concurrent EnsureAgent won the transition. The runtime create
		// is idempotent per principal id, so this is convergent.
		slog.DebugContext(ctx, "agent already advanced by concurrent call", "principal_id", id.String())
		return nil
	}
	slog.InfoContext(ctx, "agent created", "kind", string(kind), "principal_id", id.String(), "agent_id", result.AgentID)
	return nil
}

func (c *Coordinator) createRemote(ctx context.Context, p principalInfo) (runtime.CreateAgentResult, error) {
	if p.Kind == models.KindBoss {
		return c.rt.CreateBossAgent(ctx, p.ID.String(), p.Name, p.Email, p.Timezone, p.Company, p.Position)
	}
	return c.rt.CreateAgent(ctx, p.ID.String(), p.Name, p.Email, p.Timezone)
}

// ConnectCalendar stores the token pair, advances the status to the
// kind's terminal state, and pushes the credentials to the runtime. The
// local write is authoritative: a runtime sync failure is logged, never
// rolled back.
func (c *Coordinator) ConnectCalendar(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, tokens oauth.Tokens) error {
	p, err := c.loadPrincipal(ctx, kind, id)
	if err != nil {
		return err
	}
	if p.Agent.Status == models.AgentNotCreated {
		// Calendar linkage presumes a provisioned agent; connecting now
		// would leave status advanced with no agentId.
		return models.ErrInvariantViolation
	}

	if err := c.repo.SetCalendarConnected(ctx, kind, id, tokens.AccessToken, tokens.RefreshToken, models.TerminalStatus(kind)); err != nil {
		return err
	}

	if err := c.rt.ConnectCalendar(ctx, id.String(), tokens.AccessToken, tokens.RefreshToken); err != nil {
		slog.ErrorContext(ctx, "runtime calendar sync failed", "kind", string(kind), "principal_id", id.String(), "err", err)
	} else {
		slog.InfoContext(ctx, "calendar connected", "kind", string(kind), "principal_id", id.String())
	}
	return nil
}

// DisconnectCalendar clears the token pair. The agent status never
// regresses; the runtime disconnect is best-effort.
func (c *Coordinator) DisconnectCalendar(ctx context.Context, kind models.PrincipalKind, id uuid.UUID) error {
	if _, err := c.loadPrincipal(ctx, kind, id); err != nil {
		return err
	}

	if err := c.rt.DisconnectCalendar(ctx, id.String()); err != nil {
		slog.ErrorContext(ctx, "runtime calendar disconnect failed", "kind", string(kind), "principal_id", id.String(), "err", err)
	}

	return c.repo.ClearCalendar(ctx, kind, id)
}

// RuntimeStatus returns the runtime-side agent view, or nil when the
// runtime is unavailable (callers surface local state regardless).
func (c *Coordinator) RuntimeStatus(ctx context.Context, id uuid.UUID) *runtime.AgentStatusResult {
	st, err := c.rt.AgentStatus(ctx, id.String())
	if err != nil {
		slog.DebugContext(ctx, "runtime agent status unavailable", "principal_id", id.String(), "err", err)
		return nil
	}
	return &st
}
