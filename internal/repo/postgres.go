// internal/repo/postgres.go
package repo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"agenthub/internal/models"
)

// pgRepo implements Repo on a pgx connection pool.
type pgRepo struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) Repo { return &pgRepo{pool: pool} }

const pgUniqueViolation = "23505"

// Migrate creates the two principal tables. Sub-records (agent, calendar)
// are embedded as columns of the principal row so every partial update is
// a single-row atomic statement.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS employees (
    id               UUID PRIMARY KEY,
    name             TEXT NOT NULL,
    email            TEXT NOT NULL UNIQUE,
    password_hash    TEXT NOT NULL,
    timezone         TEXT NOT NULL,
    profile_photo    TEXT,
    agent_id         TEXT,
    agent_status     TEXT NOT NULL DEFAULT 'not_created',
    agent_created_at TIMESTAMPTZ,
    cal_access_token TEXT,
    cal_refresh_token TEXT,
    cal_connected    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS bosses (
    id               UUID PRIMARY KEY,
    name             TEXT NOT NULL,
    email            TEXT NOT NULL UNIQUE,
    password_hash    TEXT NOT NULL,
    timezone         TEXT NOT NULL,
    company          TEXT NOT NULL,
    position         TEXT NOT NULL DEFAULT 'Manager',
    profile_photo    TEXT,
    agent_id         TEXT,
    agent_status     TEXT NOT NULL DEFAULT 'not_created',
    agent_created_at TIMESTAMPTZ,
    cal_access_token TEXT,
    cal_refresh_token TEXT,
    cal_connected    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	_, err := pool.Exec(ctx, ddl)
	return err
}

func tableFor(kind models.PrincipalKind) string {
	if kind == models.KindBoss {
		return "bosses"
	}
	return "employees"
}

// ---------------- Create ----------------

func (p *pgRepo) CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	slog.DebugContext(ctx, "CreateEmployee", "email", e.Email)
	_, err := p.pool.Exec(ctx, `
        INSERT INTO employees (id, name, email, password_hash, timezone, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		fromUUID(e.ID), e.Name, e.Email, e.PasswordHash, e.Timezone, e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Employee{}, models.ErrDuplicateEmail
		}
		slog.ErrorContext(ctx, "CreateEmployee failed", "err", err)
		return models.Employee{}, err
	}
	e.Agent.Status = models.AgentNotCreated
	return e, nil
}

func (p *pgRepo) CreateBoss(ctx context.Context, b models.Boss) (models.Boss, error) {
	slog.DebugContext(ctx, "CreateBoss", "email", b.Email)
	_, err := p.pool.Exec(ctx, `
        INSERT INTO bosses (id, name, email, password_hash, timezone, company, position, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fromUUID(b.ID), b.Name, b.Email, b.PasswordHash, b.Timezone, b.Company, b.Position, b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Boss{}, models.ErrDuplicateEmail
		}
		slog.ErrorContext(ctx, "CreateBoss failed", "err", err)
		return models.Boss{}, err
	}
	b.Agent.Status = models.AgentNotCreated
	return b, nil
}

// ---------------- Reads ----------------

const employeeCols = `id, name, email, password_hash, timezone, profile_photo,
    agent_id, agent_status, agent_created_at,
    cal_access_token, cal_refresh_token, cal_connected, created_at`

func (p *pgRepo) FindEmployeeByID(ctx context.Context, id uuid.UUID) (models.Employee, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+employeeCols+` FROM employees WHERE id = $1`, fromUUID(id))
	return scanEmployee(row)
}

func (p *pgRepo) FindEmployeeByEmail(ctx context.Context, email string) (models.Employee, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+employeeCols+` FROM employees WHERE email = $1`, email)
	return scanEmployee(row)
}

const bossCols = `id, name, email, password_hash, timezone, company, position, profile_photo,
    agent_id, agent_status, agent_created_at,
    cal_access_token, cal_refresh_token, cal_connected, created_at`

func (p *pgRepo) FindBossByID(ctx context.Context, id uuid.UUID) (models.Boss, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+bossCols+` FROM bosses WHERE id = $1`, fromUUID(id))
	return scanBoss(row)
}

func (p *pgRepo) FindBossByEmail(ctx context.Context, email string) (models.Boss, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+bossCols+` FROM bosses WHERE email = $1`, email)
	return scanBoss(row)
}

func (p *pgRepo) ListEmployees(ctx context.Context) ([]models.EmployeeSummary, error) {
	slog.DebugContext(ctx, "ListEmployees")
	rows, err := p.pool.Query(ctx, `
        SELECT id, name, email, timezone, profile_photo, agent_id, agent_status, cal_connected, created_at
        FROM employees ORDER BY name`)
	if err != nil {
		slog.ErrorContext(ctx, "ListEmployees failed", "err", err)
		return nil, err
	}
	defer rows.Close()

	out := []models.EmployeeSummary{}
	for rows.Next() {
		var (
			id      pgtype.UUID
			photo   pgtype.Text
			agentID pgtype.Text
			s       models.EmployeeSummary
		)
		if err := rows.Scan(&id, &s.Name, &s.Email, &s.Timezone, &photo, &agentID, &s.AgentStatus, &s.CalendarConnected, &s.MemberSince); err != nil {
			return nil, err
		}
		s.ID = toUUID(id)
		s.ProfilePhoto = fromText(photo)
		s.AgentID = fromText(agentID)
		out = append(out, s)
	}
	slog.DebugContext(ctx, "ListEmployees ok", "count", len(out))
	return out, rows.Err()
}

// ---------------- Agent & calendar partial updates ----------------

func (p *pgRepo) AdvanceAgentCreated(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, agentID string, at time.Time) (bool, error) {
	slog.DebugContext(ctx, "AdvanceAgentCreated", "kind", string(kind), "principal_id", id.String())
	tag, err := p.pool.Exec(ctx, `
        UPDATE `+tableFor(kind)+`
        SET agent_id = $2, agent_status = $3, agent_created_at = $4
        WHERE id = $1 AND agent_status = $5`,
		fromUUID(id), agentID, string(models.AgentCreated), at, string(models.AgentNotCreated))
	if err != nil {
		slog.ErrorContext(ctx, "AdvanceAgentCreated failed", "err", err)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *pgRepo) SetCalendarConnected(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, accessToken, refreshToken string, status models.AgentStatus) error {
	slog.DebugContext(ctx, "SetCalendarConnected", "kind", string(kind), "principal_id", id.String())
	tag, err := p.pool.Exec(ctx, `
        UPDATE `+tableFor(kind)+`
        SET cal_access_token = $2, cal_refresh_token = $3, cal_connected = TRUE, agent_status = $4
        WHERE id = $1`,
		fromUUID(id), accessToken, refreshToken, string(status))
	if err != nil {
		slog.ErrorContext(ctx, "SetCalendarConnected failed", "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPrincipalNotFound
	}
	return nil
}

func (p *pgRepo) ClearCalendar(ctx context.Context, kind models.PrincipalKind, id uuid.UUID) error {
	slog.DebugContext(ctx, "ClearCalendar", "kind", string(kind), "principal_id", id.String())
	tag, err := p.pool.Exec(ctx, `
        UPDATE `+tableFor(kind)+`
        SET cal_access_token = NULL, cal_refresh_token = NULL, cal_connected = FALSE
        WHERE id = $1`, fromUUID(id))
	if err != nil {
		slog.ErrorContext(ctx, "ClearCalendar failed", "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPrincipalNotFound
	}
	return nil
}

// ---------------- Profiles ----------------

func (p *pgRepo) UpdateEmployeeProfile(ctx context.Context, id uuid.UUID, name, timezone, photo string) error {
	slog.DebugContext(ctx, "UpdateEmployeeProfile", "principal_id", id.String())
	_, err := p.pool.Exec(ctx, `
        UPDATE employees SET name = $2, timezone = $3, profile_photo = $4 WHERE id = $1`,
		fromUUID(id), name, timezone, toText(photo))
	return err
}

func (p *pgRepo) UpdateBossProfile(ctx context.Context, id uuid.UUID, name, timezone, company, position, photo string) error {
	slog.DebugContext(ctx, "UpdateBossProfile", "principal_id", id.String())
	_, err := p.pool.Exec(ctx, `
        UPDATE bosses SET name = $2, timezone = $3, company = $4, position = $5, profile_photo = $6 WHERE id = $1`,
		fromUUID(id), name, timezone, company, position, toText(photo))
	return err
}

// ---------------- Row scanning ----------------

func scanEmployee(row pgx.Row) (models.Employee, error) {
	var (
		id        pgtype.UUID
		photo     pgtype.Text
		agentID   pgtype.Text
		createdAt pgtype.Timestamptz
		access    pgtype.Text
		refresh   pgtype.Text
		e         models.Employee
	)
	err := row.Scan(&id, &e.Name, &e.Email, &e.PasswordHash, &e.Timezone, &photo,
		&agentID, &e.Agent.Status, &createdAt,
		&access, &refresh, &e.Calendar.Connected, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Employee{}, models.ErrPrincipalNotFound
		}
		return models.Employee{}, err
	}
	e.ID = toUUID(id)
	e.ProfilePhoto = fromText(photo)
	e.Agent.AgentID = fromText(agentID)
	e.Agent.CreatedAt = fromTimestamptz(createdAt)
	e.Calendar.AccessToken = fromText(access)
	e.Calendar.RefreshToken = fromText(refresh)
	return e, nil
}

func scanBoss(row pgx.Row) (models.Boss, error) {
	var (
		id        pgtype.UUID
		photo     pgtype.Text
		agentID   pgtype.Text
		createdAt pgtype.Timestamptz
		access    pgtype.Text
		refresh   pgtype.Text
		b         models.Boss
	)
	err := row.Scan(&id, &b.Name, &b.Email, &b.PasswordHash, &b.Timezone, &b.Company, &b.Position, &photo,
		&agentID, &b.Agent.Status, &createdAt,
		&access, &refresh, &b.Calendar.Connected, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Boss{}, models.ErrPrincipalNotFound
		}
		return models.Boss{}, err
	}
	b.ID = toUUID(id)
	b.ProfilePhoto = fromText(photo)
	b.Agent.AgentID = fromText(agentID)
	b.Agent.CreatedAt = fromTimestamptz(createdAt)
	b.Calendar.AccessToken = fromText(access)
	b.Calendar.RefreshToken = fromText(refresh)
	return b, nil
}

// ---------------- Helpers ----------------

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func fromUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toUUID(u pgtype.UUID) uuid.UUID {
	return uuid.UUID(u.Bytes)
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func fromText(t pgtype.Text) string {
	return t.String
}

func fromTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
