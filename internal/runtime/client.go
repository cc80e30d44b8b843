// internal/runtime/client.go
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrorKind classifies a failed runtime call for retry decisions.
type ErrorKind string

const (
	// KindUnreachable covers transport failures and timeouts; callers with
	// a retry policy may retry these.
	KindUnreachable ErrorKind = "unreachable"
	// KindRejected covers non-2xx responses and success=false bodies; the
	// runtime saw the request and refused it.
	KindRejected ErrorKind = "rejected"
)

// Error is the tagged failure every runtime response is parsed into at
// the boundary, instead of passing untyped bodies upward.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("runtime %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("runtime %s: %s: status=%d body=%q", e.Op, e.Kind, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the external agent runtime. It holds no mutable state
// beyond the injected base URL and HTTP client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a runtime client with a bounded per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type CreateAgentResult struct {
	AgentID string `json:"agentId"`
}

type ChatResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	AgentID  string `json:"agentId"`
	Error    string `json:"error"`
}

type AgentStatusResult struct {
	Agent json.RawMessage `json:"agent"`
}

type ackResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// A2AResult is the runtime's a2a envelope. The runtime attaches
// operation-specific fields beyond the employee response, so the raw
// envelope is carried alongside the parsed ones.
type A2AResult struct {
	Success          bool            `json:"success"`
	EmployeeResponse string          `json:"employee_response"`
	Raw              json.RawMessage `json:"-"`
}

// MarshalJSON emits the runtime's raw envelope when present so no field
// the runtime attached is lost on the way out.
func (r A2AResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type alias A2AResult
	return json.Marshal(alias(r))
}

// CreateAgent provisions (or idempotently re-ensures) an employee agent.
func (c *Client) CreateAgent(ctx context.Context, principalID, name, email, timezone string) (CreateAgentResult, error) {
	var out CreateAgentResult
	err := c.post(ctx, "create-agent", map[string]any{
		"userId":   principalID,
		"name":     name,
		"email":    email,
		"timezone": timezone,
	}, &out)
	return out, err
}

// CreateBossAgent provisions a boss agent with company context.
func (c *Client) CreateBossAgent(ctx context.Context, principalID, name, email, timezone, company, position string) (CreateAgentResult, error) {
	var out CreateAgentResult
	err := c.post(ctx, "create-boss-agent", map[string]any{
		"bossId":   principalID,
		"name":     name,
		"email":    email,
		"timezone": timezone,
		"company":  company,
		"position": position,
	}, &out)
	return out, err
}

func (c *Client) Chat(ctx context.Context, principalID, message string) (ChatResult, error) {
	return c.chat(ctx, "chat", "userId", principalID, message)
}

func (c *Client) BossChat(ctx context.Context, principalID, message string) (ChatResult, error) {
	return c.chat(ctx, "boss-chat", "bossId", principalID, message)
}

func (c *Client) chat(ctx context.Context, op, idField, principalID, message string) (ChatResult, error) {
	var out ChatResult
	err := c.post(ctx, op, map[string]any{
		idField:   principalID,
		"message": message,
	}, &out)
	if err != nil {
		return ChatResult{}, err
	}
	if !out.Success {
		return ChatResult{}, &Error{Kind: KindRejected, Op: op, Status: http.StatusOK, Body: out.Error}
	}
	return out, nil
}

// AgentStatus fetches the runtime-side view of a principal's agent.
func (c *Client) AgentStatus(ctx context.Context, principalID string) (AgentStatusResult, error) {
	var out AgentStatusResult
	err := c.get(ctx, "agent-status/"+principalID, &out)
	return out, err
}

func (c *Client) ConnectCalendar(ctx context.Context, principalID, accessToken, refreshToken string) error {
	var out ackResult
	err := c.post(ctx, "connect-calendar", map[string]any{
		"userId": principalID,
		"credentials": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
	}, &out)
	if err != nil {
		return err
	}
	if !out.Success {
		return &Error{Kind: KindRejected, Op: "connect-calendar", Status: http.StatusOK, Body: out.Error}
	}
	return nil
}

func (c *Client) DisconnectCalendar(ctx context.Context, principalID string) error {
	var out ackResult
	err := c.post(ctx, "disconnect-calendar", map[string]any{"userId": principalID}, &out)
	if err != nil {
		return err
	}
	if !out.Success {
		return &Error{Kind: KindRejected, Op: "disconnect-calendar", Status: http.StatusOK, Body: out.Error}
	}
	return nil
}

// A2ATest runs the boss->employee delegation diagnostic. One-shot, never
// retried here.
func (c *Client) A2ATest(ctx context.Context, bossID, employeeID, message string) (A2AResult, error) {
	return c.a2a(ctx, "a2a-test", map[string]any{
		"bossId":     bossID,
		"employeeId": employeeID,
		"message":    message,
	})
}

func (c *Client) A2AMessage(ctx context.Context, bossID, employeeID, message string) (A2AResult, error) {
	return c.a2a(ctx, "a2a-message", map[string]any{
		"bossId":     bossID,
		"employeeId": employeeID,
		"message":    message,
	})
}

func (c *Client) AssignTask(ctx context.Context, bossID, employeeID, task, deadline, priority string) (A2AResult, error) {
	return c.a2a(ctx, "assign-task", map[string]any{
		"bossId":     bossID,
		"employeeId": employeeID,
		"task":       task,
		"deadline":   deadline,
		"priority":   priority,
	})
}

func (c *Client) a2a(ctx context.Context, op string, body map[string]any) (A2AResult, error) {
	raw, err := c.postRaw(ctx, op, body)
	if err != nil {
		return A2AResult{}, err
	}
	out := A2AResult{Success: true, Raw: raw}
	// The envelope fields are best-effort; the raw body is authoritative.
	_ = json.Unmarshal(raw, &out)
	out.Raw = raw
	return out, nil
}

// TeamPerformance asks the runtime for aggregate team data. Callers treat
// failures as a missing section, not an error.
func (c *Client) TeamPerformance(ctx context.Context, bossID string, employees []map[string]any) (json.RawMessage, error) {
	return c.postRaw(ctx, "team-performance", map[string]any{
		"bossId":    bossID,
		"employees": employees,
	})
}

// ---------------- transport ----------------

func (c *Client) post(ctx context.Context, op string, body map[string]any, out any) error {
	raw, err := c.postRaw(ctx, op, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindRejected, Op: op, Status: http.StatusOK, Body: string(raw), Err: err}
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, op string, body map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindRejected, Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindRejected, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return &Error{Kind: KindRejected, Op: path, Err: err}
	}
	raw, err := c.do(path, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindRejected, Op: path, Status: http.StatusOK, Body: string(raw), Err: err}
	}
	return nil
}

func (c *Client) do(op string, req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		slog.ErrorContext(req.Context(), "runtime call failed", "op", op, "err", err)
		return nil, &Error{Kind: KindUnreachable, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB cap
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.ErrorContext(req.Context(), "runtime rejected call", "op", op, "status", resp.StatusCode)
		return nil, &Error{Kind: KindRejected, Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
