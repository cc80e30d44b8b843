// internal/testfixtures/runtime.go
package testfixtures

import (
	"context"
	"encoding/json"
	"sync"

	"agenthub/internal/runtime"
)

// FakeRuntime is a scripted stand-in for the external agent runtime. By
// default every operation succeeds; tests queue errors per operation to
// exercise retry and degradation paths.
type FakeRuntime struct {
	mu sync.Mutex

	// Calls records every operation invoked, in order.
	Calls []string

	// AgentID is returned by the create operations.
	AgentID string

	// ChatResponse is returned by the chat operations.
	ChatResponse string

	// errs holds queued errors keyed by operation name; each invocation
	// pops one.
	errs map[string][]error
}

func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		AgentID:      "agent-test-1",
		ChatResponse: "on it",
		errs:         map[string][]error{},
	}
}

// FailNext queues n errors for the named operation.
func (f *FakeRuntime) FailNext(op string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.errs[op] = append(f.errs[op], err)
	}
}

// CallCount reports how many times an operation ran.
func (f *FakeRuntime) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *FakeRuntime) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op)
	if queued := f.errs[op]; len(queued) > 0 {
		err := queued[0]
		f.errs[op] = queued[1:]
		return err
	}
	return nil
}

// Unreachable builds the transport-failure error the real client returns.
func Unreachable(op string) error {
	return &runtime.Error{Kind: runtime.KindUnreachable, Op: op, Err: context.DeadlineExceeded}
}

// Rejected builds the non-success error the real client returns.
func Rejected(op string, status int) error {
	return &runtime.Error{Kind: runtime.KindRejected, Op: op, Status: status}
}

func (f *FakeRuntime) CreateAgent(_ context.Context, _, _, _, _ string) (runtime.CreateAgentResult, error) {
	if err := f.record("create-agent"); err != nil {
		return runtime.CreateAgentResult{}, err
	}
	return runtime.CreateAgentResult{AgentID: f.AgentID}, nil
}

func (f *FakeRuntime) CreateBossAgent(_ context.Context, _, _, _, _, _, _ string) (runtime.CreateAgentResult, error) {
	if err := f.record("create-boss-agent"); err != nil {
		return runtime.CreateAgentResult{}, err
	}
	return runtime.CreateAgentResult{AgentID: f.AgentID}, nil
}

func (f *FakeRuntime) Chat(_ context.Context, _, _ string) (runtime.ChatResult, error) {
	if err := f.record("chat"); err != nil {
		return runtime.ChatResult{}, err
	}
	return runtime.ChatResult{Success: true, Response: f.ChatResponse, AgentID: f.AgentID}, nil
}

func (f *FakeRuntime) BossChat(_ context.Context, _, _ string) (runtime.ChatResult, error) {
	if err := f.record("boss-chat"); err != nil {
		return runtime.ChatResult{}, err
	}
	return runtime.ChatResult{Success: true, Response: f.ChatResponse, AgentID: f.AgentID}, nil
}

func (f *FakeRuntime) AgentStatus(_ context.Context, _ string) (runtime.AgentStatusResult, error) {
	if err := f.record("agent-status"); err != nil {
		return runtime.AgentStatusResult{}, err
	}
	return runtime.AgentStatusResult{Agent: json.RawMessage(`{"status":"ready"}`)}, nil
}

func (f *FakeRuntime) ConnectCalendar(_ context.Context, _, _, _ string) error {
	return f.record("connect-calendar")
}

func (f *FakeRuntime) DisconnectCalendar(_ context.Context, _ string) error {
	return f.record("disconnect-calendar")
}

func (f *FakeRuntime) A2ATest(_ context.Context, _, _, message string) (runtime.A2AResult, error) {
	if err := f.record("a2a-test"); err != nil {
		return runtime.A2AResult{}, err
	}
	raw, _ := json.Marshal(map[string]any{"success": true, "employee_response": "available", "message": message})
	return runtime.A2AResult{Success: true, EmployeeResponse: "available", Raw: raw}, nil
}

func (f *FakeRuntime) A2AMessage(_ context.Context, _, _, _ string) (runtime.A2AResult, error) {
	if err := f.record("a2a-message"); err != nil {
		return runtime.A2AResult{}, err
	}
	raw := json.RawMessage(`{"success":true,"delivered":true}`)
	return runtime.A2AResult{Success: true, Raw: raw}, nil
}

func (f *FakeRuntime) AssignTask(_ context.Context, _, _, _, _, _ string) (runtime.A2AResult, error) {
	if err := f.record("assign-task"); err != nil {
		return runtime.A2AResult{}, err
	}
	raw := json.RawMessage(`{"success":true,"assigned":true}`)
	return runtime.A2AResult{Success: true, Raw: raw}, nil
}

func (f *FakeRuntime) TeamPerformance(_ context.Context, _ string, _ []map[string]any) (json.RawMessage, error) {
	if err := f.record("team-performance"); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"averageProductivity":90}`), nil
}
