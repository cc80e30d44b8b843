// internal/handlers/agents/agents_test.go
package agents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"agenthub/internal/agent"
	"agenthub/internal/middleware"
	"agenthub/internal/models"
	"agenthub/internal/testfixtures"
)

func newTestHandler(r *testfixtures.MemoryRepo, rt *testfixtures.FakeRuntime) *Handler {
	coord := agent.NewCoordinator(r, rt)
	return New(r, coord, agent.NewDispatcher(coord, rt))
}

func sessionRequest(method, path, body string, kind models.PrincipalKind, id uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	s := models.Session{PrincipalID: id, Kind: kind}
	return req.WithContext(middleware.WithSession(req.Context(), &s))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestChatSuccess(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	rt.ChatResponse = "meeting moved to 3"
	h := newTestHandler(r, rt)
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCreated}
	})

	rec := httptest.NewRecorder()
	h.Chat(models.KindEmployee)(rec, sessionRequest(
		http.MethodPost, "/agent/chat", `{"message":"reschedule my 2pm"}`, models.KindEmployee, emp.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["response"] != "meeting moved to 3" {
		t.Errorf("response = %v", body["response"])
	}
	if body["timestamp"] == nil {
		t.Error("timestamp missing")
	}
}

func TestChatNotProvisionedIs404(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	h := newTestHandler(r, rt)
	emp := testfixtures.SeedEmployee(t, r)

	rec := httptest.NewRecorder()
	h.Chat(models.KindEmployee)(rec, sessionRequest(
		http.MethodPost, "/agent/chat", `{"message":"hello"}`, models.KindEmployee, emp.ID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "AI Agent not found" {
		t.Errorf("error = %v", body["error"])
	}
	if rt.CallCount("chat") != 0 {
		t.Error("runtime contacted for a not_created agent")
	}
}

func TestChatUnknownPrincipalIs404(t *testing.T) {
	h := newTestHandler(testfixtures.NewMemoryRepo(), testfixtures.NewFakeRuntime())
	rec := httptest.NewRecorder()
	h.Chat(models.KindEmployee)(rec, sessionRequest(
		http.MethodPost, "/agent/chat", `{"message":"hello"}`, models.KindEmployee, uuid.New()))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChatEmptyMessageIs400(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	h := newTestHandler(r, testfixtures.NewFakeRuntime())
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCreated}
	})

	for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`} {
		rec := httptest.NewRecorder()
		h.Chat(models.KindEmployee)(rec, sessionRequest(
			http.MethodPost, "/agent/chat", body, models.KindEmployee, emp.ID))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Chat(%s) status = %d, want 400", body, rec.Code)
		}
	}
}

func TestChatRuntimeFailureIs502(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	h := newTestHandler(r, rt)
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCreated}
	})

	rt.FailNext("chat", 1, testfixtures.Unreachable("chat"))
	rec := httptest.NewRecorder()
	h.Chat(models.KindEmployee)(rec, sessionRequest(
		http.MethodPost, "/agent/chat", `{"message":"hello"}`, models.KindEmployee, emp.ID))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestBossChatRoutesToBossEndpoint(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	h := newTestHandler(r, rt)
	boss := testfixtures.SeedBoss(t, r, func(b *models.Boss) {
		b.Agent = models.AgentRecord{AgentID: "agent-b", Status: models.AgentActive}
	})

	rec := httptest.NewRecorder()
	h.Chat(models.KindBoss)(rec, sessionRequest(
		http.MethodPost, "/boss/agent/chat", `{"message":"team status"}`, models.KindBoss, boss.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if rt.CallCount("boss-chat") != 1 || rt.CallCount("chat") != 0 {
		t.Errorf("calls = %v, want exactly one boss-chat", rt.Calls)
	}
}

func TestStatusReportsLocalAndRuntimeState(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	h := newTestHandler(r, rt)
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCalendarConnected}
		e.Calendar = models.CalendarLink{AccessToken: "at", RefreshToken: "rt", Connected: true}
	})

	rec := httptest.NewRecorder()
	h.Status(models.KindEmployee)(rec, sessionRequest(
		http.MethodGet, "/agent/status", "", models.KindEmployee, emp.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	user, _ := body["user"].(map[string]any)
	aiAgent, _ := user["aiAgent"].(map[string]any)
	if aiAgent["status"] != string(models.AgentCalendarConnected) {
		t.Errorf("aiAgent = %v", aiAgent)
	}
	cal, _ := user["googleCalendar"].(map[string]any)
	if cal["connected"] != true {
		t.Errorf("googleCalendar = %v", cal)
	}
	if len(cal) != 1 {
		t.Errorf("googleCalendar leaks fields beyond the connected flag: %v", cal)
	}
	if body["mcpAgentStatus"] == nil {
		t.Error("runtime agent view missing while runtime is healthy")
	}
}

func TestStatusSurvivesRuntimeOutage(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	h := newTestHandler(r, rt)
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCreated}
	})

	rt.FailNext("agent-status", 1, testfixtures.Unreachable("agent-status"))
	rec := httptest.NewRecorder()
	h.Status(models.KindEmployee)(rec, sessionRequest(
		http.MethodGet, "/agent/status", "", models.KindEmployee, emp.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, local state must be reported regardless", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["mcpAgentStatus"] != nil {
		t.Errorf("mcpAgentStatus = %v, want null during outage", body["mcpAgentStatus"])
	}
	user, _ := body["user"].(map[string]any)
	aiAgent, _ := user["aiAgent"].(map[string]any)
	if aiAgent["status"] != string(models.AgentCreated) {
		t.Errorf("local status = %v", aiAgent["status"])
	}
}

func TestBossStatusUsesBossKey(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	h := newTestHandler(r, testfixtures.NewFakeRuntime())
	boss := testfixtures.SeedBoss(t, r, func(b *models.Boss) {
		b.Agent = models.AgentRecord{AgentID: "agent-b", Status: models.AgentActive}
	})

	rec := httptest.NewRecorder()
	h.Status(models.KindBoss)(rec, sessionRequest(
		http.MethodGet, "/boss/agent/status", "", models.KindBoss, boss.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	bossView, _ := body["boss"].(map[string]any)
	if bossView["company"] != boss.Company {
		t.Errorf("boss view = %v", bossView)
	}
	bossAgent, _ := bossView["bossAgent"].(map[string]any)
	if bossAgent["status"] != string(models.AgentActive) {
		t.Errorf("bossAgent = %v", bossAgent)
	}
}
