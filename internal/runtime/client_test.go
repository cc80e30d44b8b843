// internal/runtime/client_test.go
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateAgentParsesResult(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/create-agent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"agentId": "agent-42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	result, err := c.CreateAgent(context.Background(), "u1", "Ann", "ann@x.com", "UTC")
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if result.AgentID != "agent-42" {
		t.Errorf("agentId = %q", result.AgentID)
	}
	if gotBody["userId"] != "u1" || gotBody["timezone"] != "UTC" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestCreateBossAgentCarriesCompany(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"agentId": "agent-b"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.CreateBossAgent(context.Background(), "b1", "Bea", "bea@corp.com", "UTC", "Corp", "CTO"); err != nil {
		t.Fatalf("CreateBossAgent: %v", err)
	}
	if gotBody["bossId"] != "b1" || gotBody["company"] != "Corp" || gotBody["position"] != "CTO" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestNonSuccessStatusIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent exists", http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.CreateAgent(context.Background(), "u1", "Ann", "ann@x.com", "UTC")
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if rerr.Kind != KindRejected || rerr.Status != http.StatusConflict {
		t.Errorf("error = %+v, want rejected/409", rerr)
	}
}

func TestTransportFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, time.Second)
	_, err := c.CreateAgent(context.Background(), "u1", "Ann", "ann@x.com", "UTC")
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if rerr.Kind != KindUnreachable {
		t.Errorf("kind = %q, want unreachable", rerr.Kind)
	}
}

func TestTimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond)
	_, err := c.CreateAgent(context.Background(), "u1", "Ann", "ann@x.com", "UTC")
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if rerr.Kind != KindUnreachable {
		t.Errorf("kind = %q, want unreachable", rerr.Kind)
	}
}

func TestChatSuccessFalseIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "agent busy"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Chat(context.Background(), "u1", "hello")
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if rerr.Kind != KindRejected || rerr.Body != "agent busy" {
		t.Errorf("error = %+v", rerr)
	}
}

func TestChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "response": "done", "agentId": "agent-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	result, err := c.Chat(context.Background(), "u1", "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.Response != "done" || result.AgentID != "agent-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestA2ATestKeepsRawEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":           true,
			"employee_response": "available",
			"protocol":          "a2a/v1",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	result, err := c.A2ATest(context.Background(), "b1", "u1", "ping")
	if err != nil {
		t.Fatalf("A2ATest: %v", err)
	}
	if result.EmployeeResponse != "available" {
		t.Errorf("employee_response = %q", result.EmployeeResponse)
	}
	var raw map[string]any
	if err := json.Unmarshal(result.Raw, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["protocol"] != "a2a/v1" {
		t.Error("runtime-specific envelope field lost at the boundary")
	}
}

func TestConnectCalendarSendsCredentials(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.ConnectCalendar(context.Background(), "u1", "tok-a", "tok-r"); err != nil {
		t.Fatalf("ConnectCalendar: %v", err)
	}
	creds, _ := gotBody["credentials"].(map[string]any)
	if creds["accessToken"] != "tok-a" || creds["refreshToken"] != "tok-r" {
		t.Errorf("credentials = %v", creds)
	}
}
