// internal/handlers/calendar/calendar_test.go
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"agenthub/internal/agent"
	"agenthub/internal/config"
	"agenthub/internal/middleware"
	"agenthub/internal/models"
	"agenthub/internal/oauth"
	"agenthub/internal/testfixtures"
)

type stubExchanger struct {
	tokens oauth.Tokens
	err    error
	calls  int
}

func (s *stubExchanger) ExchangeCode(_ context.Context, _, _ string) (oauth.Tokens, error) {
	s.calls++
	return s.tokens, s.err
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.BaseURL = "https://app.example.com"
	cfg.Google.ClientID = "cid"
	cfg.Frontend.URL = "https://front.example.com"
	return cfg
}

func newTestHandler(r *testfixtures.MemoryRepo, rt *testfixtures.FakeRuntime, ex Exchanger) *Handler {
	return New(agent.NewCoordinator(r, rt), ex, testConfig())
}

func withSession(req *http.Request, kind models.PrincipalKind, s models.Session) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), &s))
}

func TestConnectReturnsAuthURL(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	h := newTestHandler(r, testfixtures.NewFakeRuntime(), &stubExchanger{})
	emp := testfixtures.SeedEmployee(t, r)

	req := httptest.NewRequest(http.MethodGet, "/calendar/connect", nil)
	req = withSession(req, models.KindEmployee, models.Session{PrincipalID: emp.ID, Kind: models.KindEmployee})
	rec := httptest.NewRecorder()
	h.Connect(models.KindEmployee)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		AuthURL string `json:"authUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(body.AuthURL)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("redirect_uri") != "https://app.example.com/calendar/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("state") != oauth.EncodeState(models.KindEmployee, emp.ID) {
		t.Errorf("state = %q", q.Get("state"))
	}
}

func TestCallbackConnectsCalendar(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	ex := &stubExchanger{tokens: oauth.Tokens{AccessToken: "at", RefreshToken: "rt"}}
	h := newTestHandler(r, rt, ex)
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCreated}
	})

	state := oauth.EncodeState(models.KindEmployee, emp.ID)
	req := httptest.NewRequest(http.MethodGet, "/calendar/callback?code=c1&state="+url.QueryEscape(state), nil)
	rec := httptest.NewRecorder()
	h.Callback()(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://front.example.com/dashboard?success=calendar_connected") {
		t.Errorf("Location = %q", loc)
	}

	got, err := r.FindEmployeeByID(context.Background(), emp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Agent.Status != models.AgentCalendarConnected || !got.Calendar.Connected {
		t.Errorf("state after callback = %+v / %+v", got.Agent, got.Calendar)
	}
	if rt.CallCount("connect-calendar") != 1 {
		t.Errorf("connect-calendar calls = %d", rt.CallCount("connect-calendar"))
	}
}

func TestCallbackBossStateRoutesToBoss(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	ex := &stubExchanger{tokens: oauth.Tokens{AccessToken: "at", RefreshToken: "rt"}}
	h := newTestHandler(r, testfixtures.NewFakeRuntime(), ex)
	boss := testfixtures.SeedBoss(t, r, func(b *models.Boss) {
		b.Agent = models.AgentRecord{AgentID: "agent-b", Status: models.AgentCreated}
	})

	state := oauth.EncodeState(models.KindBoss, boss.ID)
	req := httptest.NewRequest(http.MethodGet, "/calendar/callback?code=c1&state="+url.QueryEscape(state), nil)
	h.Callback()(httptest.NewRecorder(), req)

	got, err := r.FindBossByID(context.Background(), boss.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Agent.Status != models.AgentActive {
		t.Errorf("boss status = %q, want active", got.Agent.Status)
	}
}

func TestCallbackErrorMarkers(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCreated}
	})
	goodState := url.QueryEscape(oauth.EncodeState(models.KindEmployee, emp.ID))

	cases := []struct {
		name   string
		query  string
		ex     *stubExchanger
		marker string
	}{
		{"denied", "error=access_denied", &stubExchanger{}, "error=calendar_denied"},
		{"missing code", "state=" + goodState, &stubExchanger{}, "error=invalid_callback"},
		{"missing state", "code=c1", &stubExchanger{}, "error=invalid_callback"},
		{"bad state", "code=c1&state=garbage", &stubExchanger{}, "error=invalid_callback"},
		{"exchange fails", "code=c1&state=" + goodState,
			&stubExchanger{err: errors.New("provider down")}, "error=token_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(r, testfixtures.NewFakeRuntime(), tc.ex)
			req := httptest.NewRequest(http.MethodGet, "/calendar/callback?"+tc.query, nil)
			rec := httptest.NewRecorder()
			h.Callback()(rec, req)
			if rec.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want redirect", rec.Code)
			}
			if loc := rec.Header().Get("Location"); !strings.Contains(loc, tc.marker) {
				t.Errorf("Location = %q, want marker %q", loc, tc.marker)
			}
		})
	}
}

func TestCallbackDoesNotRetryExchange(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	emp := testfixtures.SeedEmployee(t, r)
	ex := &stubExchanger{err: errors.New("invalid_grant")}
	h := newTestHandler(r, testfixtures.NewFakeRuntime(), ex)

	state := url.QueryEscape(oauth.EncodeState(models.KindEmployee, emp.ID))
	req := httptest.NewRequest(http.MethodGet, "/calendar/callback?code=c1&state="+state, nil)
	h.Callback()(httptest.NewRecorder(), req)
	if ex.calls != 1 {
		t.Errorf("exchange calls = %d, want 1 (codes are single-use)", ex.calls)
	}
}

func TestCallbackRejectsUnprovisionedAgent(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	emp := testfixtures.SeedEmployee(t, r) // agent still not_created
	ex := &stubExchanger{tokens: oauth.Tokens{AccessToken: "at", RefreshToken: "rt"}}
	h := newTestHandler(r, testfixtures.NewFakeRuntime(), ex)

	state := url.QueryEscape(oauth.EncodeState(models.KindEmployee, emp.ID))
	req := httptest.NewRequest(http.MethodGet, "/calendar/callback?code=c1&state="+state, nil)
	rec := httptest.NewRecorder()
	h.Callback()(rec, req)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=callback_failed") {
		t.Errorf("Location = %q, want callback_failed", loc)
	}

	got, _ := r.FindEmployeeByID(context.Background(), emp.ID)
	if got.Agent.Status != models.AgentNotCreated || got.Calendar.Connected {
		t.Errorf("record mutated despite rejection: %+v / %+v", got.Agent, got.Calendar)
	}
}

func TestDisconnect(t *testing.T) {
	r := testfixtures.NewMemoryRepo()
	rt := testfixtures.NewFakeRuntime()
	h := newTestHandler(r, rt, &stubExchanger{})
	emp := testfixtures.SeedEmployee(t, r, func(e *models.Employee) {
		e.Agent = models.AgentRecord{AgentID: "agent-1", Status: models.AgentCalendarConnected}
		e.Calendar = models.CalendarLink{AccessToken: "at", RefreshToken: "rt", Connected: true}
	})

	req := httptest.NewRequest(http.MethodPost, "/calendar/disconnect", nil)
	req = withSession(req, models.KindEmployee, models.Session{PrincipalID: emp.ID, Kind: models.KindEmployee})
	rec := httptest.NewRecorder()
	h.Disconnect(models.KindEmployee)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	got, _ := r.FindEmployeeByID(context.Background(), emp.ID)
	if got.Calendar.Connected || got.Calendar.AccessToken != "" {
		t.Errorf("calendar not cleared: %+v", got.Calendar)
	}
	if got.Agent.Status != models.AgentCalendarConnected {
		t.Errorf("status regressed to %q on disconnect", got.Agent.Status)
	}
	if rt.CallCount("disconnect-calendar") != 1 {
		t.Errorf("disconnect-calendar calls = %d", rt.CallCount("disconnect-calendar"))
	}
}
