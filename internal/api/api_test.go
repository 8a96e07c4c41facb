package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/coach"
	"github.com/sarahkitay/cute-schedule/internal/finance"
	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/notify"
	"github.com/sarahkitay/cute-schedule/internal/patterns"
	"github.com/sarahkitay/cute-schedule/internal/reminder"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
	"github.com/sarahkitay/cute-schedule/internal/store"
	"github.com/sarahkitay/cute-schedule/internal/testutil"
)

// testEnv bundles a fully wired in-memory server with a controllable clock.
type testEnv struct {
	srv       *Server
	handler   http.Handler
	kv        store.KV
	day       *schedule.Store
	analytics *patterns.Engine
	policy    *coach.Policy
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		kv:  store.NewInMemoryStore(),
		now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	day, err := schedule.NewStore(env.kv, schedule.WithClock(clock), schedule.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	analytics, err := patterns.NewEngine(env.kv)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	policy, err := coach.NewPolicy(env.kv, coach.WithClock(clock))
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	coachSvc := coach.NewCoach(policy, coach.NewGateway(nil), clock)
	ledger, err := finance.NewLedger(env.kv)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	push, err := notify.NewPushService(env.kv, notify.WithVAPIDKeys("test-pub", "test-priv"))
	if err != nil {
		t.Fatalf("NewPushService() error = %v", err)
	}
	reminders := reminder.NewScheduler(day, notify.NewLogNotifier(), reminder.WithClock(clock))
	sprint := reminder.NewSprint(nil, reminder.WithSprintClock(clock))

	srv := NewServer(env.kv, day, analytics, coachSvc, ledger, push, reminders, sprint)
	srv.clock = clock
	t.Cleanup(reminders.Stop)

	env.srv = srv
	env.handler = srv.Handler()
	env.day = day
	env.analytics = analytics
	env.policy = policy
	return env
}

func (env *testEnv) do(t *testing.T, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.CreateHTTPRequest(t, method, url, body)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/health", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	testutil.AssertJSONResponse(t, rr, models.StatusOK)

	rr = env.do(t, http.MethodPost, "/health", nil)
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "health POST")
}

func TestDayViewAutoCoachFirstOpen(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/day", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "day GET")
	resp := testutil.AssertJSONResponse(t, rr, models.StatusOK)

	result := resp["result"].(map[string]interface{})
	if result["day"] != "2025-06-01" {
		t.Errorf("day = %v, want 2025-06-01", result["day"])
	}
	// First open of the day: the coach rides along, on the fallback path
	// since no gateway is configured.
	ac, ok := result["auto_coach"].(map[string]interface{})
	if !ok {
		t.Fatal("first open should include auto_coach")
	}
	if ac["reason"] != "first_open" {
		t.Errorf("auto_coach.reason = %v, want first_open", ac["reason"])
	}
	coachResp := ac["response"].(map[string]interface{})
	if coachResp["fallback"] != true {
		t.Error("unconfigured gateway should produce a fallback response")
	}

	// Second request the same day stays quiet.
	env.now = env.now.Add(2 * time.Hour)
	rr = env.do(t, http.MethodGet, "/day", nil)
	resp = testutil.AssertJSONResponse(t, rr, models.StatusOK)
	result = resp["result"].(map[string]interface{})
	if _, ok := result["auto_coach"]; ok {
		t.Error("second open the same day should not auto-coach")
	}
}

func TestDayViewNotTodaySkipsCoach(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/day?date=2025-06-05", nil)
	resp := testutil.AssertJSONResponse(t, rr, models.StatusOK)
	result := resp["result"].(map[string]interface{})
	if _, ok := result["auto_coach"]; ok {
		t.Error("viewing another day should not auto-coach")
	}

	rr = env.do(t, http.MethodGet, "/day?date=tomorrow", nil)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "day with bad date")
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	add := map[string]interface{}{
		"day": "2025-06-01", "hour": "14:00", "category": "Personal",
		"text": "water the plants",
	}
	rr := env.do(t, http.MethodPost, "/tasks", add)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "add task")
	resp := testutil.AssertJSONResponse(t, rr, models.StatusOK)
	task := resp["result"].(map[string]interface{})
	taskID := task["id"].(string)
	if taskID == "" {
		t.Fatal("add should return a task ID")
	}

	ref := map[string]interface{}{
		"day": "2025-06-01", "hour": "14:00", "category": "Personal", "task_id": taskID,
	}
	rr = env.do(t, http.MethodPost, "/tasks/toggle", ref)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "toggle task")

	// The completion hook fed the pattern log.
	if events := env.analytics.Events(); len(events) != 1 || events[0].TaskID != taskID {
		t.Errorf("pattern log events = %v, want one for %s", events, taskID)
	}
	// And the toggle refreshed the stuck-detector.
	if env.policy.Meta().LastProgressAt.IsZero() {
		t.Error("toggle should refresh LastProgressAt")
	}

	rr = env.do(t, http.MethodGet, "/day?date=2025-06-01", nil)
	resp = testutil.AssertJSONResponse(t, rr, models.StatusOK)
	result := resp["result"].(map[string]interface{})
	prog := result["progress"].(map[string]interface{})
	if prog["total"].(float64) != 1 || prog["done"].(float64) != 1 || prog["pct"].(float64) != 100 {
		t.Errorf("progress = %v, want 1/1 100%%", prog)
	}
	if result["starred"] != true {
		t.Error("a fully done day should be starred")
	}

	// Energy cycles MEDIUM -> HEAVY.
	rr = env.do(t, http.MethodPost, "/tasks/energy", ref)
	resp = testutil.AssertJSONResponse(t, rr, models.StatusOK)
	if got := resp["result"].(map[string]interface{})["energy_level"]; got != "HEAVY" {
		t.Errorf("energy_level = %v, want HEAVY", got)
	}

	rr = env.do(t, http.MethodPost, "/tasks/delete", ref)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "delete task")
	rr = env.do(t, http.MethodPost, "/tasks/delete", ref)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "delete missing task")
}

func TestAddTaskValidation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/tasks", map[string]interface{}{
		"day": "2025-06-01", "hour": "14:00", "category": "Personal", "text": "   ",
	})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "empty text")

	rr = env.do(t, http.MethodPost, "/tasks", map[string]interface{}{
		"day": "June 1", "hour": "14:00", "category": "Personal", "text": "x",
	})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "bad day key")

	rr = env.do(t, http.MethodPost, "/tasks", map[string]interface{}{
		"day": "2025-06-01", "hour": "14:00", "category": "Work", "text": "x",
	})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "unknown category")

	rr = env.do(t, http.MethodPost, "/tasks", map[string]interface{}{
		"day": "2025-06-01", "hour": "14:00", "category": "Personal", "text": "x", "repeat": "HOURLY",
	})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "unknown repeat")
}

func TestMoveTomorrowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/tasks", map[string]interface{}{
		"day": "2025-06-01", "hour": "14:00", "category": "RHEA", "text": "write report",
	})
	resp := testutil.AssertJSONResponse(t, rr, models.StatusOK)
	taskID := resp["result"].(map[string]interface{})["id"].(string)

	rr = env.do(t, http.MethodPost, "/tasks/move-tomorrow", map[string]interface{}{
		"day": "2025-06-01", "hour": "14:00", "category": "RHEA", "task_id": taskID,
	})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "move tomorrow")
	resp = testutil.AssertJSONResponse(t, rr, models.StatusOK)
	result := resp["result"].(map[string]interface{})
	if result["day"] != "2025-06-02" {
		t.Errorf("moved day = %v, want 2025-06-02", result["day"])
	}
	moved := result["task"].(map[string]interface{})
	if moved["id"] != taskID {
		t.Error("move should preserve the task identity")
	}
}

func TestMoodAndCapacity(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/day/mood", map[string]string{"day": "2025-06-01", "mood": "calm"})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "set mood")

	rr = env.do(t, http.MethodPost, "/day/mood", map[string]string{"day": "2025-06-01", "mood": "angry"})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "bad mood")

	rr = env.do(t, http.MethodPost, "/day/capacity", map[string]string{"day": "2025-06-01", "capacity": "LOW"})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "set capacity")

	rr = env.do(t, http.MethodPost, "/day/capacity", map[string]string{"day": "2025-06-01", "capacity": "HUGE"})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "bad capacity")
}
