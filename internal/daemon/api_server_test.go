package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"postpilot/internal/api"
	"postpilot/internal/config"
	"postpilot/internal/content"
	"postpilot/internal/coordination"
	"postpilot/internal/dispatch"
	"postpilot/internal/logging"
	"postpilot/internal/platform"
	"postpilot/internal/publish"
	"postpilot/internal/schedule"
	"postpilot/internal/store"
	"postpilot/internal/testsupport"
)

type heldLocker struct{}

func (heldLocker) Acquire(context.Context) (coordination.Release, error) {
	return nil, coordination.ErrLockHeld
}

func (heldLocker) Describe() string { return "held" }

func newTestDaemon(t *testing.T, cfg *config.Config, locker coordination.Locker) *Daemon {
	t.Helper()
	repos := testsupport.MustOpenRepos(t, cfg)
	svc, err := dispatch.New(dispatch.Settings{TickInterval: time.Hour, Location: time.UTC}, dispatch.Dependencies{
		Repos:     repos,
		Publisher: publish.NewSet(),
		Locker:    locker,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	d, err := New(cfg, repos, svc, nil, logging.NewNop(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func testServer(t *testing.T, d *Daemon, token string) http.Handler {
	t.Helper()
	srv := &apiServer{
		daemon: d,
		now:    func() time.Time { return time.Date(2026, 10, 19, 9, 2, 0, 0, time.UTC) },
	}
	return srv.routes(token)
}

func serve(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAPIServerStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)

	w := serve(t, testServer(t, d, ""), http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Running {
		t.Fatal("expected stopped daemon")
	}
	if resp.Storage != "memory" || resp.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestAPIServerSchedules(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)
	if _, err := d.repos.Schedules.Add(context.Background(), schedule.WeeklySchedule{
		PlatformID: platform.LinkedIn,
		DayOfWeek:  schedule.Monday,
		Time:       "09:30",
		Enabled:    true,
	}); err != nil {
		t.Fatalf("add schedule: %v", err)
	}

	w := serve(t, testServer(t, d, ""), http.MethodGet, "/api/schedules", nil)
	var resp api.ScheduleListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Schedules) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(resp.Schedules))
	}
	if got := resp.Schedules[0].NextFire; got != "2026-10-19T09:30:00.000Z" {
		t.Fatalf("unexpected next fire %q", got)
	}
}

func TestAPIServerRecordsFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)
	ctx := context.Background()
	for _, p := range []string{"devTo", "twitter"} {
		if _, err := d.repos.Records.Add(ctx, content.Record{ContentID: "c1", Platform: p, Status: content.RecordPublished}); err != nil {
			t.Fatalf("add record: %v", err)
		}
	}
	h := testServer(t, d, "")

	w := serve(t, h, http.MethodGet, "/api/records?platform=devto", nil)
	var resp api.RecordListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].Platform != "devTo" {
		t.Fatalf("unexpected records %+v", resp.Records)
	}

	if w := serve(t, h, http.MethodGet, "/api/records?status=bogus", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", w.Code)
	}
	if w := serve(t, h, http.MethodGet, "/api/records?limit=-1", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestAPIServerCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)
	if _, err := d.repos.Counters.IncrementIfBelow(context.Background(), platform.Twitter, "2026-10-19", 3); err != nil {
		t.Fatalf("increment: %v", err)
	}

	w := serve(t, testServer(t, d, ""), http.MethodGet, "/api/counters", nil)
	var resp api.CounterListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Counters) != 1 || resp.Counters[0].Count != 1 {
		t.Fatalf("unexpected counters %+v", resp.Counters)
	}
}

func TestAPIServerTick(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := testServer(t, newTestDaemon(t, cfg, nil), "")

	w := serve(t, h, http.MethodPost, "/api/tick", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.TickResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Tick.TickID == "" {
		t.Fatal("expected tick id")
	}

	if w := serve(t, h, http.MethodGet, "/api/tick", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET tick, got %d", w.Code)
	}
}

func TestAPIServerTickConflictWhenLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := testServer(t, newTestDaemon(t, cfg, heldLocker{}), "")

	if w := serve(t, h, http.MethodPost, "/api/tick", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestAPIServerRequiresBearerToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := testServer(t, newTestDaemon(t, cfg, nil), "secret")

	if w := serve(t, h, http.MethodGet, "/api/status", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	wrong := http.Header{"Authorization": []string{"Bearer nope"}}
	if w := serve(t, h, http.MethodGet, "/api/status", wrong); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	right := http.Header{"Authorization": []string{"Bearer secret"}}
	if w := serve(t, h, http.MethodGet, "/api/status", right); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestRecordFilterDefaultsLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/records?date=2026-10-19&status=FAILED", nil)
	filter, err := recordFilterFromQuery(req)
	if err != nil {
		t.Fatalf("recordFilterFromQuery: %v", err)
	}
	want := store.RecordFilter{Date: "2026-10-19", Status: content.RecordFailed, Limit: defaultRecordLimit}
	if filter != want {
		t.Fatalf("filter = %+v, want %+v", filter, want)
	}
}
