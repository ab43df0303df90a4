package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"postpilot/internal/api"
	"postpilot/internal/platform"
	"postpilot/internal/schedule"
)

func listSchedulesJSON(t *testing.T, env *cliTestEnv, args ...string) []api.Schedule {
	t.Helper()
	out := mustRunCLI(t, env, append([]string{"schedule", "list", "--json"}, args...)...)
	var resp api.ScheduleListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode schedule list: %v\n%s", err, out)
	}
	return resp.Schedules
}

func TestScheduleLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "schedule", "list")
	requireContains(t, out, "No schedules configured")

	out = mustRunCLI(t, env, "schedule", "add", "--platform", "devto", "--day", "mon", "--time", "9:00")
	requireContains(t, out, "(Dev.to monday 09:00)")
	id := addedID(t, out, "Added schedule ")

	mustRunCLI(t, env, "schedule", "add", "-p", "twitter", "-d", "friday", "-t", "17:30", "--disabled")

	out = mustRunCLI(t, env, "schedule", "list")
	requireContains(t, out, "Dev.to")
	requireContains(t, out, "Twitter/X")
	requireContains(t, out, "17:30")

	items := listSchedulesJSON(t, env, "--platform", "devTo")
	if len(items) != 1 || items[0].ID != id || !items[0].Enabled {
		t.Fatalf("unexpected devTo schedules %+v", items)
	}
	if items[0].NextFire == "" {
		t.Fatal("expected next fire for enabled slot")
	}

	out = mustRunCLI(t, env, "schedule", "disable", shortID(id))
	requireContains(t, out, "Disabled schedule "+id)
	if items := listSchedulesJSON(t, env, "-p", "devTo"); items[0].Enabled || items[0].NextFire != "" {
		t.Fatalf("expected disabled slot without next fire, got %+v", items[0])
	}
	mustRunCLI(t, env, "schedule", "enable", id)

	out = mustRunCLI(t, env, "schedule", "update", id, "--day", "wednesday", "--time", "10:15")
	requireContains(t, out, "(Dev.to wednesday 10:15)")

	out = mustRunCLI(t, env, "schedule", "rm", id)
	requireContains(t, out, "Deleted schedule "+id)
	if items := listSchedulesJSON(t, env); len(items) != 1 || items[0].Platform != "twitter" {
		t.Fatalf("expected only the twitter slot left, got %+v", items)
	}
}

func TestScheduleAddRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"schedule", "add", "--platform", "myspace", "--day", "monday", "--time", "09:00"},
		{"schedule", "add", "--platform", "devTo", "--day", "funday", "--time", "09:00"},
		{"schedule", "add", "--platform", "devTo", "--day", "monday", "--time", "25:00"},
		{"schedule", "add", "--platform", "devTo", "--day", "monday"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, args, env.configPath); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
	if items := listSchedulesJSON(t, env); len(items) != 0 {
		t.Fatalf("expected nothing stored, got %+v", items)
	}
}

func TestScheduleRemoveUnknown(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"schedule", "rm", "nope"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing schedule error")
	}
	requireContains(t, err.Error(), "not found")
}

func TestScheduleUpdateRequiresAChange(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"schedule", "update", "abc"}, env.configPath); err == nil {
		t.Fatal("expected update without flags to fail")
	}
}

func TestScheduleNextListsEnabledSlots(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "schedule", "next")
	requireContains(t, out, "No enabled schedules")

	mustRunCLI(t, env, "schedule", "add", "-p", "devTo", "-d", "monday", "-t", "09:00")
	mustRunCLI(t, env, "schedule", "add", "-p", "linkedin", "-d", "tuesday", "-t", "08:00", "--disabled")
	out = mustRunCLI(t, env, "schedule", "next", "--limit", "2")
	requireContains(t, out, "Dev.to")
	requireNotContains(t, out, "LinkedIn")
}

func TestScheduleSuggestRequiresOptimizer(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"schedule", "suggest", "-p", "devTo"}, env.configPath)
	if err == nil {
		t.Fatal("expected suggest without optimizer to fail")
	}
	requireContains(t, err.Error(), "optimizer")
}

func TestScheduleSuggestApplyStoresAISlots(t *testing.T) {
	env := setupCLITestEnv(t)

	slots := `{"schedules":[` +
		`{"platform":"devTo","day":"tuesday","time":"9:30","reasoning":"Developers read early"},` +
		`{"platform":"devTo","day":"thursday","time":"16:00","reasoning":"Afternoon slump"},` +
		`{"platform":"twitter","day":"monday","time":"12:00","reasoning":"not requested"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		payload, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"content": slots},
				"finish_reason": "stop",
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	fmt.Fprintf(f, "\n[optimizer]\nprovider = \"openrouter\"\napi_key = \"test-key\"\nbase_url = %q\n", srv.URL)
	f.Close()

	out := mustRunCLI(t, env, "schedule", "suggest", "-p", "devTo", "--per-week", "2")
	requireContains(t, out, "Developers read early")
	requireContains(t, out, "--apply")
	if items := listSchedulesJSON(t, env); len(items) != 0 {
		t.Fatalf("expected dry run to store nothing, got %d", len(items))
	}

	out = mustRunCLI(t, env, "schedule", "suggest", "-p", "devTo", "--per-week", "2", "--apply")
	requireContains(t, out, "Saved 2 AI schedules")
	items := listSchedulesJSON(t, env)
	if len(items) != 2 {
		t.Fatalf("expected 2 stored slots, got %+v", items)
	}
	for _, item := range items {
		if !item.CreatedByAI || item.Platform != "devTo" {
			t.Fatalf("unexpected stored slot %+v", item)
		}
	}
	if items[0].DayOfWeek != "tuesday" || items[0].Time != "09:30" {
		t.Fatalf("expected tuesday 09:30 first, got %+v", items[0])
	}
}

func TestUpcomingFiresInterleavesSlots(t *testing.T) {
	// Monday 2026-10-19 08:00 UTC.
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	items := []schedule.WeeklySchedule{
		{ID: "b", PlatformID: platform.Twitter, DayOfWeek: schedule.Wednesday, Time: "12:00", Enabled: true},
		{ID: "a", PlatformID: platform.DevTo, DayOfWeek: schedule.Monday, Time: "09:00", Enabled: true},
		{ID: "c", PlatformID: platform.LinkedIn, DayOfWeek: schedule.Monday, Time: "08:30", Enabled: false},
	}

	fires := upcomingFires(items, now, 3)
	if len(fires) != 3 {
		t.Fatalf("expected 3 fires, got %d", len(fires))
	}
	want := []struct {
		id string
		at time.Time
	}{
		{"a", time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
		{"b", time.Date(2026, 10, 21, 12, 0, 0, 0, time.UTC)},
		{"a", time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC)},
	}
	for i, w := range want {
		if fires[i].schedule.ID != w.id || !fires[i].at.Equal(w.at) {
			t.Fatalf("fire %d = %s@%s, want %s@%s", i, fires[i].schedule.ID, fires[i].at, w.id, w.at)
		}
	}

	if got := upcomingFires(items[2:], now, 5); len(got) != 0 {
		t.Fatalf("expected no fires for disabled slots, got %d", len(got))
	}
}

func TestSortSchedulesMondayFirst(t *testing.T) {
	items := []schedule.WeeklySchedule{
		{ID: "3", PlatformID: platform.DevTo, DayOfWeek: schedule.Sunday, Time: "09:00"},
		{ID: "2", PlatformID: platform.DevTo, DayOfWeek: schedule.Monday, Time: "18:00"},
		{ID: "1", PlatformID: platform.DevTo, DayOfWeek: schedule.Monday, Time: "07:00"},
	}
	sortSchedules(items)
	if items[0].ID != "1" || items[1].ID != "2" || items[2].ID != "3" {
		t.Fatalf("unexpected order %s %s %s", items[0].ID, items[1].ID, items[2].ID)
	}
}
