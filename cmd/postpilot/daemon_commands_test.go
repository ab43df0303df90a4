package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"postpilot/internal/api"
	"postpilot/internal/ipc"
)

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "status")
	requireContains(t, out, "== System Status ==")
	requireContains(t, out, "Not running")
	requireContains(t, out, "== Platforms ==")
	requireContains(t, out, "== Dispatch ==")
	requireContains(t, out, "none configured")
	requireContains(t, out, "Inactive (daemon not running)")

	mustRunCLI(t, env, "schedule", "add", "-p", "devTo", "-d", "monday", "-t", "09:00")
	out = mustRunCLI(t, env, "status", "--json")
	var resp ipc.StatusResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if resp.Running {
		t.Fatal("expected daemon reported as not running")
	}
	if len(resp.Platforms) != 6 {
		t.Fatalf("expected 6 platform lines, got %d", len(resp.Platforms))
	}
	if resp.Schedules.Detail != "1 enabled of 1" {
		t.Fatalf("unexpected schedule summary %+v", resp.Schedules)
	}
}

func TestTickRunsLocallyWhenDaemonUnavailable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, err := runCLI(t, []string{"tick"}, env.configPath)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	requireContains(t, stderr, "Daemon not running; running tick locally")
	requireContains(t, out, "finished in")
	requireContains(t, out, "Due")

	out = mustRunCLI(t, env, "tick", "--local", "--json")
	var summary api.TickSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode tick: %v\n%s", err, out)
	}
	if summary.TickID == "" || summary.Due != 0 || summary.Published != 0 {
		t.Fatalf("unexpected tick summary %+v", summary)
	}
}

func TestTickThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	startTestDaemon(t, env)

	out, stderr, err := runCLI(t, []string{"tick", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if strings.Contains(stderr, "running tick locally") {
		t.Fatalf("expected daemon tick, got local fallback")
	}
	var summary api.TickSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode tick: %v\n%s", err, out)
	}
	if summary.TickID == "" {
		t.Fatalf("expected tick id, got %+v", summary)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	startTestDaemon(t, env)

	out := mustRunCLI(t, env, "test-notify")
	requireContains(t, out, "ntfy topic not configured")
}

func TestTestNotifyWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err == nil {
		t.Fatal("expected error without daemon")
	}
	requireContains(t, err.Error(), "postpilot start")
}

func TestDispatchLines(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	schedules := api.StatusLine{Label: "Schedules", Severity: api.SeverityOK, Detail: "2 enabled of 2"}

	lines := dispatchLines(api.DispatchStatus{}, false, schedules, now)
	if len(lines) != 2 || lines[1].Detail != "Inactive (daemon not running)" {
		t.Fatalf("unexpected idle lines %+v", lines)
	}

	status := api.DispatchStatus{
		Running:             true,
		TickIntervalSeconds: 300,
		NextTick:            now.Add(5 * time.Minute).Format(time.RFC3339Nano),
		LastTick: &api.TickSummary{
			FinishedAt: now.Add(-time.Minute).Format(time.RFC3339Nano),
			Due:        2,
			Published:  1,
			Failed:     1,
			Skipped:    map[string]int{"daily_cap_reached": 1},
		},
		LastError:    "publish devTo: boom",
		TicksRun:     7,
		TicksSkipped: 1,
	}
	lines = dispatchLines(status, true, schedules, now)
	byLabel := make(map[string]api.StatusLine, len(lines))
	for _, line := range lines {
		byLabel[line.Label] = line
	}
	if byLabel["Timer"].Detail != "Every 5m0s" || byLabel["Timer"].Severity != api.SeverityOK {
		t.Fatalf("unexpected timer line %+v", byLabel["Timer"])
	}
	if byLabel["Last tick"].Severity != api.SeverityWarn || !strings.Contains(byLabel["Last tick"].Detail, "1 skipped") {
		t.Fatalf("unexpected last tick line %+v", byLabel["Last tick"])
	}
	if byLabel["Last error"].Severity != api.SeverityError {
		t.Fatalf("expected error line, got %+v", byLabel["Last error"])
	}
	if byLabel["Ticks"].Detail != "7 run, 1 skipped" {
		t.Fatalf("unexpected ticks line %+v", byLabel["Ticks"])
	}
	if _, ok := byLabel["Next tick"]; !ok {
		t.Fatal("expected next tick line")
	}
}
