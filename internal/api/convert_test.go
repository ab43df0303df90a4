package api

import (
	"testing"
	"time"

	"postpilot/internal/content"
	"postpilot/internal/dispatch"
	"postpilot/internal/platform"
	"postpilot/internal/schedule"
	"postpilot/internal/store"
)

func TestFromTickReportFlattensSkipReasons(t *testing.T) {
	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	report := dispatch.TickReport{
		TickID:     "tick-1",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Due:        3,
		Attempted:  1,
		Published:  1,
		Skipped: map[platform.SkipReason]int{
			platform.SkipReason("daily_cap_reached"): 2,
		},
		Errors: []string{"boom"},
	}

	dto := FromTickReport(report)
	if dto.TickID != "tick-1" || dto.DurationMillis != 1500 {
		t.Fatalf("unexpected summary %+v", dto)
	}
	if dto.StartedAt != "2026-10-19T09:00:00.000Z" {
		t.Fatalf("unexpected started at %q", dto.StartedAt)
	}
	if dto.Skipped["daily_cap_reached"] != 2 {
		t.Fatalf("expected skip count carried over, got %v", dto.Skipped)
	}
	report.Errors[0] = "mutated"
	if dto.Errors[0] != "boom" {
		t.Fatal("expected errors to be copied")
	}
}

func TestFromDispatchStatus(t *testing.T) {
	last := dispatch.TickReport{TickID: "last"}
	dto := FromDispatchStatus(dispatch.Status{
		Running:      true,
		TickInterval: 5 * time.Minute,
		LastTick:     &last,
		TicksRun:     4,
	})
	if !dto.Running || dto.TickIntervalSeconds != 300 || dto.TicksRun != 4 {
		t.Fatalf("unexpected status %+v", dto)
	}
	if dto.LastTick == nil || dto.LastTick.TickID != "last" {
		t.Fatalf("expected last tick, got %+v", dto.LastTick)
	}
	if dto.NextTick != "" {
		t.Fatalf("expected empty next tick for zero time, got %q", dto.NextTick)
	}
}

func TestFromScheduleIncludesNextFire(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 2, 0, 0, time.UTC)
	slot := schedule.WeeklySchedule{
		ID:         "s1",
		PlatformID: platform.DevTo,
		DayOfWeek:  schedule.Tuesday,
		Time:       "10:00",
		Enabled:    true,
	}

	dto := FromSchedule(slot, now)
	if dto.PlatformName != "Dev.to" {
		t.Fatalf("unexpected platform name %q", dto.PlatformName)
	}
	if dto.NextFire != "2026-10-20T10:00:00.000Z" {
		t.Fatalf("unexpected next fire %q", dto.NextFire)
	}

	slot.Enabled = false
	if got := FromSchedule(slot, now).NextFire; got != "" {
		t.Fatalf("expected no next fire for disabled slot, got %q", got)
	}
}

func TestFromRecord(t *testing.T) {
	dto := FromRecord(content.Record{
		ID:            "r1",
		Platform:      "twitter",
		Status:        content.RecordFailed,
		ErrorMessage:  "rate limited",
		ErrorCategory: "external",
		RetryCount:    2,
	})
	if dto.Status != "failed" || dto.RetryCount != 2 || dto.ErrorCategory != "external" {
		t.Fatalf("unexpected record %+v", dto)
	}
	if dto.PublishDate != "" {
		t.Fatalf("expected empty publish date, got %q", dto.PublishDate)
	}
}

func TestFromCountersOrdersNewestFirst(t *testing.T) {
	got := FromCounters([]store.Counter{
		{Platform: platform.Twitter, Date: "2026-10-18", Count: 1},
		{Platform: platform.Twitter, Date: "2026-10-19", Count: 2},
		{Platform: platform.DevTo, Date: "2026-10-19", Count: 1},
	})
	want := []string{"2026-10-19/devTo", "2026-10-19/twitter", "2026-10-18/twitter"}
	for i, c := range got {
		if key := c.Date + "/" + c.Platform; key != want[i] {
			t.Fatalf("position %d = %s, want %s", i, key, want[i])
		}
	}
}
