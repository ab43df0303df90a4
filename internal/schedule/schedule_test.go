package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"postpilot/internal/platform"
	"postpilot/internal/services"
)

// 2026-03-02 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestDueToleranceWindow(t *testing.T) {
	slot := WeeklySchedule{PlatformID: platform.DevTo, DayOfWeek: Monday, Time: "09:00", Enabled: true}
	tolerance := 5 * time.Minute

	for _, at := range []time.Time{monday(9, 0), monday(9, 3), monday(8, 57), monday(9, 5), monday(8, 55)} {
		if !slot.Due(at, tolerance) {
			t.Fatalf("expected due at %s", at.Format("15:04"))
		}
	}
	for _, at := range []time.Time{monday(9, 6), monday(8, 54), monday(21, 0)} {
		if slot.Due(at, tolerance) {
			t.Fatalf("expected not due at %s", at.Format("15:04"))
		}
	}
}

func TestDueRequiresEnabledAndSameDay(t *testing.T) {
	slot := WeeklySchedule{PlatformID: platform.DevTo, DayOfWeek: Monday, Time: "09:00", Enabled: false}
	if slot.Due(monday(9, 0), 5*time.Minute) {
		t.Fatal("disabled schedule must never be due")
	}
	slot.Enabled = true
	tuesday := monday(9, 0).AddDate(0, 0, 1)
	if slot.Due(tuesday, 5*time.Minute) {
		t.Fatal("schedule must not match a different weekday")
	}
}

func TestDueDoesNotWrapMidnight(t *testing.T) {
	slot := WeeklySchedule{PlatformID: platform.Twitter, DayOfWeek: Monday, Time: "23:58", Enabled: true}
	// 00:01 on Tuesday is three minutes after the slot but on another day.
	if slot.Due(monday(0, 0).AddDate(0, 0, 1).Add(time.Minute), 5*time.Minute) {
		t.Fatal("window must not wrap across midnight")
	}
	if !slot.Due(monday(23, 59), 5*time.Minute) {
		t.Fatal("expected due one minute after slot")
	}
}

func TestDueUsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	slot := WeeklySchedule{PlatformID: platform.LinkedIn, DayOfWeek: Monday, Time: "09:00", Enabled: true}
	if !slot.Due(monday(7, 0).In(loc), 5*time.Minute) {
		t.Fatal("expected slot to match local wall clock")
	}
}

func TestParseWeekdayAndClock(t *testing.T) {
	if day, err := ParseWeekday("Wed"); err != nil || day != Wednesday {
		t.Fatalf("ParseWeekday(Wed) = %q, %v", day, err)
	}
	if _, err := ParseWeekday("funday"); err == nil {
		t.Fatal("expected error for unknown day")
	}
	if minutes, err := ParseClock("9:05"); err != nil || minutes != 545 {
		t.Fatalf("ParseClock(9:05) = %d, %v", minutes, err)
	}
	for _, bad := range []string{"24:00", "09:60", "noon", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if Sunday.TimeWeekday() != time.Sunday || Monday.TimeWeekday() != time.Monday {
		t.Fatal("unexpected weekday conversion")
	}
	if FromTimeWeekday(time.Saturday) != Saturday {
		t.Fatal("unexpected weekday conversion from time")
	}
}

func TestUnmarshalNormalizesAndDefaults(t *testing.T) {
	var slot WeeklySchedule
	if err := json.Unmarshal([]byte(`{"id":"a","platformId":"devTo","dayOfWeek":"Monday","time":"9:00"}`), &slot); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !slot.Enabled || slot.DayOfWeek != Monday || slot.Time != "09:00" {
		t.Fatalf("unexpected decoded schedule %+v", slot)
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	good := WeeklySchedule{PlatformID: platform.YouTube, DayOfWeek: Friday, Time: "18:30"}
	if err := good.Validate(ctx); err != nil {
		t.Fatalf("expected valid schedule: %v", err)
	}
	bad := WeeklySchedule{PlatformID: "myspace", DayOfWeek: Friday, Time: "18:30"}
	err := bad.Validate(ctx)
	if err == nil || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := (WeeklySchedule{PlatformID: platform.YouTube, DayOfWeek: "someday", Time: "18:30"}).Validate(ctx); err == nil {
		t.Fatal("expected invalid day to fail")
	}
}

func TestNextFire(t *testing.T) {
	slot := WeeklySchedule{PlatformID: platform.DevTo, DayOfWeek: Wednesday, Time: "14:15", Enabled: true}
	spec, err := slot.CronSpec()
	if err != nil || spec != "15 14 * * 3" {
		t.Fatalf("CronSpec = %q, %v", spec, err)
	}
	next, err := slot.NextFire(monday(10, 0))
	if err != nil {
		t.Fatalf("NextFire: %v", err)
	}
	want := time.Date(2026, 3, 4, 14, 15, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("NextFire = %s, want %s", next, want)
	}
}
