package api

import (
	"sort"
	"time"

	"postpilot/internal/content"
	"postpilot/internal/dispatch"
	"postpilot/internal/schedule"
	"postpilot/internal/store"
)

// FromTickReport converts a dispatch report to its API representation.
func FromTickReport(report dispatch.TickReport) TickSummary {
	dto := TickSummary{
		TickID:         report.TickID,
		StartedAt:      formatTime(report.StartedAt),
		FinishedAt:     formatTime(report.FinishedAt),
		DurationMillis: report.Duration().Milliseconds(),
		Evaluated:      report.Evaluated,
		Due:            report.Due,
		Attempted:      report.Attempted,
		Published:      report.Published,
		Failed:         report.Failed,
		PersistErrors:  report.PersistErrors,
		Pruned:         report.Pruned,
		Skipped:        make(map[string]int, len(report.Skipped)),
	}
	for reason, count := range report.Skipped {
		dto.Skipped[string(reason)] = count
	}
	if len(report.Errors) > 0 {
		dto.Errors = append([]string(nil), report.Errors...)
	}
	return dto
}

// FromDispatchStatus converts the loop snapshot.
func FromDispatchStatus(status dispatch.Status) DispatchStatus {
	dto := DispatchStatus{
		Running:             status.Running,
		TickIntervalSeconds: int64(status.TickInterval / time.Second),
		LastError:           status.LastError,
		NextTick:            formatTime(status.NextTick),
		TicksRun:            status.TicksRun,
		TicksSkipped:        status.TicksSkipped,
	}
	if status.LastTick != nil {
		tick := FromTickReport(*status.LastTick)
		dto.LastTick = &tick
	}
	return dto
}

// FromSchedule converts a weekly slot. Enabled slots carry their next fire
// time relative to now.
func FromSchedule(s schedule.WeeklySchedule, now time.Time) Schedule {
	dto := Schedule{
		ID:           s.ID,
		Platform:     string(s.PlatformID),
		PlatformName: s.PlatformID.DisplayName(),
		DayOfWeek:    string(s.DayOfWeek),
		Time:         s.Time,
		Enabled:      s.Enabled,
		CreatedByAI:  s.CreatedByAI,
		AIReasoning:  s.AIReasoning,
		CreatedAt:    formatTime(s.CreatedAt),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
	if s.Enabled {
		if next, err := s.NextFire(now); err == nil {
			dto.NextFire = formatTime(next)
		}
	}
	return dto
}

// FromSchedules converts a slice of slots, preserving order.
func FromSchedules(items []schedule.WeeklySchedule, now time.Time) []Schedule {
	out := make([]Schedule, 0, len(items))
	for _, item := range items {
		out = append(out, FromSchedule(item, now))
	}
	return out
}

// FromRecord converts a publish record.
func FromRecord(r content.Record) Record {
	return Record{
		ID:            r.ID,
		ContentID:     r.ContentID,
		Platform:      r.Platform,
		ScheduleID:    r.ScheduleID,
		Status:        string(r.Status),
		RetryCount:    r.RetryCount,
		PublishedURL:  r.PublishedURL,
		ErrorMessage:  r.ErrorMessage,
		ErrorCategory: r.ErrorCategory,
		PublishDate:   formatTime(r.PublishDate),
	}
}

// FromRecords converts a slice of records.
func FromRecords(items []content.Record) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, FromRecord(item))
	}
	return out
}

// FromCounters converts stored counters, newest date first and platform
// ascending within a date.
func FromCounters(items []store.Counter) []Counter {
	out := make([]Counter, 0, len(items))
	for _, item := range items {
		out = append(out, Counter{Platform: string(item.Platform), Date: item.Date, Count: item.Count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
