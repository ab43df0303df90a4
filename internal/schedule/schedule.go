// Package schedule models weekly publishing slots: parsing, validation, the
// tolerance-window due check used by each tick, next-fire computation, and AI
// slot suggestions.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	"postpilot/internal/platform"
	"postpilot/internal/services"
)

// WeeklySchedule is a recurring publish slot for one platform.
type WeeklySchedule struct {
	ID          string      `json:"id"`
	PlatformID  platform.ID `json:"platformId"`
	DayOfWeek   Weekday     `json:"dayOfWeek"`
	Time        string      `json:"time"`
	Enabled     bool        `json:"enabled"`
	CreatedByAI bool        `json:"createdByAI"`
	AIReasoning string      `json:"aiReasoning,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// UnmarshalJSON tolerates records written without an enabled flag and
// normalizes day and time casing.
func (s *WeeklySchedule) UnmarshalJSON(data []byte) error {
	type alias WeeklySchedule
	decoded := alias{Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if day, err := ParseWeekday(string(decoded.DayOfWeek)); err == nil {
		decoded.DayOfWeek = day
	}
	if clock, err := NormalizeClock(decoded.Time); err == nil {
		decoded.Time = clock
	}
	*s = WeeklySchedule(decoded)
	return nil
}

// Validate checks the schedule's fields. Unknown platforms are rejected here
// even though the store does not enforce the reference.
func (s WeeklySchedule) Validate(ctx context.Context) error {
	err := validation.ValidateStructWithContext(ctx, &s,
		validation.Field(&s.PlatformID, validation.Required, validation.By(func(value any) error {
			if !platform.Known(value.(platform.ID)) {
				return fmt.Errorf("unknown platform %q", value)
			}
			return nil
		})),
		validation.Field(&s.DayOfWeek, validation.Required, validation.By(func(value any) error {
			if !value.(Weekday).Valid() {
				return errors.New("must be monday through sunday")
			}
			return nil
		})),
		validation.Field(&s.Time, validation.Required, validation.By(func(value any) error {
			_, err := ParseClock(value.(string))
			return err
		})),
	)
	if err != nil {
		return services.Wrap(services.ErrValidation, "schedule", "validate", err.Error(), nil)
	}
	return nil
}

// Minute returns the slot's minute of day, or -1 when the time is malformed.
func (s WeeklySchedule) Minute() int {
	minutes, err := ParseClock(s.Time)
	if err != nil {
		return -1
	}
	return minutes
}

// Due reports whether the slot matches now within tolerance. Only enabled
// schedules on the same weekday match; the window does not wrap at midnight.
func (s WeeklySchedule) Due(now time.Time, tolerance time.Duration) bool {
	if !s.Enabled || s.DayOfWeek != WeekdayOf(now) {
		return false
	}
	slot := s.Minute()
	if slot < 0 {
		return false
	}
	diff := slot - MinuteOfDay(now)
	if diff < 0 {
		diff = -diff
	}
	return time.Duration(diff)*time.Minute <= tolerance
}

// CronSpec renders the slot as a standard five-field cron expression.
func (s WeeklySchedule) CronSpec() (string, error) {
	minutes, err := ParseClock(s.Time)
	if err != nil {
		return "", err
	}
	if !s.DayOfWeek.Valid() {
		return "", fmt.Errorf("invalid day of week %q", s.DayOfWeek)
	}
	return fmt.Sprintf("%d %d * * %d", minutes%60, minutes/60, int(s.DayOfWeek.TimeWeekday())), nil
}

// NextFire returns the next time after from at which the slot opens, in
// from's location.
func (s WeeklySchedule) NextFire(from time.Time) (time.Time, error) {
	spec, err := s.CronSpec()
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return sched.Next(from), nil
}
