package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a lower-case English day name as persisted in schedule records.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Weekdays returns the days Monday first.
func Weekdays() []Weekday {
	return append([]Weekday(nil), weekdays...)
}

// ParseWeekday accepts full names and three-letter abbreviations in any case.
func ParseWeekday(value string) (Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, day := range weekdays {
		if normalized == string(day) || (len(normalized) == 3 && strings.HasPrefix(string(day), normalized)) {
			return day, nil
		}
	}
	return "", fmt.Errorf("invalid day of week %q", value)
}

// WeekdayOf returns the day name for t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return FromTimeWeekday(t.Weekday())
}

// FromTimeWeekday converts a time.Weekday.
func FromTimeWeekday(day time.Weekday) Weekday {
	if day == time.Sunday {
		return Sunday
	}
	return weekdays[int(day)-1]
}

// TimeWeekday converts to time.Weekday. Unknown values map to Sunday.
func (w Weekday) TimeWeekday() time.Weekday {
	for i, day := range weekdays {
		if day == w {
			return time.Weekday((i + 1) % 7)
		}
	}
	return time.Sunday
}

// Valid reports whether w is one of the seven day names.
func (w Weekday) Valid() bool {
	for _, day := range weekdays {
		if day == w {
			return true
		}
	}
	return false
}

// ParseClock parses "HH:MM" (24h) into minutes since midnight.
func ParseClock(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	parsed, err := time.Parse("15:04", trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", value)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock re-renders a time string in canonical HH:MM form.
func NormalizeClock(value string) (string, error) {
	minutes, err := ParseClock(value)
	if err != nil {
		return "", err
	}
	return FormatClock(minutes), nil
}

// MinuteOfDay returns minutes since midnight for t in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
