package main

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const displayTimeFormat = "Mon 2006-01-02 15:04"

// relativeTime renders t with a humanized offset from now, e.g.
// "Tue 2026-10-20 10:00 (1 day from now)".
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(displayTimeFormat) + " (" + humanize.RelTime(t, now, "ago", "from now") + ")"
}

// sinceTime renders how long ago t was.
func sinceTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
