package store

import (
	"strings"
	"time"
)

// DateLayout formats calendar dates in counter and dispatch keys.
const DateLayout = "2006-01-02"

const (
	prefixSchedule = "schedule/"
	prefixPlatform = "platform/"
	prefixSettings = "settings/"
	prefixCounter  = "counter/"
	prefixRecord   = "record/"
	prefixContent  = "content/"
	prefixDispatch = "dispatch/"
)

// DateKey returns t's calendar date in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func scheduleKey(id string) string { return prefixSchedule + id }

func platformKey(id string) string { return prefixPlatform + id }

func settingsKey(id string) string { return prefixSettings + id }

func counterKey(platformID, date string) string { return prefixCounter + platformID + "/" + date }

func recordKey(id string) string { return prefixRecord + id }

func contentKey(id string) string { return prefixContent + id }

func dispatchKey(date, scheduleID string) string { return prefixDispatch + date + "/" + scheduleID }

// splitCounterKey returns the platform and date parts of a counter key.
func splitCounterKey(key string) (string, string, bool) {
	rest := strings.TrimPrefix(key, prefixCounter)
	idx := strings.LastIndex(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// splitDispatchKey returns the date and schedule parts of a dispatch key.
func splitDispatchKey(key string) (string, string, bool) {
	rest := strings.TrimPrefix(key, prefixDispatch)
	idx := strings.Index(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
