package logging

import "strings"

// FormatSubject builds the platform/schedule subject string used in console output.
func FormatSubject(platform, scheduleID string) string {
	platform = strings.TrimSpace(platform)
	scheduleID = strings.TrimSpace(scheduleID)
	switch {
	case platform != "" && scheduleID != "":
		return platform + " · slot " + shortID(scheduleID)
	case platform != "":
		return platform
	case scheduleID != "":
		return "slot " + shortID(scheduleID)
	default:
		return ""
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
