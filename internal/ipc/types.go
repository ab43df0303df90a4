package ipc

import "postpilot/internal/api"

// StartRequest asks the daemon to begin dispatching.
type StartRequest struct{}

// StartResponse indicates whether the daemon started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest asks the daemon to stop dispatching.
type StopRequest struct{}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest retrieves daemon status.
type StatusRequest struct{}

// StatusResponse reports daemon state. The check lines are filled in on the
// client side from local configuration.
type StatusResponse struct {
	api.DaemonStatus
	SystemChecks []api.StatusLine `json:"system_checks,omitempty"`
	Platforms    []api.StatusLine `json:"platforms,omitempty"`
	Schedules    api.StatusLine   `json:"schedules"`
}

// TickRequest runs one dispatch pass.
type TickRequest struct{}

// TickResponse carries the tick report. Skipped is set when another tick or
// another instance held the loop; Message then explains why.
type TickResponse struct {
	Tick    api.TickSummary `json:"tick"`
	Skipped bool            `json:"skipped"`
	Message string          `json:"message,omitempty"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest reads daemon log lines.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Match      string `json:"match,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
