package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TickSummary describes one dispatch pass in a transport-friendly format.
type TickSummary struct {
	TickID         string         `json:"tickId"`
	StartedAt      string         `json:"startedAt,omitempty"`
	FinishedAt     string         `json:"finishedAt,omitempty"`
	DurationMillis int64          `json:"durationMillis"`
	Evaluated      int            `json:"evaluated"`
	Due            int            `json:"due"`
	Attempted      int            `json:"attempted"`
	Published      int            `json:"published"`
	Failed         int            `json:"failed"`
	PersistErrors  int            `json:"persistErrors"`
	Pruned         int            `json:"pruned"`
	Skipped        map[string]int `json:"skipped"`
	Errors         []string       `json:"errors,omitempty"`
}

// DispatchStatus summarizes the dispatch loop.
type DispatchStatus struct {
	Running             bool         `json:"running"`
	TickIntervalSeconds int64        `json:"tickIntervalSeconds"`
	LastTick            *TickSummary `json:"lastTick,omitempty"`
	LastError           string       `json:"lastError,omitempty"`
	NextTick            string       `json:"nextTick,omitempty"`
	TicksRun            int          `json:"ticksRun"`
	TicksSkipped        int          `json:"ticksSkipped"`
}

// StatusLine is one labelled health line rendered by "postpilot status".
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// Severity values for StatusLine.
const (
	SeverityOK    = "ok"
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	LockFilePath string         `json:"lockFilePath"`
	Storage      string         `json:"storage"`
	LogPath      string         `json:"logPath,omitempty"`
	Dispatch     DispatchStatus `json:"dispatch"`
}

// Schedule describes a weekly slot.
type Schedule struct {
	ID           string `json:"id"`
	Platform     string `json:"platform"`
	PlatformName string `json:"platformName"`
	DayOfWeek    string `json:"dayOfWeek"`
	Time         string `json:"time"`
	Enabled      bool   `json:"enabled"`
	CreatedByAI  bool   `json:"createdByAI"`
	AIReasoning  string `json:"aiReasoning,omitempty"`
	NextFire     string `json:"nextFire,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Record describes one publish attempt.
type Record struct {
	ID            string `json:"id"`
	ContentID     string `json:"contentId"`
	Platform      string `json:"platform"`
	ScheduleID    string `json:"scheduleId,omitempty"`
	Status        string `json:"status"`
	RetryCount    int    `json:"retryCount"`
	PublishedURL  string `json:"publishedUrl,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	ErrorCategory string `json:"errorCategory,omitempty"`
	PublishDate   string `json:"publishDate,omitempty"`
}

// Counter is one daily publication count.
type Counter struct {
	Platform string `json:"platform"`
	Date     string `json:"date"`
	Count    int    `json:"count"`
}

// ScheduleListResponse wraps a collection of schedules.
type ScheduleListResponse struct {
	Schedules []Schedule `json:"schedules"`
}

// RecordListResponse wraps a collection of publish records.
type RecordListResponse struct {
	Records []Record `json:"records"`
}

// CounterListResponse wraps the stored daily counters.
type CounterListResponse struct {
	Counters []Counter `json:"counters"`
}

// TickResponse wraps the report of an on-demand tick.
type TickResponse struct {
	Tick TickSummary `json:"tick"`
}
