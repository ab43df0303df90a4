package dispatch

import (
	"sync"
	"time"

	"postpilot/internal/platform"
)

// Skip reasons beyond the registry gates defined by the platform package.
const (
	SkipAlreadyDispatched platform.SkipReason = "already_dispatched"
	SkipNoContent         platform.SkipReason = "no_content"
	SkipSourceFailed      platform.SkipReason = "source_failed"
	SkipPersistFailed     platform.SkipReason = "persist_failed"
)

// TickReport summarizes one pass of the loop.
type TickReport struct {
	TickID        string                      `json:"tickId"`
	StartedAt     time.Time                   `json:"startedAt"`
	FinishedAt    time.Time                   `json:"finishedAt"`
	Evaluated     int                         `json:"evaluated"`
	Due           int                         `json:"due"`
	Attempted     int                         `json:"attempted"`
	Published     int                         `json:"published"`
	Failed        int                         `json:"failed"`
	PersistErrors int                         `json:"persistErrors"`
	Pruned        int                         `json:"pruned"`
	Skipped       map[platform.SkipReason]int `json:"skipped"`
	Errors        []string                    `json:"errors,omitempty"`
}

// Duration is the wall time the tick took.
func (r TickReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SkippedTotal sums all skip reasons.
func (r TickReport) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

func (r TickReport) clone() TickReport {
	out := r
	out.Skipped = make(map[platform.SkipReason]int, len(r.Skipped))
	for k, v := range r.Skipped {
		out.Skipped[k] = v
	}
	out.Errors = append([]string(nil), r.Errors...)
	return out
}

// collector guards a report shared by per-platform workers.
type collector struct {
	mu     sync.Mutex
	report TickReport
}

func newCollector(tickID string, started time.Time) *collector {
	return &collector{report: TickReport{
		TickID:    tickID,
		StartedAt: started,
		Skipped:   make(map[platform.SkipReason]int),
	}}
}

func (c *collector) skip(reason platform.SkipReason) {
	c.mu.Lock()
	c.report.Skipped[reason]++
	c.mu.Unlock()
}

func (c *collector) attempted() {
	c.mu.Lock()
	c.report.Attempted++
	c.mu.Unlock()
}

func (c *collector) outcome(success bool) {
	c.mu.Lock()
	if success {
		c.report.Published++
	} else {
		c.report.Failed++
	}
	c.mu.Unlock()
}

func (c *collector) persistError(err error) {
	c.mu.Lock()
	c.report.PersistErrors++
	c.report.Errors = append(c.report.Errors, err.Error())
	c.mu.Unlock()
}

func (c *collector) addError(err error) {
	c.mu.Lock()
	c.report.Errors = append(c.report.Errors, err.Error())
	c.mu.Unlock()
}

func (c *collector) finish(at time.Time) TickReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.FinishedAt = at
	return c.report.clone()
}

// Status is a snapshot of the loop state.
type Status struct {
	Running      bool          `json:"running"`
	TickInterval time.Duration `json:"tickInterval"`
	LastTick     *TickReport   `json:"lastTick,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
	NextTick     time.Time     `json:"nextTick,omitempty"`
	TicksRun     int           `json:"ticksRun"`
	TicksSkipped int           `json:"ticksSkipped"`
}
