package attendance

import (
	"github.com/trezcool/mahudhurio/core/roster"
)

// WorkingMark is today's unsaved attendance status for one entity.
// One slot per entity per day; marking again overwrites.
type WorkingMark struct {
	Kind     roster.Kind
	EntityID int
	Day      string
	Status   roster.Status
}

// LogEntry is the durable per-entity per-day attendance record, the source of
// truth for historical per-entity queries. At most one exists per entity+day:
// re-saving a day overwrites, never duplicates.
type LogEntry struct {
	Kind     roster.Kind   `json:"-"`
	EntityID int           `json:"entity_id"`
	Day      string        `json:"date"`
	Status   roster.Status `json:"status"`
}

// LogRecord is a LogEntry joined with the entity's identity for display.
type LogRecord struct {
	Day      string        `json:"date"`
	Status   roster.Status `json:"status"`
	EntityID int           `json:"entity_id"`
	Name     string        `json:"name"`
	ClassKey string        `json:"class_key"`
	Subject  string        `json:"subject,omitempty"`
}

// DaySummary is the population-level tally for one calendar day, kept for the
// student population only.
type DaySummary struct {
	Day          string `json:"date"`
	PresentCount int    `json:"present"`
	AbsentCount  int    `json:"absent"`
	LateCount    int    `json:"late"`
}

func (s DaySummary) Total() int {
	return s.PresentCount + s.AbsentCount + s.LateCount
}

// LogFilter applies AND operation on available fields.
type LogFilter struct {
	Kind     roster.Kind
	Day      string
	ClassKey string
	EntityID int
}

// MarkFailure reports a failed asynchronous working-mark store write.
// The local working view stays ahead of the store until the next save; the
// default policy is to log and move on, but a retry/sync layer could react.
type MarkFailure struct {
	Mark WorkingMark
	Err  error
}
