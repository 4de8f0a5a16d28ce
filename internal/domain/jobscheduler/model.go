package jobscheduler

import "time"

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

// DispatchEvent is the audit record for one background-job dispatch or
// callback. Target identifies what the job acted on, usually a season
// or a fixture id.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	Target       string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
