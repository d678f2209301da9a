package events

import "github.com/five82/lutgrade/internal/reporter"

// Event type constants for kelindar/event.
const (
	TypeLog uint32 = iota + 1
	TypeJobStarted
	TypeJobProgress
	TypeJobComplete
	TypeBatchStarted
	TypeBatchProgress
	TypeBatchComplete
	TypeWarning
	TypeError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// LogEvent carries one line of engine output.
type LogEvent struct {
	reporter.LogLine
}

// Type returns the event type identifier for LogEvent.
func (LogEvent) Type() uint32 { return TypeLog }

// JobStartedEvent is published when a preview or export spawns.
type JobStartedEvent struct {
	reporter.JobStartInfo
}

// Type returns the event type identifier for JobStartedEvent.
func (JobStartedEvent) Type() uint32 { return TypeJobStarted }

// JobProgressEvent carries engine progress.
type JobProgressEvent struct {
	reporter.ProgressSnapshot
}

// Type returns the event type identifier for JobProgressEvent.
func (JobProgressEvent) Type() uint32 { return TypeJobProgress }

// JobCompleteEvent is published once per finished job.
type JobCompleteEvent struct {
	reporter.JobOutcome
}

// Type returns the event type identifier for JobCompleteEvent.
func (JobCompleteEvent) Type() uint32 { return TypeJobComplete }

// BatchStartedEvent is published before the first job of a batch.
type BatchStartedEvent struct {
	reporter.BatchStartInfo
}

// Type returns the event type identifier for BatchStartedEvent.
func (BatchStartedEvent) Type() uint32 { return TypeBatchStarted }

// BatchProgressEvent carries overall batch progress.
type BatchProgressEvent struct {
	reporter.BatchProgressSnapshot
}

// Type returns the event type identifier for BatchProgressEvent.
func (BatchProgressEvent) Type() uint32 { return TypeBatchProgress }

// BatchCompleteEvent is published when a batch ends, aborted or not.
type BatchCompleteEvent struct {
	reporter.BatchSummary
}

// Type returns the event type identifier for BatchCompleteEvent.
func (BatchCompleteEvent) Type() uint32 { return TypeBatchComplete }

// WarningEvent carries a warning message.
type WarningEvent struct {
	Message string
}

// Type returns the event type identifier for WarningEvent.
func (WarningEvent) Type() uint32 { return TypeWarning }

// ErrorEvent carries a reported error.
type ErrorEvent struct {
	reporter.ReporterError
}

// Type returns the event type identifier for ErrorEvent.
func (ErrorEvent) Type() uint32 { return TypeError }
