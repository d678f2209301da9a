// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// Job kinds as reported.
const (
	KindPreview = "preview"
	KindExport  = "export"
)

// Job statuses as reported.
const (
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusTerminated = "terminated"
)

// LogLine is one line of engine output.
type LogLine struct {
	Kind string
	Job  string
	Line string
}

// JobStartInfo describes a job about to run.
type JobStartInfo struct {
	Kind         string
	InputFile    string
	OutputFile   string
	TotalFrames  uint64
	PrimaryLUT   string
	SecondaryLUT string
	Opacity      float64
	WhiteBalance float64
	Encoder      string
}

// ProgressSnapshot contains job progress information.
type ProgressSnapshot struct {
	Kind         string
	CurrentFrame uint64
	TotalFrames  uint64
	// Percent is only meaningful when Determinate is set.
	Percent     float32
	Determinate bool
	Elapsed     time.Duration
}

// JobOutcome contains the result of a finished job.
type JobOutcome struct {
	Kind       string
	InputFile  string
	OutputFile string
	Status     string
	ExitCode   int
	TotalTime  time.Duration
	OutputSize uint64
	Error      string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	TotalFiles int
	FileList   []string
	OutputDir  string
}

// FileProgressContext contains current file index within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
}

// BatchProgressSnapshot is the overall progress of a batch.
type BatchProgressSnapshot struct {
	Completed int
	Total     int
	// Fraction is (completed + current job fraction) / total.
	Fraction float64
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	TotalFiles     int
	CompletedCount int
	SucceededCount int
	FailedCount    int
	Aborted        bool
	TotalDuration  time.Duration
	TotalSize      uint64
	FileResults    []FileResult
}

// FileResult contains the per-file export result.
type FileResult struct {
	Filename   string
	Status     string
	OutputSize uint64
}
