package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Log(line LogLine) {
	r.write(map[string]any{
		"type":      "log",
		"kind":      line.Kind,
		"job":       line.Job,
		"line":      line.Line,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) JobStarted(info JobStartInfo) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]any{
		"type":          "job_started",
		"kind":          info.Kind,
		"input_file":    info.InputFile,
		"output_file":   info.OutputFile,
		"total_frames":  info.TotalFrames,
		"primary_lut":   info.PrimaryLUT,
		"secondary_lut": info.SecondaryLUT,
		"opacity":       info.Opacity,
		"white_balance": info.WhiteBalance,
		"encoder":       info.Encoder,
		"timestamp":     r.timestamp(),
	})
}

// JobProgress emits at most one event per percent, plus one every five
// seconds so indeterminate progress is still visible.
func (r *JSONReporter) JobProgress(progress ProgressSnapshot) {
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent)
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	advanced := progress.Determinate && bucket > r.lastProgressBucket
	if !advanced && !intervalElapsed {
		r.mu.Unlock()
		return
	}
	if advanced {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	event := map[string]any{
		"type":          "job_progress",
		"kind":          progress.Kind,
		"current_frame": progress.CurrentFrame,
		"total_frames":  progress.TotalFrames,
		"determinate":   progress.Determinate,
		"timestamp":     r.timestamp(),
	}
	if progress.Determinate {
		event["percent"] = progress.Percent
	}
	if progress.Elapsed > 0 {
		event["elapsed_seconds"] = progress.Elapsed.Seconds()
	}
	r.write(event)
}

func (r *JSONReporter) JobComplete(outcome JobOutcome) {
	event := map[string]any{
		"type":             "job_complete",
		"kind":             outcome.Kind,
		"input_file":       outcome.InputFile,
		"output_file":      outcome.OutputFile,
		"status":           outcome.Status,
		"exit_code":        outcome.ExitCode,
		"output_size":      outcome.OutputSize,
		"duration_seconds": int64(outcome.TotalTime.Seconds()),
		"timestamp":        r.timestamp(),
	}
	if outcome.Error != "" {
		event["error"] = outcome.Error
	}
	r.write(event)
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]any{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]any{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write(map[string]any{
		"type":      "operation_complete",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write(map[string]any{
		"type":        "batch_started",
		"total_files": info.TotalFiles,
		"file_list":   info.FileList,
		"output_dir":  info.OutputDir,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) FileProgress(context FileProgressContext) {
	r.write(map[string]any{
		"type":         "file_progress",
		"current_file": context.CurrentFile,
		"total_files":  context.TotalFiles,
		"timestamp":    r.timestamp(),
	})
}

// BatchProgress is folded into job_progress events.
func (r *JSONReporter) BatchProgress(BatchProgressSnapshot) {}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	results := make([]map[string]any, len(summary.FileResults))
	for i, fr := range summary.FileResults {
		results[i] = map[string]any{
			"file":        fr.Filename,
			"status":      fr.Status,
			"output_size": fr.OutputSize,
		}
	}

	r.write(map[string]any{
		"type":                   "batch_complete",
		"total_files":            summary.TotalFiles,
		"completed_count":        summary.CompletedCount,
		"successful_count":       summary.SucceededCount,
		"failed_count":           summary.FailedCount,
		"aborted":                summary.Aborted,
		"total_size":             summary.TotalSize,
		"total_duration_seconds": int64(summary.TotalDuration.Seconds()),
		"file_results":           results,
		"timestamp":              r.timestamp(),
	})
}

// Verbose messages are not part of the event stream.
func (r *JSONReporter) Verbose(string) {}
