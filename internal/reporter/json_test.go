package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestJSONReporterJobLifecycle(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.JobStarted(JobStartInfo{Kind: KindExport, InputFile: "in.mov", OutputFile: "out.mp4", TotalFrames: 240})
	r.Log(LogLine{Kind: KindExport, Job: "in.mov", Line: "Stream mapping:"})
	r.JobProgress(ProgressSnapshot{Kind: KindExport, CurrentFrame: 120, TotalFrames: 240, Percent: 50, Determinate: true})
	r.JobComplete(JobOutcome{Kind: KindExport, InputFile: "in.mov", Status: StatusSucceeded, TotalTime: 3 * time.Second})

	events := decodeEvents(t, &buf)
	wantTypes := []string{"job_started", "log", "job_progress", "job_complete"}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i]["type"] != want {
			t.Errorf("event %d type = %v, want %s", i, events[i]["type"], want)
		}
	}

	if events[2]["percent"] != float64(50) {
		t.Errorf("percent = %v, want 50", events[2]["percent"])
	}
	if events[3]["status"] != StatusSucceeded || events[3]["duration_seconds"] != float64(3) {
		t.Errorf("job_complete = %v", events[3])
	}
	if _, ok := events[3]["error"]; ok {
		t.Error("successful job carries an error field")
	}
}

func TestJSONReporterThrottlesProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	r.JobStarted(JobStartInfo{Kind: KindExport})

	for _, pct := range []float32{10.1, 10.4, 10.9, 11.2, 11.3} {
		r.JobProgress(ProgressSnapshot{Kind: KindExport, Percent: pct, Determinate: true})
	}

	var progress int
	for _, ev := range decodeEvents(t, &buf) {
		if ev["type"] == "job_progress" {
			progress++
		}
	}
	if progress != 2 {
		t.Errorf("emitted %d progress events, want 2", progress)
	}
}

func TestJSONReporterIndeterminateProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	r.JobStarted(JobStartInfo{Kind: KindExport})
	r.JobProgress(ProgressSnapshot{Kind: KindExport, CurrentFrame: 42})

	events := decodeEvents(t, &buf)
	last := events[len(events)-1]
	if last["determinate"] != false {
		t.Errorf("determinate = %v", last["determinate"])
	}
	if _, ok := last["percent"]; ok {
		t.Error("indeterminate progress carries a percent")
	}
}

func TestJSONReporterBatchComplete(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	r.BatchComplete(BatchSummary{
		TotalFiles:     3,
		CompletedCount: 1,
		SucceededCount: 1,
		Aborted:        true,
		FileResults:    []FileResult{{Filename: "a.mp4", Status: StatusSucceeded}},
	})

	events := decodeEvents(t, &buf)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	ev := events[0]
	if ev["aborted"] != true || ev["completed_count"] != float64(1) || ev["total_files"] != float64(3) {
		t.Errorf("batch_complete = %v", ev)
	}
	results, ok := ev["file_results"].([]any)
	if !ok || len(results) != 1 {
		t.Errorf("file_results = %v", ev["file_results"])
	}
}
