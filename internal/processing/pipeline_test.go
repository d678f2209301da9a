//go:build unix

package processing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/five82/lutgrade/internal/ffmpeg"
	"github.com/five82/lutgrade/internal/grade"
	"github.com/five82/lutgrade/internal/reporter"
)

type pipelineFixture struct {
	pipeline *Pipeline
	prober   *fakeProber
	rep      *recordingReporter
	outDir   string
}

func newPipelineFixture(t *testing.T, policy Policy, failProbe ...string) *pipelineFixture {
	t.Helper()
	rep := newRecordingReporter()
	prober := &fakeProber{frames: 240, failOn: map[string]bool{}}
	for _, name := range failProbe {
		prober.failOn[name] = true
	}
	outDir := filepath.Join(t.TempDir(), "exports")
	orch := NewOrchestrator(&staticResolver{path: writeEngine(t)}, rep, WithGracePeriod(testGrace))
	return &pipelineFixture{
		pipeline: NewPipeline(PipelineConfig{
			Orchestrator: orch,
			Prober:       prober,
			Reporter:     rep,
			Profile:      ffmpeg.NewEncodingProfile(false),
			Policy:       policy,
		}),
		prober: prober,
		rep:    rep,
		outDir: outDir,
	}
}

func (f *pipelineFixture) jobs(names ...string) []ExportJob {
	sources := make([]string, len(names))
	for i, n := range names {
		sources[i] = filepath.Join("/footage", n)
	}
	return NewExportJobs(sources, f.outDir, grade.New().WithPrimaryLUT("/luts/look.cube"))
}

func TestNewExportJobsDerivesDestinations(t *testing.T) {
	g := grade.New().
		WithPrimaryLUT("/luts/base.cube").
		WithSecondaryLUT("/luts/Film Look.cube").
		WithOpacity(0.5)
	jobs := NewExportJobs([]string{"/footage/a.mov", "/footage/b.mp4"}, "/out", g)

	want := []string{
		"/out/a_converted_Film Look_50percent.mp4",
		"/out/b_converted_Film Look_50percent.mp4",
	}
	for i, job := range jobs {
		if job.Destination != want[i] {
			t.Errorf("jobs[%d].Destination = %q, want %q", i, job.Destination, want[i])
		}
		if job.Grade != g {
			t.Errorf("jobs[%d] grade not snapshotted", i)
		}
	}
}

func TestPipelineRunsAllJobs(t *testing.T) {
	f := newPipelineFixture(t, DefaultPolicy())
	jobs := f.jobs("a.mov", "b.mov", "c.mov")

	res, err := f.pipeline.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Completed != 3 || res.Succeeded != 3 || res.Failed != 0 || res.Aborted {
		t.Fatalf("result = %+v", res)
	}
	if res.Progress() != 1 {
		t.Errorf("Progress() = %v, want 1", res.Progress())
	}
	for _, job := range jobs {
		if _, err := os.Stat(job.Destination); err != nil {
			t.Errorf("missing output %s: %v", job.Destination, err)
		}
	}

	// Progress never moves backwards and ends at 1.
	snaps := f.rep.BatchSnapshots()
	last := -1.0
	for _, s := range snaps {
		if s.Fraction < last {
			t.Errorf("batch progress went backwards: %v", snaps)
			break
		}
		last = s.Fraction
	}
	if last != 1 {
		t.Errorf("final batch progress = %v, want 1", last)
	}

	sums := f.rep.Summaries()
	if len(sums) != 1 || sums[0].SucceededCount != 3 || len(sums[0].FileResults) != 3 {
		t.Fatalf("summaries = %+v", sums)
	}
	if sums[0].TotalSize != uint64(3*len("graded")) {
		t.Errorf("TotalSize = %d", sums[0].TotalSize)
	}
}

func TestPipelineHaltsOnProbeFailure(t *testing.T) {
	f := newPipelineFixture(t, DefaultPolicy(), "b.mov")

	res, err := f.pipeline.Run(context.Background(), f.jobs("a.mov", "b.mov", "c.mov"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Aborted || res.Completed != 1 || res.Succeeded != 1 {
		t.Fatalf("result = %+v", res)
	}
	if got, want := res.Progress(), 1.0/3.0; got != want {
		t.Errorf("Progress() = %v, want %v", got, want)
	}
	if res.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", res.CurrentIndex)
	}
	if probed := f.prober.Probed(); len(probed) != 2 {
		t.Errorf("probed = %v; third job must not run", probed)
	}
	if len(res.Results) != 2 || res.Results[1].Status != reporter.StatusFailed || res.Results[1].Err == nil {
		t.Errorf("results = %+v", res.Results)
	}
	if sums := f.rep.Summaries(); len(sums) != 1 || !sums[0].Aborted {
		t.Errorf("summaries = %+v", sums)
	}
}

func TestPipelineContinuesPastProbeFailureWhenAllowed(t *testing.T) {
	f := newPipelineFixture(t, Policy{}, "b.mov")

	res, err := f.pipeline.Run(context.Background(), f.jobs("a.mov", "b.mov", "c.mov"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Aborted || res.Completed != 3 || res.Succeeded != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestPipelineEngineFailurePolicy(t *testing.T) {
	tests := []struct {
		name          string
		policy        Policy
		wantCompleted int
		wantSucceeded int
		wantAborted   bool
	}{
		{"continue", DefaultPolicy(), 3, 2, false},
		{"halt", Policy{HaltOnProbeFailure: true, HaltOnEngineFailure: true}, 2, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t, tt.policy)
			res, err := f.pipeline.Run(context.Background(), f.jobs("a.mov", "__fail__b.mov", "c.mov"))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.Completed != tt.wantCompleted || res.Succeeded != tt.wantSucceeded ||
				res.Failed != 1 || res.Aborted != tt.wantAborted {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestPipelineSkipsProbeWhenFramesKnown(t *testing.T) {
	f := newPipelineFixture(t, DefaultPolicy())
	jobs := f.jobs("a.mov")
	jobs[0].TotalFrames = 480

	if _, err := f.pipeline.Run(context.Background(), jobs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if probed := f.prober.Probed(); len(probed) != 0 {
		t.Errorf("probed = %v, want none", probed)
	}
}

func TestPipelineAbort(t *testing.T) {
	f := newPipelineFixture(t, DefaultPolicy())
	jobs := f.jobs("__slow__a.mov", "b.mov")

	done := make(chan *BatchResult, 1)
	go func() {
		res, _ := f.pipeline.Run(context.Background(), jobs)
		done <- res
	}()
	f.rep.waitReady(t)
	if !f.pipeline.Running() {
		t.Error("Running() = false during batch")
	}
	f.pipeline.Abort()

	var res *BatchResult
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not stop")
	}
	if !res.Aborted || res.Completed != 0 {
		t.Errorf("result = %+v", res)
	}
	if probed := f.prober.Probed(); len(probed) != 1 {
		t.Errorf("probed = %v; second job must not start", probed)
	}
	if _, err := os.Stat(jobs[1].Destination); !os.IsNotExist(err) {
		t.Errorf("second job produced output: %v", err)
	}
	if f.pipeline.Running() {
		t.Error("Running() = true after batch")
	}
}

func TestPipelineAbortBeforeRun(t *testing.T) {
	f := newPipelineFixture(t, DefaultPolicy())
	f.pipeline.Abort()

	res, err := f.pipeline.Run(context.Background(), f.jobs("a.mov", "b.mov"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Aborted || res.Completed != 0 {
		t.Errorf("result = %+v", res)
	}
	if probed := f.prober.Probed(); len(probed) != 0 {
		t.Errorf("probed = %v; no job may start", probed)
	}

	// The stop request is consumed by the batch it stopped.
	res, err = f.pipeline.Run(context.Background(), f.jobs("c.mov"))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.Aborted || res.Succeeded != 1 {
		t.Errorf("second result = %+v", res)
	}
}

func TestPipelineEmptyBatch(t *testing.T) {
	f := newPipelineFixture(t, DefaultPolicy())
	res, err := f.pipeline.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Total != 0 || res.Progress() != 0 || res.Aborted {
		t.Errorf("result = %+v", res)
	}
	if len(f.rep.Summaries()) != 1 {
		t.Error("BatchComplete not emitted")
	}
}
