package processing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	lgerrors "github.com/five82/lutgrade/internal/errors"
	"github.com/five82/lutgrade/internal/ffmpeg"
	"github.com/five82/lutgrade/internal/grade"
	"github.com/five82/lutgrade/internal/logging"
	"github.com/five82/lutgrade/internal/process"
	"github.com/five82/lutgrade/internal/reporter"
	"github.com/five82/lutgrade/internal/util"
)

// Prober resolves the total frame count of a source.
type Prober interface {
	TotalFrames(ctx context.Context, path string) (uint64, error)
}

// ExportJob is one entry of a batch.
type ExportJob struct {
	Source      string
	Destination string
	Grade       grade.Config
	// TotalFrames is probed when zero.
	TotalFrames uint64
}

// NewExportJobs builds one job per source with destinations derived from
// the grade inside outputDir.
func NewExportJobs(sources []string, outputDir string, g grade.Config) []ExportJob {
	jobs := make([]ExportJob, 0, len(sources))
	for _, src := range sources {
		jobs = append(jobs, ExportJob{
			Source:      src,
			Destination: util.ResolveExportPath(src, outputDir, g.SecondaryLUT(), g.Opacity()),
			Grade:       g,
		})
	}
	return jobs
}

// JobResult is the outcome of one batch entry.
type JobResult struct {
	Job        ExportJob
	Status     string
	OutputSize uint64
	Duration   time.Duration
	Err        error
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Total        int
	Completed    int
	Succeeded    int
	Failed       int
	CurrentIndex int
	Aborted      bool
	Results      []JobResult
	Duration     time.Duration
}

// Progress returns completed / total, or 0 for an empty batch.
func (r *BatchResult) Progress() float64 {
	return overallProgress(r.Completed, 0, r.Total)
}

func overallProgress(completed int, current float64, total int) float64 {
	if total <= 0 {
		return 0
	}
	return (float64(completed) + current) / float64(total)
}

// Policy decides whether a failing job stops the batch.
type Policy struct {
	HaltOnProbeFailure  bool
	HaltOnEngineFailure bool
}

// DefaultPolicy halts on probe failures and continues past engine failures.
func DefaultPolicy() Policy {
	return Policy{HaltOnProbeFailure: true}
}

// PipelineConfig wires a Pipeline to its collaborators.
type PipelineConfig struct {
	Orchestrator *Orchestrator
	Prober       Prober
	Reporter     reporter.Reporter
	Profile      ffmpeg.EncodingProfile
	Policy       Policy
}

// Pipeline runs export jobs one at a time through the orchestrator.
type Pipeline struct {
	orch    *Orchestrator
	prober  Prober
	rep     reporter.Reporter
	profile ffmpeg.EncodingProfile
	policy  Policy

	mu      sync.Mutex
	running bool
	aborted bool
	cancel  context.CancelFunc
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	rep := cfg.Reporter
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &Pipeline{
		orch:    cfg.Orchestrator,
		prober:  cfg.Prober,
		rep:     rep,
		profile: cfg.Profile,
		policy:  cfg.Policy,
	}
}

// Abort stops the batch: the running export is terminated and no further
// job starts. Partial output is left in place.
func (p *Pipeline) Abort() {
	p.mu.Lock()
	p.aborted = true
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether a batch is in progress.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Run exports jobs in order and blocks until the batch ends. The error is
// set when the batch could not run at all or the engine is unavailable;
// job failures are recorded in the result.
func (p *Pipeline) Run(ctx context.Context, jobs []ExportJob) (*BatchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, lgerrors.NewBusyError("a batch export is already running")
	}
	p.running = true
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.aborted = false
		p.cancel = nil
		p.mu.Unlock()
	}()

	start := time.Now()
	result := &BatchResult{Total: len(jobs)}

	files := make([]string, len(jobs))
	for i, job := range jobs {
		files[i] = util.GetFilename(job.Source)
	}
	var outDir string
	if len(jobs) > 0 {
		outDir = filepath.Dir(jobs[0].Destination)
	}
	p.rep.BatchStarted(reporter.BatchStartInfo{
		TotalFiles: len(jobs),
		FileList:   files,
		OutputDir:  outDir,
	})

	var runErr error
	for i := 0; i < len(jobs); i++ {
		if p.stopRequested(ctx) {
			result.Aborted = true
			break
		}
		result.CurrentIndex = i
		p.rep.FileProgress(reporter.FileProgressContext{CurrentFile: i + 1, TotalFiles: len(jobs)})

		jr, halt, err := p.runJob(ctx, jobs[i], result)
		result.Results = append(result.Results, jr)
		p.rep.BatchProgress(reporter.BatchProgressSnapshot{
			Completed: result.Completed,
			Total:     result.Total,
			Fraction:  result.Progress(),
		})
		if err != nil {
			runErr = err
			result.Aborted = true
			break
		}
		if halt {
			result.Aborted = true
			break
		}
	}

	result.Duration = time.Since(start)
	p.rep.BatchComplete(summarize(result))
	logging.Info("batch finished",
		"total", result.Total,
		"completed", result.Completed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"aborted", result.Aborted)
	return result, runErr
}

// runJob probes, exports and records one job. halt reports whether the
// batch must stop after it.
func (p *Pipeline) runJob(ctx context.Context, job ExportJob, result *BatchResult) (JobResult, bool, error) {
	jr := JobResult{Job: job}
	start := time.Now()

	if job.TotalFrames == 0 {
		frames, err := p.prober.TotalFrames(ctx, job.Source)
		if err != nil {
			jr.Duration = time.Since(start)
			if p.stopRequested(ctx) {
				jr.Status = reporter.StatusTerminated
				return jr, true, nil
			}
			jr.Status = reporter.StatusFailed
			jr.Err = err
			p.rep.Error(reporter.ReporterError{
				Title:      "Probe Failed",
				Message:    err.Error(),
				Context:    job.Source,
				Suggestion: "Check that the file is a readable video",
			})
			if p.policy.HaltOnProbeFailure {
				return jr, true, nil
			}
			// Skipped jobs count as completed so the batch still reaches 100%.
			result.Completed++
			result.Failed++
			return jr, false, nil
		}
		job.TotalFrames = frames
		jr.Job = job
	}

	res, err := p.orch.RunExport(ctx, ExportRequest{
		Input:       job.Source,
		Output:      job.Destination,
		Grade:       job.Grade,
		Profile:     p.profile,
		TotalFrames: job.TotalFrames,
		OnProgress: func(pr ffmpeg.Progress) {
			if !pr.Determinate {
				return
			}
			p.rep.BatchProgress(reporter.BatchProgressSnapshot{
				Completed: result.Completed,
				Total:     result.Total,
				Fraction:  overallProgress(result.Completed, pr.Fraction, result.Total),
			})
		},
	})
	jr.Duration = time.Since(start)
	if err != nil {
		jr.Err = err
		switch {
		case lgerrors.IsCancelled(err):
			jr.Status = reporter.StatusTerminated
			return jr, true, nil
		case lgerrors.IsExecutableUnavailable(err), lgerrors.IsKind(err, lgerrors.KindBusy):
			jr.Status = reporter.StatusFailed
			return jr, true, err
		}
		// The engine never ran; treat it like an engine failure.
		jr.Status = reporter.StatusFailed
		result.Completed++
		result.Failed++
		return jr, p.policy.HaltOnEngineFailure, nil
	}

	switch res.State {
	case process.Succeeded:
		jr.Status = reporter.StatusSucceeded
		if info, err := os.Stat(job.Destination); err == nil {
			jr.OutputSize = uint64(info.Size())
		}
		result.Completed++
		result.Succeeded++
		return jr, false, nil
	case process.Terminated:
		jr.Status = reporter.StatusTerminated
		return jr, true, nil
	default:
		jr.Status = reporter.StatusFailed
		jr.Err = res.Err
		result.Completed++
		result.Failed++
		logging.Warn("export failed", "source", job.Source, "exit_code", res.ExitCode)
		return jr, p.policy.HaltOnEngineFailure, nil
	}
}

func (p *Pipeline) stopRequested(ctx context.Context) bool {
	p.mu.Lock()
	aborted := p.aborted
	p.mu.Unlock()
	return aborted || ctx.Err() != nil
}

func summarize(r *BatchResult) reporter.BatchSummary {
	s := reporter.BatchSummary{
		TotalFiles:     r.Total,
		CompletedCount: r.Completed,
		SucceededCount: r.Succeeded,
		FailedCount:    r.Failed,
		Aborted:        r.Aborted,
		TotalDuration:  r.Duration,
	}
	for _, jr := range r.Results {
		s.TotalSize += jr.OutputSize
		s.FileResults = append(s.FileResults, reporter.FileResult{
			Filename:   filepath.Base(jr.Job.Source),
			Status:     jr.Status,
			OutputSize: jr.OutputSize,
		})
	}
	return s
}
