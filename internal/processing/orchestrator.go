// Package processing mediates access to the engine: it owns one preview
// and one export slot, enforces the policies between them, and runs
// sequential export batches on top.
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

// EngineName is the executable resolved for every job.
const EngineName = "ffmpeg"

// AbortMessage is logged when Abort stops a running job.
const AbortMessage = "Process aborted by user."

// JobKind selects the slot and policy a job runs under.
type JobKind int

const (
	JobPreview JobKind = iota
	JobExport
)

func (k JobKind) String() string {
	if k == JobExport {
		return reporter.KindExport
	}
	return reporter.KindPreview
}

// ExecutableResolver finds the engine executable.
type ExecutableResolver interface {
	Resolve(name string) (string, error)
}

// PreviewRequest renders one graded frame.
type PreviewRequest struct {
	Input  string
	Output string
	Offset time.Duration
	Grade  grade.Config
}

// ExportRequest grades and transcodes a whole source.
type ExportRequest struct {
	Input       string
	Output      string
	Grade       grade.Config
	Profile     ffmpeg.EncodingProfile
	TotalFrames uint64
	// OnProgress, if set, is called after the reporter for every progress
	// report of this export.
	OnProgress func(ffmpeg.Progress)
}

// Result describes a job that ran.
type Result struct {
	Kind     JobKind
	Input    string
	Output   string
	State    process.State
	ExitCode int
	// Err carries the engine failure for Failed results.
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the engine exited cleanly.
func (r Result) Succeeded() bool { return r.State == process.Succeeded }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGracePeriod sets the termination grace period of every handle.
func WithGracePeriod(d time.Duration) Option {
	return func(o *Orchestrator) { o.grace = d }
}

// Orchestrator owns at most one preview and one export process.
type Orchestrator struct {
	resolver ExecutableResolver
	rep      reporter.Reporter
	grace    time.Duration

	// opMu serializes slot transitions: terminating a previous occupant,
	// resolving the engine and spawning. Waiting for a job to finish
	// happens outside it.
	opMu sync.Mutex

	mu    sync.Mutex
	slots [2]*process.Handle
}

// NewOrchestrator creates an orchestrator. rep may be nil.
func NewOrchestrator(resolver ExecutableResolver, rep reporter.Reporter, opts ...Option) *Orchestrator {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	o := &Orchestrator{
		resolver: resolver,
		rep:      rep,
		grace:    process.DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Active returns the handle occupying the slot for kind, or nil.
func (o *Orchestrator) Active(kind JobKind) *process.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.slots[kind]
}

// RunPreview renders a preview frame and blocks until the engine exits.
// Any running preview is terminated first. While an export runs previews
// are rejected. The returned error is set only when no process ran.
func (o *Orchestrator) RunPreview(ctx context.Context, req PreviewRequest) (Result, error) {
	o.opMu.Lock()

	if o.Active(JobExport) != nil {
		o.opMu.Unlock()
		return Result{}, lgerrors.NewBusyError("an export is running; previews are unavailable until it finishes")
	}
	o.terminate(JobPreview)

	info := reporter.JobStartInfo{
		Kind:         reporter.KindPreview,
		InputFile:    req.Input,
		OutputFile:   req.Output,
		PrimaryLUT:   req.Grade.PrimaryLUT(),
		SecondaryLUT: req.Grade.SecondaryLUT(),
		Opacity:      req.Grade.Opacity(),
		WhiteBalance: req.Grade.WhiteBalance(),
	}
	args := ffmpeg.BuildPreviewArgs(req.Input, req.Output, req.Offset, req.Grade)

	h, start, err := o.start(ctx, JobPreview, info, args, 0, nil)
	o.opMu.Unlock()
	if err != nil {
		return Result{}, err
	}

	return o.await(ctx, JobPreview, h, req.Input, req.Output, start), nil
}

// RunExport exports a source and blocks until the engine exits. Any
// running preview is terminated first; a second concurrent export is
// rejected. The returned error is set only when no process ran.
func (o *Orchestrator) RunExport(ctx context.Context, req ExportRequest) (Result, error) {
	o.opMu.Lock()

	if o.Active(JobExport) != nil {
		o.opMu.Unlock()
		return Result{}, lgerrors.NewBusyError("an export is already running")
	}
	o.terminate(JobPreview)

	if err := util.EnsureDirectory(filepath.Dir(req.Output)); err != nil {
		o.opMu.Unlock()
		return Result{}, lgerrors.NewIOError("failed to create output directory", err)
	}

	info := reporter.JobStartInfo{
		Kind:         reporter.KindExport,
		InputFile:    req.Input,
		OutputFile:   req.Output,
		TotalFrames:  req.TotalFrames,
		PrimaryLUT:   req.Grade.PrimaryLUT(),
		SecondaryLUT: req.Grade.SecondaryLUT(),
		Opacity:      req.Grade.Opacity(),
		WhiteBalance: req.Grade.WhiteBalance(),
		Encoder:      req.Profile.Describe(),
	}
	args := ffmpeg.BuildExportArgs(req.Input, req.Output, req.Grade, req.Profile)

	h, start, err := o.start(ctx, JobExport, info, args, req.TotalFrames, req.OnProgress)
	o.opMu.Unlock()
	if err != nil {
		return Result{}, err
	}

	return o.await(ctx, JobExport, h, req.Input, req.Output, start), nil
}

// Abort terminates the running export, then the running preview, waiting
// for each. It is a no-op when nothing runs.
func (o *Orchestrator) Abort() {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	stopped := o.terminate(JobExport)
	if o.terminate(JobPreview) {
		stopped = true
	}
	if stopped {
		logging.Info(AbortMessage)
		o.rep.Log(reporter.LogLine{Line: AbortMessage})
	}
}

// terminate stops the occupant of kind's slot and waits for it. Callers
// hold opMu. Reports whether there was an occupant.
func (o *Orchestrator) terminate(kind JobKind) bool {
	h := o.Active(kind)
	if h == nil {
		return false
	}
	h.Terminate()
	// The completion callback has cleared the slot by now; clear it anyway
	// for handles that failed to spawn.
	o.release(kind, h)
	return true
}

func (o *Orchestrator) release(kind JobKind, h *process.Handle) {
	o.mu.Lock()
	if o.slots[kind] == h {
		o.slots[kind] = nil
	}
	o.mu.Unlock()
}

// start resolves the engine and spawns a handle into kind's slot. Callers
// hold opMu.
func (o *Orchestrator) start(
	ctx context.Context,
	kind JobKind,
	info reporter.JobStartInfo,
	args []string,
	totalFrames uint64,
	onProgress func(ffmpeg.Progress),
) (*process.Handle, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, lgerrors.NewCancelledError("")
	}

	exe, err := o.resolver.Resolve(EngineName)
	if err != nil {
		o.rep.Error(reporter.ReporterError{
			Title:      "FFmpeg Not Found",
			Message:    err.Error(),
			Suggestion: "Install FFmpeg or set its path in the configuration",
		})
		return nil, time.Time{}, err
	}

	start := time.Now()
	var h *process.Handle
	h = process.New(
		process.WithName(kind.String()+" "+filepath.Base(info.InputFile)),
		process.WithGracePeriod(o.grace),
		process.WithTotalFrames(totalFrames),
		process.WithListener(&jobListener{
			rep:        o.rep,
			kind:       kind,
			job:        filepath.Base(info.InputFile),
			onProgress: onProgress,
		}),
		process.WithCompletion(func(out process.Outcome) {
			o.release(kind, h)
			o.rep.JobComplete(jobOutcome(kind, info.InputFile, info.OutputFile, out, time.Since(start)))
		}),
	)

	o.mu.Lock()
	o.slots[kind] = h
	o.mu.Unlock()

	o.rep.JobStarted(info)
	if err := h.Start(exe, args); err != nil {
		o.release(kind, h)
		o.rep.Error(reporter.ReporterError{
			Title:   "Engine Failed To Start",
			Message: err.Error(),
			Context: exe,
		})
		o.rep.JobComplete(reporter.JobOutcome{
			Kind:       kind.String(),
			InputFile:  info.InputFile,
			OutputFile: info.OutputFile,
			Status:     reporter.StatusFailed,
			ExitCode:   -1,
			Error:      err.Error(),
		})
		return nil, time.Time{}, err
	}
	return h, start, nil
}

// await waits for h outside the transition lock, terminating it if ctx is
// cancelled first.
func (o *Orchestrator) await(ctx context.Context, kind JobKind, h *process.Handle, input, output string, start time.Time) Result {
	select {
	case <-h.Done():
	case <-ctx.Done():
		logging.Debug("context cancelled, terminating job", "kind", kind, "input", input)
		h.Terminate()
	}

	out := h.Wait()
	return Result{
		Kind:     kind,
		Input:    input,
		Output:   output,
		State:    out.State,
		ExitCode: out.ExitCode,
		Err:      out.Err,
		Duration: time.Since(start),
	}
}

func jobOutcome(kind JobKind, input, output string, out process.Outcome, elapsed time.Duration) reporter.JobOutcome {
	res := reporter.JobOutcome{
		Kind:       kind.String(),
		InputFile:  input,
		OutputFile: output,
		ExitCode:   out.ExitCode,
		TotalTime:  elapsed,
	}
	switch out.State {
	case process.Succeeded:
		res.Status = reporter.StatusSucceeded
		if info, err := os.Stat(output); err == nil {
			res.OutputSize = uint64(info.Size())
		}
	case process.Terminated:
		res.Status = reporter.StatusTerminated
	default:
		res.Status = reporter.StatusFailed
		if out.Err != nil {
			res.Error = out.Err.Error()
		}
	}
	return res
}

// jobListener forwards process output to the reporter.
type jobListener struct {
	rep        reporter.Reporter
	kind       JobKind
	job        string
	onProgress func(ffmpeg.Progress)
}

func (l *jobListener) Log(line string) {
	l.rep.Log(reporter.LogLine{Kind: l.kind.String(), Job: l.job, Line: line})
}

func (l *jobListener) Progress(p ffmpeg.Progress) {
	l.rep.JobProgress(reporter.ProgressSnapshot{
		Kind:         l.kind.String(),
		CurrentFrame: p.Frames,
		TotalFrames:  p.TotalFrames,
		Percent:      float32(p.Fraction * 100),
		Determinate:  p.Determinate,
		Elapsed:      p.Elapsed,
	})
	if l.onProgress != nil {
		l.onProgress(p)
	}
}
