// Package lutgrade applies 3D LUT color grades to video by driving FFmpeg.
//
// It renders single-frame previews of a grade and exports graded copies of
// whole videos, one at a time. Only one export runs at once; a new preview
// replaces the one in flight.
//
// Basic usage:
//
//	engine, err := lutgrade.New(
//	    lutgrade.WithHardwareAcceleration(false),
//	    lutgrade.WithEvents(lutgrade.Events{
//	        OnProgress: func(p lutgrade.ProgressSnapshot) { fmt.Printf("%.0f%%\n", p.Percent) },
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	look := lutgrade.NewGrade().WithPrimaryLUT("base.cube").WithWhiteBalance(2)
//	result, err := engine.Export(ctx, "input.mov", "graded/", look)
package lutgrade

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/lutgrade/internal/config"
	"github.com/five82/lutgrade/internal/discovery"
	lgerrors "github.com/five82/lutgrade/internal/errors"
	"github.com/five82/lutgrade/internal/ffmpeg"
	"github.com/five82/lutgrade/internal/ffprobe"
	"github.com/five82/lutgrade/internal/grade"
	"github.com/five82/lutgrade/internal/processing"
	"github.com/five82/lutgrade/internal/reporter"
)

// Grade is an immutable color grade; builder methods return copies.
type Grade = grade.Config

// NewGrade returns a neutral grade with full blend opacity.
func NewGrade() Grade { return grade.New() }

// Re-exported event payloads.
type (
	Reporter         = reporter.Reporter
	LogLine          = reporter.LogLine
	ProgressSnapshot = reporter.ProgressSnapshot
	JobOutcome       = reporter.JobOutcome
	BatchSummary     = reporter.BatchSummary
)

// Events receives engine notifications. Callbacks run synchronously on
// engine goroutines and must not block.
type Events struct {
	OnLog           func(LogLine)
	OnProgress      func(ProgressSnapshot)
	OnJobComplete   func(JobOutcome)
	OnBatchComplete func(BatchSummary)
}

// Engine runs previews and exports.
type Engine struct {
	config   config.Config
	profile  ffmpeg.EncodingProfile
	orch     *processing.Orchestrator
	pipeline *processing.Pipeline
}

// PreviewResult describes a rendered preview frame.
type PreviewResult struct {
	ImagePath string
	Duration  time.Duration
}

// Result contains the result of a single export.
type Result struct {
	SourceFile string
	OutputFile string
	OutputSize uint64
	Duration   time.Duration
}

// BatchResult contains the result of a batch export.
type BatchResult struct {
	Results        []Result
	TotalFiles     int
	CompletedCount int
	SucceededCount int
	FailedCount    int
	Aborted        bool
}

type settings struct {
	cfg    *config.Config
	events Events
	rep    reporter.Reporter
}

// Option configures the engine.
type Option func(*settings)

// WithFFmpegPath pins the ffmpeg executable instead of searching for it.
func WithFFmpegPath(path string) Option {
	return func(s *settings) { s.cfg.FFmpegPath = path }
}

// WithFFprobePath pins the ffprobe executable instead of searching for it.
func WithFFprobePath(path string) Option {
	return func(s *settings) { s.cfg.FFprobePath = path }
}

// WithHardwareAcceleration selects the VideoToolbox (true) or libx264
// (false) export profile.
func WithHardwareAcceleration(enable bool) Option {
	return func(s *settings) { s.cfg.UseHardwareAcceleration = enable }
}

// WithTerminationGrace sets how long a terminated engine may take to exit
// before it is killed.
func WithTerminationGrace(d time.Duration) Option {
	return func(s *settings) { s.cfg.TerminationGrace = d }
}

// WithTempDir sets where preview frames are written.
func WithTempDir(dir string) Option {
	return func(s *settings) { s.cfg.TempDir = dir }
}

// WithPreviewOffset sets the source timestamp previews are taken from.
func WithPreviewOffset(d time.Duration) Option {
	return func(s *settings) { s.cfg.PreviewOffset = d }
}

// WithHaltOnProbeFailure decides whether a batch stops at a source whose
// frame count cannot be probed.
func WithHaltOnProbeFailure(halt bool) Option {
	return func(s *settings) { s.cfg.HaltOnProbeFailure = halt }
}

// WithHaltOnEngineFailure decides whether a batch stops after a failed
// export.
func WithHaltOnEngineFailure(halt bool) Option {
	return func(s *settings) { s.cfg.HaltOnEngineFailure = halt }
}

// WithEvents registers event callbacks.
func WithEvents(ev Events) Option {
	return func(s *settings) { s.events = ev }
}

// WithReporter attaches a reporter that receives every engine event.
func WithReporter(rep Reporter) Option {
	return func(s *settings) { s.rep = rep }
}

// New creates an Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	s := &settings{cfg: config.NewConfig(".", ".")}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.cfg.Validate(); err != nil {
		return nil, lgerrors.NewConfigError(err.Error())
	}

	rep := reporter.NewCompositeReporter(newEventReporter(s.events), s.rep)
	resolver := discovery.NewResolver(s.cfg.ConfiguredExecutables())
	orch := processing.NewOrchestrator(resolver, rep, processing.WithGracePeriod(s.cfg.TerminationGrace))
	profile := ffmpeg.NewEncodingProfile(s.cfg.UseHardwareAcceleration)

	return &Engine{
		config:  *s.cfg,
		profile: profile,
		orch:    orch,
		pipeline: processing.NewPipeline(processing.PipelineConfig{
			Orchestrator: orch,
			Prober:       ffprobe.NewFrameProber(resolver),
			Reporter:     rep,
			Profile:      profile,
			Policy: processing.Policy{
				HaltOnProbeFailure:  s.cfg.HaltOnProbeFailure,
				HaltOnEngineFailure: s.cfg.HaltOnEngineFailure,
			},
		}),
	}, nil
}

// Preview renders one graded frame of input to a temporary PNG. A preview
// already in flight is terminated first; previews are rejected while an
// export runs.
func (e *Engine) Preview(ctx context.Context, input string, g Grade) (*PreviewResult, error) {
	res, err := e.orch.RunPreview(ctx, processing.PreviewRequest{
		Input:  input,
		Output: e.config.PreviewPath(),
		Offset: e.config.PreviewOffset,
		Grade:  g,
	})
	if err != nil {
		return nil, err
	}
	if err := resultError(res); err != nil {
		return nil, err
	}
	return &PreviewResult{ImagePath: res.Output, Duration: res.Duration}, nil
}

// Export grades input into outputDir.
func (e *Engine) Export(ctx context.Context, input, outputDir string, g Grade) (*Result, error) {
	batch, err := e.pipeline.Run(ctx, processing.NewExportJobs([]string{input}, outputDir, g))
	if err != nil {
		return nil, err
	}
	if len(batch.Results) == 0 {
		return nil, lgerrors.NewCancelledError("")
	}

	jr := batch.Results[0]
	switch {
	case jr.Err != nil:
		return nil, jr.Err
	case jr.Status != reporter.StatusSucceeded:
		return nil, lgerrors.NewCancelledError("")
	}
	r := toResult(jr)
	return &r, nil
}

// ExportBatch grades inputs into outputDir one at a time. Job failures are
// reported in the result; the error is set only when the batch could not
// run.
func (e *Engine) ExportBatch(ctx context.Context, inputs []string, outputDir string, g Grade) (*BatchResult, error) {
	batch, err := e.pipeline.Run(ctx, processing.NewExportJobs(inputs, outputDir, g))
	if batch == nil {
		return nil, err
	}

	out := &BatchResult{
		TotalFiles:     batch.Total,
		CompletedCount: batch.Completed,
		SucceededCount: batch.Succeeded,
		FailedCount:    batch.Failed,
		Aborted:        batch.Aborted,
	}
	for _, jr := range batch.Results {
		if jr.Status == reporter.StatusSucceeded {
			out.Results = append(out.Results, toResult(jr))
		}
	}
	return out, err
}

// Abort stops the running batch, export and preview. Partial output is left
// in place. An idle engine ignores the call.
func (e *Engine) Abort() {
	if e.pipeline.Running() {
		e.pipeline.Abort()
	}
	e.orch.Abort()
}

// FindVideos finds video files in a directory.
func FindVideos(dir string) ([]string, error) {
	return discovery.FindVideoFiles(dir)
}

// FindLUTs finds .cube and .3dl files in a directory.
func FindLUTs(dir string) ([]string, error) {
	return discovery.FindLUTFiles(dir)
}

func toResult(jr processing.JobResult) Result {
	return Result{
		SourceFile: jr.Job.Source,
		OutputFile: jr.Job.Destination,
		OutputSize: jr.OutputSize,
		Duration:   jr.Duration,
	}
}

func resultError(res processing.Result) error {
	switch {
	case res.Succeeded():
		return nil
	case res.Err != nil:
		return res.Err
	default:
		return lgerrors.NewCancelledError(fmt.Sprintf("%s terminated", res.Kind))
	}
}

// eventReporter adapts Events to the Reporter interface.
type eventReporter struct {
	reporter.NullReporter
	events Events
}

func newEventReporter(ev Events) reporter.Reporter {
	if ev.OnLog == nil && ev.OnProgress == nil && ev.OnJobComplete == nil && ev.OnBatchComplete == nil {
		return nil
	}
	return &eventReporter{events: ev}
}

func (r *eventReporter) Log(l reporter.LogLine) {
	if r.events.OnLog != nil {
		r.events.OnLog(l)
	}
}

func (r *eventReporter) JobProgress(p reporter.ProgressSnapshot) {
	if r.events.OnProgress != nil {
		r.events.OnProgress(p)
	}
}

func (r *eventReporter) JobComplete(o reporter.JobOutcome) {
	if r.events.OnJobComplete != nil {
		r.events.OnJobComplete(o)
	}
}

func (r *eventReporter) BatchComplete(s reporter.BatchSummary) {
	if r.events.OnBatchComplete != nil {
		r.events.OnBatchComplete(s)
	}
}
