package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/five82/lutgrade/internal/util"
	"github.com/schollz/progressbar/v3"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool

	mu         sync.Mutex
	progress   *progressbar.ProgressBar
	maxPercent float32
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	boldGreen  *color.Color
	faint      *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr, verbose)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom
// writers. The progress bar is drawn on errOut.
func NewTerminalReporterWithWriters(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:       out,
		errOut:    errOut,
		verbose:   verbose,
		cyan:      color.New(color.FgCyan, color.Bold),
		green:     color.New(color.FgGreen),
		yellow:    color.New(color.FgYellow, color.Bold),
		red:       color.New(color.FgRed, color.Bold),
		magenta:   color.New(color.FgMagenta),
		bold:      color.New(color.Bold),
		boldGreen: color.New(color.FgGreen, color.Bold),
		faint:     color.New(color.Faint),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

// Log prints engine output in verbose mode only.
func (r *TerminalReporter) Log(line LogLine) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "  %s %s\n", r.faint.Sprint(line.Kind), line.Line)
}

func (r *TerminalReporter) JobStarted(info JobStartInfo) {
	r.finishProgress()

	const w = 10
	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, strings.ToUpper(info.Kind))
	r.printLabel(w, "File:", info.InputFile)
	r.printLabel(w, "Output:", info.OutputFile)
	r.printLabel(w, "LUT:", orNone(filepath.Base(info.PrimaryLUT), info.PrimaryLUT))
	if info.SecondaryLUT != "" {
		r.printLabel(w, "Blend:", fmt.Sprintf("%s at %d%%",
			filepath.Base(info.SecondaryLUT), util.OpacityPercent(info.Opacity)))
	}
	if info.WhiteBalance != 0 {
		r.printLabel(w, "Balance:", util.FormatDecimal(info.WhiteBalance))
	}
	if info.Encoder != "" {
		r.printLabel(w, "Encoder:", info.Encoder)
	}

	if info.Kind != KindExport {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Exporting [",
			BarEnd:        "]",
		}),
	)
}

func orNone(display, value string) string {
	if value == "" {
		return "none"
	}
	return display
}

func (r *TerminalReporter) JobProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	desc := fmt.Sprintf("frame %d", progress.CurrentFrame)
	if progress.Determinate {
		clamped := min(max(progress.Percent, 0), 100)
		if clamped >= r.maxPercent {
			r.maxPercent = clamped
			_ = r.progress.Set64(int64(clamped))
		}
		desc = fmt.Sprintf("frame %d/%d", progress.CurrentFrame, progress.TotalFrames)
	}
	if progress.Elapsed > 0 {
		desc += ", at " + util.FormatDuration(progress.Elapsed.Seconds())
	}
	r.progress.Describe(desc)
}

func (r *TerminalReporter) JobComplete(outcome JobOutcome) {
	r.finishProgress()

	var status string
	switch outcome.Status {
	case StatusSucceeded:
		status = r.boldGreen.Sprint("✓ done")
	case StatusTerminated:
		status = r.yellow.Sprint("stopped")
	default:
		status = r.red.Sprintf("✗ failed (exit %d)", outcome.ExitCode)
	}

	fmt.Fprintf(r.out, "  %s %s in %s\n",
		status,
		r.bold.Sprint(filepath.Base(outcome.InputFile)),
		util.FormatDurationFromSecs(int64(outcome.TotalTime.Seconds())))
	if outcome.Status == StatusSucceeded && outcome.OutputFile != "" && outcome.Kind == KindExport {
		fmt.Fprintf(r.out, "  %s %s (%s)\n",
			r.bold.Sprint("Saved to"), r.green.Sprint(outcome.OutputFile), util.FormatBytes(outcome.OutputSize))
	}
	if outcome.Error != "" {
		fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), outcome.Error)
	}
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%s %s\n", r.boldGreen.Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "BATCH")
	fmt.Fprintf(r.out, "  Exporting %d files -> %s\n", info.TotalFiles, r.bold.Sprint(info.OutputDir))
	for i, name := range info.FileList {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) FileProgress(context FileProgressContext) {
	fmt.Fprintf(r.out, "\nFile %s of %d\n",
		r.bold.Sprint(context.CurrentFile),
		context.TotalFiles)
}

// BatchProgress is shown through the per-job bar.
func (r *TerminalReporter) BatchProgress(BatchProgressSnapshot) {}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	r.finishProgress()

	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "BATCH SUMMARY")
	fmt.Fprintf(r.out, "  %s\n", r.bold.Sprintf("%d of %d succeeded", summary.SucceededCount, summary.TotalFiles))
	if summary.FailedCount > 0 {
		fmt.Fprintf(r.out, "  Failed: %s\n", r.red.Sprint(summary.FailedCount))
	}
	if summary.Aborted {
		_, _ = r.yellow.Fprintf(r.out, "  Aborted after %d of %d\n", summary.CompletedCount, summary.TotalFiles)
	}
	fmt.Fprintf(r.out, "  Size: %s\n", util.FormatBytes(summary.TotalSize))
	fmt.Fprintf(r.out, "  Time: %s\n", util.FormatDurationFromSecs(int64(summary.TotalDuration.Seconds())))

	for _, result := range summary.FileResults {
		fmt.Fprintf(r.out, "  - %s (%s)\n", result.Filename, result.Status)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), message)
}
