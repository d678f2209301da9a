//go:build unix

package processing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/lutgrade/internal/reporter"
)

const testGrace = 200 * time.Millisecond

// fakeEngine fails for arguments containing __fail__, runs until
// terminated for __slow__, and otherwise reports two progress lines and
// writes its last argument.
const fakeEngine = `#!/bin/sh
for a in "$@"; do last="$a"; done
case "$*" in
  *__fail__*) echo "No such filter: 'lut3d'" >&2; exit 1 ;;
  *__slow__*) trap 'exit 255' TERM; echo ready; while :; do sleep 0.05; done ;;
esac
echo "frame=  120 fps=30 q=-0.0 size=N/A time=00:00:04.00 bitrate=N/A speed=1x"
sleep 0.05
echo "frame=  240 fps=30 q=-0.0 size=N/A time=00:00:08.00 bitrate=N/A speed=1x"
printf graded > "$last"
exit 0
`

func writeEngine(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(fakeEngine), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

type staticResolver struct {
	mu    sync.Mutex
	path  string
	err   error
	calls int
}

func (r *staticResolver) Resolve(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.path, r.err
}

func (r *staticResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeProber struct {
	mu     sync.Mutex
	frames uint64
	failOn map[string]bool
	probed []string
}

func (p *fakeProber) TotalFrames(ctx context.Context, path string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, filepath.Base(path))
	if p.failOn[filepath.Base(path)] {
		return 0, fmt.Errorf("no video stream in %s", path)
	}
	return p.frames, nil
}

func (p *fakeProber) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

// recordingReporter records a compact event trace.
type recordingReporter struct {
	reporter.NullReporter

	mu        sync.Mutex
	events    []string
	outcomes  []reporter.JobOutcome
	batch     []reporter.BatchProgressSnapshot
	summaries []reporter.BatchSummary
	logs      []reporter.LogLine
	ready     chan struct{}
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{ready: make(chan struct{}, 16)}
}

func (r *recordingReporter) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingReporter) Log(l reporter.LogLine) {
	r.mu.Lock()
	r.logs = append(r.logs, l)
	r.mu.Unlock()
	if l.Line == "ready" {
		r.ready <- struct{}{}
	}
}

func (r *recordingReporter) JobStarted(info reporter.JobStartInfo) {
	r.add("start " + info.Kind + " " + filepath.Base(info.InputFile))
}

func (r *recordingReporter) JobComplete(o reporter.JobOutcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
	r.add("complete " + o.Kind + " " + filepath.Base(o.InputFile) + " " + o.Status)
}

func (r *recordingReporter) BatchProgress(p reporter.BatchProgressSnapshot) {
	r.mu.Lock()
	r.batch = append(r.batch, p)
	r.mu.Unlock()
}

func (r *recordingReporter) BatchComplete(s reporter.BatchSummary) {
	r.mu.Lock()
	r.summaries = append(r.summaries, s)
	r.mu.Unlock()
}

func (r *recordingReporter) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingReporter) Logs() []reporter.LogLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reporter.LogLine(nil), r.logs...)
}

func (r *recordingReporter) BatchSnapshots() []reporter.BatchProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reporter.BatchProgressSnapshot(nil), r.batch...)
}

func (r *recordingReporter) Summaries() []reporter.BatchSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reporter.BatchSummary(nil), r.summaries...)
}

// waitReady blocks until a slow engine has printed its ready line.
func (r *recordingReporter) waitReady(t *testing.T) {
	t.Helper()
	select {
	case <-r.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never became ready")
	}
}

func indexOf(events []string, prefix string) int {
	for i, ev := range events {
		if strings.HasPrefix(ev, prefix) {
			return i
		}
	}
	return -1
}
