// Package process runs one engine invocation: it spawns the executable,
// drains its combined output into log lines and progress reports, and
// terminates the whole process group on request.
package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	lgerrors "github.com/five82/lutgrade/internal/errors"
	"github.com/five82/lutgrade/internal/ffmpeg"
	"github.com/five82/lutgrade/internal/logging"
)

const (
	// DefaultGracePeriod is how long a terminated process may take to exit
	// after SIGTERM before it is killed.
	DefaultGracePeriod = 3 * time.Second

	// drainTimeout bounds how long output is drained after the process
	// exits. A grandchild holding the pipe open must not block completion.
	drainTimeout = time.Second

	readSize  = 4096
	tailLines = 20
)

// Listener receives output from a running process. Calls are made from the
// drain goroutine, one at a time.
type Listener interface {
	Log(line string)
	Progress(p ffmpeg.Progress)
}

type nopListener struct{}

func (nopListener) Log(string)              {}
func (nopListener) Progress(ffmpeg.Progress) {}

// Outcome describes how a process ended.
type Outcome struct {
	State    State
	ExitCode int
	// Err is set for Failed outcomes: a spawn error or an engine failure
	// carrying the tail of the output.
	Err error
}

// Option configures a Handle.
type Option func(*Handle)

// WithGracePeriod sets the SIGTERM to SIGKILL escalation delay.
func WithGracePeriod(d time.Duration) Option {
	return func(h *Handle) {
		if d > 0 {
			h.grace = d
		}
	}
}

// WithTotalFrames sets the frame count progress is measured against.
func WithTotalFrames(n uint64) Option {
	return func(h *Handle) { h.totalFrames = n }
}

// WithListener sets the receiver of log lines and progress.
func WithListener(l Listener) Option {
	return func(h *Handle) {
		if l != nil {
			h.listener = l
		}
	}
}

// WithCompletion sets a callback invoked exactly once when a started
// process reaches a terminal state, before Done is closed.
func WithCompletion(fn func(Outcome)) Option {
	return func(h *Handle) { h.onComplete = fn }
}

// WithName labels the handle in log messages.
func WithName(name string) Option {
	return func(h *Handle) { h.name = name }
}

// Handle owns a single engine process.
type Handle struct {
	name        string
	grace       time.Duration
	totalFrames uint64
	listener    Listener
	onComplete  func(Outcome)

	mu                 sync.Mutex
	state              State
	cmd                *exec.Cmd
	terminateRequested bool
	killTimer          *time.Timer
	outcome            Outcome
	tail               []string
	done               chan struct{}
}

// New creates an idle handle.
func New(opts ...Option) *Handle {
	h := &Handle{
		grace:    DefaultGracePeriod,
		listener: nopListener{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start spawns executable with args. A handle can be started once. On a
// spawn failure the handle is Failed, Done is closed and no completion
// callback is made.
func (h *Handle) Start(executable string, args []string) error {
	h.mu.Lock()
	if h.state != Idle {
		state := h.state
		h.mu.Unlock()
		return lgerrors.NewSpawnError(executable, fmt.Errorf("handle is %s", state))
	}
	h.state = Starting
	h.mu.Unlock()

	r, w, err := os.Pipe()
	if err != nil {
		return h.spawnFailed(lgerrors.NewSpawnError(executable, err))
	}

	cmd := exec.Command(executable, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return h.spawnFailed(lgerrors.NewSpawnError(executable, err))
	}
	// The child holds its own copy of the write end.
	w.Close()

	logging.Debug("process started", "name", h.name, "pid", cmd.Process.Pid, "command", commandLine(executable, args))

	h.mu.Lock()
	h.cmd = cmd
	h.state = Running
	if h.terminateRequested {
		h.beginTerminateLocked()
	}
	h.mu.Unlock()

	drained := make(chan struct{})
	go h.drain(r, drained)
	go h.monitor(cmd, r, drained, commandLine(executable, args))

	return nil
}

func (h *Handle) spawnFailed(err error) error {
	h.mu.Lock()
	h.state = Failed
	h.outcome = Outcome{State: Failed, ExitCode: -1, Err: err}
	close(h.done)
	h.mu.Unlock()
	logging.Warn("process failed to start", "name", h.name, "error", err)
	return err
}

// Terminate stops the process and blocks until it has reached a terminal
// state. A running process receives SIGTERM and, if still alive after the
// grace period, SIGKILL. Calling it again, or on a handle that never
// started or has already finished, returns immediately.
func (h *Handle) Terminate() {
	h.mu.Lock()
	switch h.state {
	case Starting:
		h.terminateRequested = true
	case Running:
		h.beginTerminateLocked()
	case Terminating:
	default:
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	<-h.done
}

func (h *Handle) beginTerminateLocked() {
	h.terminateRequested = true
	h.state = Terminating

	proc := h.cmd.Process
	if err := terminateGroup(proc); err != nil {
		logging.Warn("failed to send SIGTERM", "name", h.name, "pid", proc.Pid, "error", err)
	}

	grace := h.grace
	h.killTimer = time.AfterFunc(grace, func() {
		logging.Warn("process did not exit within grace period, killing", "name", h.name, "pid", proc.Pid, "grace", grace)
		if err := killGroup(proc); err != nil {
			logging.Error("failed to kill process", "name", h.name, "pid", proc.Pid, "error", err)
		}
	})
}

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Name returns the handle's label.
func (h *Handle) Name() string { return h.name }

// Done is closed once the handle reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the process has finished and returns its outcome. On a
// handle that was never started it returns an Idle outcome immediately.
func (h *Handle) Wait() Outcome {
	h.mu.Lock()
	if h.state == Idle {
		h.mu.Unlock()
		return Outcome{State: Idle}
	}
	h.mu.Unlock()

	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

func (h *Handle) monitor(cmd *exec.Cmd, r *os.File, drained <-chan struct{}, command string) {
	waitErr := cmd.Wait()

	select {
	case <-drained:
	case <-time.After(drainTimeout):
		logging.Debug("output still open after exit, closing", "name", h.name)
		r.Close()
		<-drained
	}
	r.Close()

	h.mu.Lock()
	if h.killTimer != nil {
		h.killTimer.Stop()
	}
	code := lgerrors.ExitCode(waitErr)
	out := Outcome{ExitCode: code}
	switch {
	case h.terminateRequested:
		out.State = Terminated
	case waitErr == nil:
		out.State = Succeeded
	default:
		out.State = Failed
		out.Err = lgerrors.NewEngineFailureError(command, code, strings.Join(h.tail, "\n"))
	}
	h.state = out.State
	h.outcome = out
	cb := h.onComplete
	h.mu.Unlock()

	logging.Debug("process finished", "name", h.name, "state", out.State, "exit_code", code)

	if cb != nil {
		cb(out)
	}
	close(h.done)
}

func (h *Handle) drain(r io.Reader, drained chan<- struct{}) {
	defer close(drained)

	scanner := ffmpeg.NewScanner(h.totalFrames)
	var lines ffmpeg.LineBuffer
	buf := make([]byte, readSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := ffmpeg.StripANSI(string(buf[:n]))
			for _, line := range lines.Write(chunk) {
				h.emitLine(line)
			}
			if p, ok := scanner.Scan(chunk); ok {
				h.listener.Progress(p)
			}
		}
		if err != nil {
			break
		}
	}

	if rest := lines.Flush(); rest != "" {
		h.emitLine(rest)
	}
	if p, ok := scanner.Flush(); ok {
		h.listener.Progress(p)
	}
}

func (h *Handle) emitLine(line string) {
	h.mu.Lock()
	h.tail = append(h.tail, line)
	if len(h.tail) > tailLines {
		h.tail = h.tail[len(h.tail)-tailLines:]
	}
	h.mu.Unlock()
	h.listener.Log(line)
}

func commandLine(executable string, args []string) string {
	return strings.Join(append([]string{executable}, args...), " ")
}
