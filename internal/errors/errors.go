// Package errors provides structured error types for lutgrade operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindPath represents path-related errors.
	KindPath
	// KindExecutableUnavailable means the FFmpeg executable could not be resolved.
	KindExecutableUnavailable
	// KindSpawn means the external process could not be launched.
	KindSpawn
	// KindProbe means the frame count of a source could not be determined.
	KindProbe
	// KindEngineFailure means FFmpeg exited with a nonzero status.
	KindEngineFailure
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindBusy means the requested job class conflicts with a running job.
	KindBusy
	// KindNoFilesFound represents no suitable video files found.
	KindNoFilesFound
	// KindCancelled represents user-cancelled or superseded operations.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindPath:
		return "Path error"
	case KindExecutableUnavailable:
		return "Executable unavailable"
	case KindSpawn:
		return "Spawn error"
	case KindProbe:
		return "Probe error"
	case KindEngineFailure:
		return "Engine failure"
	case KindConfig:
		return "Configuration error"
	case KindBusy:
		return "Engine busy"
	case KindNoFilesFound:
		return "No files found"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Output     string
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandFailed:
		if e.Output != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Output)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for lutgrade operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	// Command errors already carry their cause in the message.
	if e.Underlying != nil && e.Underlying.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewPathError creates a new path-related error.
func NewPathError(message string) *CoreError {
	return &CoreError{Kind: KindPath, Message: message}
}

// NewExecutableUnavailableError reports that name could not be resolved.
func NewExecutableUnavailableError(name string, underlying error) *CoreError {
	return &CoreError{
		Kind:       KindExecutableUnavailable,
		Message:    fmt.Sprintf("%s executable not found", name),
		Underlying: underlying,
	}
}

// NewSpawnError creates an error for a process that could not be launched.
func NewSpawnError(cmd string, err error) *CoreError {
	cmdErr := &CommandError{Command: cmd, Kind: CommandStart, Underlying: err}
	return &CoreError{Kind: KindSpawn, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewEngineFailureError creates an error for a nonzero exit. output is the
// tail of the combined process output, which is the only failure reason
// FFmpeg provides.
func NewEngineFailureError(cmd string, exitCode int, output string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Output:   output,
	}
	return &CoreError{Kind: KindEngineFailure, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewProbeError creates an error for a failed frame-count probe.
func NewProbeError(path string, underlying error) *CoreError {
	return &CoreError{
		Kind:       KindProbe,
		Message:    fmt.Sprintf("could not determine frame count of %s", path),
		Underlying: underlying,
	}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewBusyError creates an error for a request rejected by the job policy.
func NewBusyError(message string) *CoreError {
	return &CoreError{Kind: KindBusy, Message: message}
}

// NewNoFilesFoundError creates an error for when no video files are found.
func NewNoFilesFoundError(dir string) *CoreError {
	return &CoreError{Kind: KindNoFilesFound, Message: fmt.Sprintf("no suitable video files found in %s", dir)}
}

// NewCancelledError creates an error for cancelled operations.
func NewCancelledError(message string) *CoreError {
	if message == "" {
		message = "operation was cancelled by the user"
	}
	return &CoreError{Kind: KindCancelled, Message: message}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsExecutableUnavailable checks if the error means FFmpeg could not be found.
func IsExecutableUnavailable(err error) bool {
	return IsKind(err, KindExecutableUnavailable)
}

// ExitCode extracts the process exit code from err. It returns 0 for nil and
// -1 when err carries no exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Kind == CommandFailed {
		return cmdErr.ExitCode
	}
	return -1
}
