package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunLog is a timestamped log file for one CLI invocation. It receives
// lifecycle messages and the raw engine output of every job. A nil *RunLog
// is valid and discards everything.
type RunLog struct {
	mu       sync.Mutex
	logger   *slog.Logger
	file     *os.File
	filePath string
}

// Setup creates a RunLog writing to lutgrade_run_<timestamp>.log in logDir.
// Returns nil if logging is disabled (noLog=true).
func Setup(logDir string, verbose, noLog bool) (*RunLog, error) {
	if noLog {
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(logDir, fmt.Sprintf("lutgrade_run_%s.log", timestamp))

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	level := LevelInfo
	if verbose {
		level = LevelDebug
	}

	l := &RunLog{
		logger:   slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: level})),
		file:     file,
		filePath: filePath,
	}

	l.Info("lutgrade starting")
	if verbose {
		l.Debug("debug level logging enabled")
	}
	l.Info("log file", "path", filePath)

	return l, nil
}

// Close closes the log file.
func (l *RunLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// FilePath returns the path to the log file.
func (l *RunLog) FilePath() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// Engine records one line of engine output for job.
func (l *RunLog) Engine(job, line string) {
	if l == nil {
		return
	}
	l.log(LevelInfo, line, "job", job, "source", "ffmpeg")
}

// Info logs an info-level message.
func (l *RunLog) Info(msg string, args ...any) {
	if l == nil {
		return
	}
	l.log(LevelInfo, msg, args...)
}

// Debug logs a debug-level message (only if verbose mode is enabled).
func (l *RunLog) Debug(msg string, args ...any) {
	if l == nil {
		return
	}
	l.log(LevelDebug, msg, args...)
}

// Warn logs a warning message.
func (l *RunLog) Warn(msg string, args ...any) {
	if l == nil {
		return
	}
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *RunLog) Error(msg string, args ...any) {
	if l == nil {
		return
	}
	l.log(LevelError, msg, args...)
}

// Writer returns an io.Writer that writes to the log file.
func (l *RunLog) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return l.file
}

// log serializes writes; subscribers call in from several goroutines.
func (l *RunLog) log(level slog.Level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Log(context.Background(), level, msg, args...)
}
