package main

import (
	"github.com/five82/lutgrade/internal/discovery"
	"github.com/five82/lutgrade/internal/events"
	"github.com/five82/lutgrade/internal/logging"
	"github.com/five82/lutgrade/internal/util"
)

// subscribeRunLog records engine output and job lifecycle in the run log.
func subscribeRunLog(bus *events.Bus, runLog *logging.RunLog) func() {
	if runLog == nil {
		return func() {}
	}

	unsubs := []func(){
		bus.Subscribe(func(e events.LogEvent) {
			runLog.Engine(e.Job, e.Line)
		}),
		bus.Subscribe(func(e events.JobStartedEvent) {
			runLog.Info("job started",
				"kind", e.Kind,
				"input", e.InputFile,
				"output", e.OutputFile,
				"frames", e.TotalFrames,
				"encoder", e.Encoder)
		}),
		bus.Subscribe(func(e events.JobCompleteEvent) {
			args := []any{
				"kind", e.Kind,
				"input", e.InputFile,
				"status", e.Status,
				"exit_code", e.ExitCode,
				"duration", util.FormatDuration(e.TotalTime.Seconds()),
			}
			if e.Error != "" {
				args = append(args, "error", e.Error)
			}
			runLog.Info("job finished", args...)
		}),
		bus.Subscribe(func(e events.BatchCompleteEvent) {
			runLog.Info("batch finished",
				"files", e.TotalFiles,
				"succeeded", e.SucceededCount,
				"failed", e.FailedCount,
				"aborted", e.Aborted,
				"output", util.FormatBytes(e.TotalSize))
		}),
		bus.Subscribe(func(e events.WarningEvent) {
			runLog.Warn(e.Message)
		}),
		bus.Subscribe(func(e events.ErrorEvent) {
			runLog.Error(e.Title, "message", e.Message, "context", e.Context)
		}),
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// expandInputs resolves files and directories into the video files to
// export, logging what directory discovery found.
func expandInputs(args []string, runLog *logging.RunLog) ([]string, error) {
	var files []string
	for _, arg := range args {
		if !util.DirectoryExists(arg) {
			expanded, err := discovery.ExpandInputs([]string{arg})
			if err != nil {
				return nil, err
			}
			files = append(files, expanded...)
			continue
		}
		found, err := discovery.FindVideoFilesWithLogging(arg, runLog)
		if err != nil {
			return nil, err
		}
		files = append(files, found.Files...)
	}
	return files, nil
}
