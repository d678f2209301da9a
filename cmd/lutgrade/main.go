// Package main provides the CLI entry point for lutgrade.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/five82/lutgrade"
	"github.com/five82/lutgrade/internal/config"
	"github.com/five82/lutgrade/internal/events"
	"github.com/five82/lutgrade/internal/logging"
	"github.com/five82/lutgrade/internal/reporter"
)

const (
	appName    = "lutgrade"
	appVersion = "0.1.0"

	// busDrainTimeout bounds how long the run log may lag behind the engine
	// at exit.
	busDrainTimeout = 2 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Apply 3D LUT color grades to video with FFmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (defaults to "+config.DefaultConfigPath()+")")
	pf.BoolP("verbose", "v", false, "Enable verbose output for troubleshooting")
	pf.Bool("json", false, "Emit newline-delimited JSON events instead of terminal output")
	pf.StringP("log-dir", "l", "", "Log directory")
	pf.Bool("no-log", false, "Disable log file creation")
	pf.String("ffmpeg", "", "Path to the ffmpeg executable")
	pf.String("ffprobe", "", "Path to the ffprobe executable")
	pf.String("temp-dir", "", "Directory for preview frames")
	pf.String("lut", "", "Primary LUT (.cube or .3dl)")
	pf.String("secondary-lut", "", "Secondary LUT blended over the primary grade")
	pf.Float64("opacity", 1.0, "Blend opacity of the secondary grade (0.0-1.0)")
	pf.Float64("white-balance", 0, "White balance shift (-10 warm to 10 cool)")
	pf.Duration("grace", config.DefaultTerminationGrace, "How long a stopped engine may take to exit before it is killed")

	root.AddCommand(newPreviewCmd(), newExportCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}
}

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <input>",
		Short: "Render one graded frame to a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logDir := cfg.LogDir
			if logDir == "" {
				logDir = filepath.Join(cfg.GetTempDir(), appName+"-logs")
			}
			return withSession(cmd, cfg, logDir, func(ctx context.Context, engine *lutgrade.Engine, runLog *logging.RunLog) error {
				input, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("invalid input path: %w", err)
				}
				runLog.Info("preview", "input", input, "offset", cfg.PreviewOffset)

				res, err := engine.Preview(ctx, input, cfg.Grade())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.ImagePath)
				return nil
			})
		},
	}
	cmd.Flags().Duration("offset", 0, "Source timestamp to take the frame from")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <input>...",
		Short: "Grade and transcode videos one at a time",
		Long: `Export grades each input with the configured LUTs and white balance and
writes <name>_converted_<secondary LUT>_<opacity>percent.mp4 to the output
directory. Inputs may be files or directories of videos.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.OutputDir == "" {
				return fmt.Errorf("output directory is required (-o/--output)")
			}
			outputDir, err := filepath.Abs(cfg.OutputDir)
			if err != nil {
				return fmt.Errorf("invalid output path: %w", err)
			}
			logDir := cfg.LogDir
			if logDir == "" {
				logDir = filepath.Join(outputDir, "logs")
			}

			return withSession(cmd, cfg, logDir, func(ctx context.Context, engine *lutgrade.Engine, runLog *logging.RunLog) error {
				inputs, err := expandInputs(args, runLog)
				if err != nil {
					return err
				}
				runLog.Info("export",
					"files", len(inputs),
					"output_dir", outputDir,
					"hardware", cfg.UseHardwareAcceleration,
					"primary_lut", cfg.PrimaryLUT,
					"secondary_lut", cfg.SecondaryLUT,
					"opacity", cfg.Opacity,
					"white_balance", cfg.WhiteBalance)

				res, err := engine.ExportBatch(ctx, inputs, outputDir, cfg.Grade())
				if err != nil {
					return err
				}
				switch {
				case res.Aborted:
					return fmt.Errorf("batch stopped after %d of %d files", res.CompletedCount, res.TotalFiles)
				case res.FailedCount > 0:
					return fmt.Errorf("%d of %d exports failed", res.FailedCount, res.TotalFiles)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "Output directory")
	f.Bool("hardware", config.DefaultUseHardwareAcceleration, "Encode with h264_videotoolbox (false selects libx264)")
	f.Bool("halt-on-probe-failure", config.DefaultHaltOnProbeFailure, "Stop the batch when a source cannot be probed")
	f.Bool("halt-on-engine-failure", config.DefaultHaltOnEngineFailure, "Stop the batch when an export fails")
	return cmd
}

// loadConfig layers defaults, the config file, LUTGRADE_* environment
// variables and explicitly set flags, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig("", "")

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	} else if err := cfg.LoadDefaultFile(); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	var flagErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if flagErr == nil {
			flagErr = applyFlag(cfg, cmd.Flags(), f)
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlag copies one changed flag into cfg.
func applyFlag(cfg *config.Config, fs *pflag.FlagSet, f *pflag.Flag) error {
	var err error
	switch f.Name {
	case "ffmpeg":
		cfg.FFmpegPath = f.Value.String()
	case "ffprobe":
		cfg.FFprobePath = f.Value.String()
	case "temp-dir":
		cfg.TempDir = f.Value.String()
	case "log-dir":
		cfg.LogDir = f.Value.String()
	case "output":
		cfg.OutputDir = f.Value.String()
	case "lut":
		cfg.PrimaryLUT = f.Value.String()
	case "secondary-lut":
		cfg.SecondaryLUT = f.Value.String()
	case "opacity":
		cfg.Opacity, err = fs.GetFloat64(f.Name)
	case "white-balance":
		cfg.WhiteBalance, err = fs.GetFloat64(f.Name)
	case "grace":
		cfg.TerminationGrace, err = fs.GetDuration(f.Name)
	case "offset":
		cfg.PreviewOffset, err = fs.GetDuration(f.Name)
	case "hardware":
		cfg.UseHardwareAcceleration, err = fs.GetBool(f.Name)
	case "halt-on-probe-failure":
		cfg.HaltOnProbeFailure, err = fs.GetBool(f.Name)
	case "halt-on-engine-failure":
		cfg.HaltOnEngineFailure, err = fs.GetBool(f.Name)
	}
	return err
}

// withSession sets up logging, reporting and signal handling around run.
func withSession(
	cmd *cobra.Command,
	cfg *config.Config,
	logDir string,
	run func(ctx context.Context, engine *lutgrade.Engine, runLog *logging.RunLog) error,
) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOut, _ := cmd.Flags().GetBool("json")
	noLog, _ := cmd.Flags().GetBool("no-log")

	level := logging.LevelWarn
	if verbose {
		level = logging.LevelDebug
	}
	logging.Init(level, cmd.ErrOrStderr())

	runLog, err := logging.Setup(logDir, verbose, noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = runLog.Close() }()

	bus := events.New()
	defer func() { _ = bus.Close() }()
	unsubscribe := subscribeRunLog(bus, runLog)
	defer unsubscribe()

	var out reporter.Reporter
	if jsonOut {
		out = reporter.NewJSONReporterWithWriter(cmd.OutOrStdout())
	} else {
		out = reporter.NewTerminalReporterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), verbose)
	}

	engine, err := lutgrade.New(append(engineOptions(cfg),
		lutgrade.WithReporter(reporter.NewCompositeReporter(out, events.NewPublisher(bus))),
	)...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			runLog.Warn("received signal, aborting", "signal", sig.String())
			engine.Abort()
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := run(ctx, engine, runLog)

	if !bus.Drain(busDrainTimeout) {
		logging.Warn("run log may be missing events")
	}
	if runErr != nil {
		runLog.Error("run failed", "error", runErr)
	}
	return runErr
}

func engineOptions(cfg *config.Config) []lutgrade.Option {
	return []lutgrade.Option{
		lutgrade.WithFFmpegPath(cfg.FFmpegPath),
		lutgrade.WithFFprobePath(cfg.FFprobePath),
		lutgrade.WithTempDir(cfg.TempDir),
		lutgrade.WithHardwareAcceleration(cfg.UseHardwareAcceleration),
		lutgrade.WithTerminationGrace(cfg.TerminationGrace),
		lutgrade.WithPreviewOffset(cfg.PreviewOffset),
		lutgrade.WithHaltOnProbeFailure(cfg.HaltOnProbeFailure),
		lutgrade.WithHaltOnEngineFailure(cfg.HaltOnEngineFailure),
	}
}
