// Package config provides configuration types and defaults for lutgrade.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/lutgrade/internal/grade"
	"github.com/five82/lutgrade/internal/util"
)

// Default constants
const (
	// DefaultUseHardwareAcceleration selects the VideoToolbox profile.
	DefaultUseHardwareAcceleration = true

	// DefaultTerminationGrace is the SIGTERM to SIGKILL escalation delay.
	DefaultTerminationGrace = 3 * time.Second

	// DefaultHaltOnProbeFailure stops a batch when a source cannot be probed.
	DefaultHaltOnProbeFailure = true

	// DefaultHaltOnEngineFailure keeps a batch going after a failed export.
	DefaultHaltOnEngineFailure = false

	// PreviewImageName is the file the preview frame is rendered to.
	PreviewImageName = "preview_image.png"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LUTGRADE_"
)

// Config holds all configuration for previews and exports.
type Config struct {
	// Executables; empty means search PATH and the usual install locations.
	FFmpegPath  string
	FFprobePath string

	// Output paths
	OutputDir string
	LogDir    string
	TempDir   string // Optional, defaults to the system temp dir

	// Engine options
	UseHardwareAcceleration bool
	TerminationGrace        time.Duration
	PreviewOffset           time.Duration

	// Batch policies
	HaltOnProbeFailure  bool
	HaltOnEngineFailure bool

	// Grade
	PrimaryLUT   string
	SecondaryLUT string
	Opacity      float64
	WhiteBalance float64
}

// NewConfig creates a new Config with default values.
func NewConfig(outputDir, logDir string) *Config {
	return &Config{
		OutputDir:               outputDir,
		LogDir:                  logDir,
		UseHardwareAcceleration: DefaultUseHardwareAcceleration,
		TerminationGrace:        DefaultTerminationGrace,
		HaltOnProbeFailure:      DefaultHaltOnProbeFailure,
		HaltOnEngineFailure:     DefaultHaltOnEngineFailure,
		Opacity:                 grade.DefaultOpacity,
	}
}

// Validate checks the configuration for errors. Opacity and white balance
// are clamped when the grade is built, so only non-numbers are rejected.
func (c *Config) Validate() error {
	if c.TerminationGrace <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidGrace, c.TerminationGrace)
	}

	if c.PreviewOffset < 0 {
		return fmt.Errorf("%w: preview offset %s is negative", ErrInvalidValue, c.PreviewOffset)
	}

	if math.IsNaN(c.Opacity) || math.IsInf(c.Opacity, 0) {
		return fmt.Errorf("%w: opacity %v", ErrInvalidValue, c.Opacity)
	}

	if math.IsNaN(c.WhiteBalance) || math.IsInf(c.WhiteBalance, 0) {
		return fmt.Errorf("%w: white balance %v", ErrInvalidValue, c.WhiteBalance)
	}

	for _, lut := range []string{c.PrimaryLUT, c.SecondaryLUT} {
		if lut == "" {
			continue
		}
		if !util.IsLUTFile(lut) {
			return fmt.Errorf("%w: %s", ErrUnsupportedLUT, lut)
		}
		if !util.FileExists(lut) {
			return fmt.Errorf("%w: %s", ErrLUTNotFound, lut)
		}
	}

	return nil
}

// Grade returns the color grade described by the configuration.
func (c *Config) Grade() grade.Config {
	return grade.New().
		WithPrimaryLUT(c.PrimaryLUT).
		WithSecondaryLUT(c.SecondaryLUT).
		WithOpacity(c.Opacity).
		WithWhiteBalance(c.WhiteBalance)
}

// GetTempDir returns the temp directory, falling back to the system one.
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}

// PreviewPath returns where preview frames are written.
func (c *Config) PreviewPath() string {
	return filepath.Join(c.GetTempDir(), PreviewImageName)
}

// ConfiguredExecutables maps executable names to explicitly configured
// paths for the resolver.
func (c *Config) ConfiguredExecutables() map[string]string {
	return map[string]string{
		"ffmpeg":  c.FFmpegPath,
		"ffprobe": c.FFprobePath,
	}
}
