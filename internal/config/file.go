package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the TOML layout. Pointers distinguish an absent key
// from a zero value.
type fileConfig struct {
	Engine struct {
		FFmpeg               *string `toml:"ffmpeg"`
		FFprobe              *string `toml:"ffprobe"`
		HardwareAcceleration *bool   `toml:"hardware_acceleration"`
		TerminationGrace     *string `toml:"termination_grace"`
	} `toml:"engine"`
	Output struct {
		Dir     *string `toml:"dir"`
		LogDir  *string `toml:"log_dir"`
		TempDir *string `toml:"temp_dir"`
	} `toml:"output"`
	Preview struct {
		Offset *string `toml:"offset"`
	} `toml:"preview"`
	Batch struct {
		HaltOnProbeFailure  *bool `toml:"halt_on_probe_failure"`
		HaltOnEngineFailure *bool `toml:"halt_on_engine_failure"`
	} `toml:"batch"`
	Grade struct {
		PrimaryLUT   *string  `toml:"primary_lut"`
		SecondaryLUT *string  `toml:"secondary_lut"`
		Opacity      *float64 `toml:"opacity"`
		WhiteBalance *float64 `toml:"white_balance"`
	} `toml:"grade"`
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lutgrade", "config.toml")
}

// LoadFile applies the TOML file at path on top of c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return c.apply(data)
}

// LoadDefaultFile applies the per-user config file if it exists.
func (c *Config) LoadDefaultFile() error {
	path := DefaultConfigPath()
	if path == "" {
		return nil
	}
	err := c.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) apply(data []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	setString(&c.FFmpegPath, fc.Engine.FFmpeg)
	setString(&c.FFprobePath, fc.Engine.FFprobe)
	setBool(&c.UseHardwareAcceleration, fc.Engine.HardwareAcceleration)
	if err := setDuration(&c.TerminationGrace, fc.Engine.TerminationGrace, "engine.termination_grace"); err != nil {
		return err
	}

	setString(&c.OutputDir, fc.Output.Dir)
	setString(&c.LogDir, fc.Output.LogDir)
	setString(&c.TempDir, fc.Output.TempDir)

	if err := setDuration(&c.PreviewOffset, fc.Preview.Offset, "preview.offset"); err != nil {
		return err
	}

	setBool(&c.HaltOnProbeFailure, fc.Batch.HaltOnProbeFailure)
	setBool(&c.HaltOnEngineFailure, fc.Batch.HaltOnEngineFailure)

	setString(&c.PrimaryLUT, fc.Grade.PrimaryLUT)
	setString(&c.SecondaryLUT, fc.Grade.SecondaryLUT)
	if fc.Grade.Opacity != nil {
		c.Opacity = *fc.Grade.Opacity
	}
	if fc.Grade.WhiteBalance != nil {
		c.WhiteBalance = *fc.Grade.WhiteBalance
	}

	return nil
}

// ApplyEnv applies LUTGRADE_* overrides. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "FFMPEG"); ok && v != "" {
		c.FFmpegPath = v
	}
	if v, ok := lookup(EnvPrefix + "FFPROBE"); ok && v != "" {
		c.FFprobePath = v
	}
	if v, ok := lookup(EnvPrefix + "OUTPUT_DIR"); ok && v != "" {
		c.OutputDir = v
	}
	if v, ok := lookup(EnvPrefix + "TEMP_DIR"); ok && v != "" {
		c.TempDir = v
	}
	if v, ok := lookup(EnvPrefix + "HARDWARE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sHARDWARE=%q", ErrInvalidValue, EnvPrefix, v)
		}
		c.UseHardwareAcceleration = b
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
	}
	*dst = d
	return nil
}
