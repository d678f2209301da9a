package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidGrace indicates a non-positive termination grace period.
	ErrInvalidGrace = errors.New("termination grace period must be positive")

	// ErrLUTNotFound indicates a configured LUT file does not exist.
	ErrLUTNotFound = errors.New("LUT file not found")

	// ErrUnsupportedLUT indicates a LUT file with an unrecognised extension.
	ErrUnsupportedLUT = errors.New("unsupported LUT format")

	// ErrInvalidValue indicates a numeric setting that is not a number or is
	// negative where that makes no sense.
	ErrInvalidValue = errors.New("invalid value")
)
