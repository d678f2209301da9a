// Package ffmpeg builds FFmpeg filter graphs and argument lists and parses
// FFmpeg progress output.
package ffmpeg

import (
	"fmt"
	"strings"
)

// Encoder settings for the two export profiles.
const (
	HardwareVideoCodec  = "h264_videotoolbox"
	HardwareBitrate     = "140000k"
	HardwareProfile     = "high"
	HardwareLevel       = "5.1"
	HardwarePixelFormat = "nv12"

	SoftwareVideoCodec  = "libx264"
	SoftwarePreset      = "veryslow"
	SoftwareCRF         = "0"
	SoftwarePixelFormat = "yuv422p"

	AudioCodec   = "aac"
	AudioBitrate = "192k"
)

// EncodingProfile is one of two fixed encoder configurations selected by a
// single hardware-acceleration flag. It is immutable once created.
type EncodingProfile struct {
	hardware    bool
	videoCodec  string
	pixelFormat string
	rateControl []string
}

// NewEncodingProfile derives the profile for useHardwareAcceleration.
func NewEncodingProfile(useHardwareAcceleration bool) EncodingProfile {
	if useHardwareAcceleration {
		return EncodingProfile{
			hardware:    true,
			videoCodec:  HardwareVideoCodec,
			pixelFormat: HardwarePixelFormat,
			rateControl: []string{
				"-b:v", HardwareBitrate,
				"-profile:v", HardwareProfile,
				"-level:v", HardwareLevel,
			},
		}
	}
	return EncodingProfile{
		videoCodec:  SoftwareVideoCodec,
		pixelFormat: SoftwarePixelFormat,
		rateControl: []string{
			"-preset", SoftwarePreset,
			"-crf", SoftwareCRF,
		},
	}
}

// HardwareAccelerated reports whether this is the hardware profile.
func (p EncodingProfile) HardwareAccelerated() bool { return p.hardware }

// VideoCodec returns the FFmpeg video encoder name.
func (p EncodingProfile) VideoCodec() string { return p.videoCodec }

// PixelFormat returns the output pixel format.
func (p EncodingProfile) PixelFormat() string { return p.pixelFormat }

// BitrateOrQuality returns the rate-control flags.
func (p EncodingProfile) BitrateOrQuality() []string {
	return append([]string(nil), p.rateControl...)
}

// Args returns the video encoder arguments.
func (p EncodingProfile) Args() []string {
	args := []string{"-c:v", p.videoCodec}
	args = append(args, p.rateControl...)
	return append(args, "-pix_fmt", p.pixelFormat)
}

// Describe returns a one-line summary for display.
func (p EncodingProfile) Describe() string {
	if p.hardware {
		return fmt.Sprintf("%s %s (%s@%s, %s)", p.videoCodec, HardwareBitrate, HardwareProfile, HardwareLevel, p.pixelFormat)
	}
	return fmt.Sprintf("%s %s crf %s (%s)", p.videoCodec, SoftwarePreset, SoftwareCRF, p.pixelFormat)
}

// String implements fmt.Stringer.
func (p EncodingProfile) String() string {
	return strings.Join(p.Args(), " ")
}
