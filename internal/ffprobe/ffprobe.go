// Package ffprobe extracts media information using ffprobe. Its main use is
// resolving the frame count that export progress is measured against.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	lgerrors "github.com/five82/lutgrade/internal/errors"
	"github.com/five82/lutgrade/internal/logging"
)

// DefaultTimeout bounds a single ffprobe run.
const DefaultTimeout = 30 * time.Second

// MediaInfo contains the media information lutgrade needs from a source.
type MediaInfo struct {
	Duration    float64
	Width       int64
	Height      int64
	FrameRate   float64
	TotalFrames uint64
	VideoCodec  string
	HasAudio    bool
	HDRInfo     HDRInfo
}

// HDRInfo contains HDR-related information.
type HDRInfo struct {
	IsHDR                   bool
	ColourPrimaries         string
	TransferCharacteristics string
	MatrixCoefficients      string
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType      string `json:"codec_type"`
	CodecName      string `json:"codec_name"`
	Width          int64  `json:"width"`
	Height         int64  `json:"height"`
	NbFrames       string `json:"nb_frames"`
	Duration       string `json:"duration"`
	AvgFrameRate   string `json:"avg_frame_rate"`
	RFrameRate     string `json:"r_frame_rate"`
	ColorPrimaries string `json:"color_primaries"`
	ColorTransfer  string `json:"color_transfer"`
	ColorSpace     string `json:"color_space"`
}

// Prober runs ffprobe.
type Prober struct {
	executable string
	timeout    time.Duration
}

// NewProber creates a prober for the given ffprobe executable.
func NewProber(executable string) *Prober {
	if executable == "" {
		executable = "ffprobe"
	}
	return &Prober{executable: executable, timeout: DefaultTimeout}
}

// Probe returns media information for a file.
func (p *Prober) Probe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.executable,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, lgerrors.NewProbeError(inputPath, err)
	}

	probe, err := parseFFprobeOutput(output)
	if err != nil {
		return nil, lgerrors.NewProbeError(inputPath, err)
	}

	info, err := extractMediaInfo(probe)
	if err != nil {
		return nil, lgerrors.NewProbeError(inputPath, err)
	}

	logging.Debug("probed source",
		"path", inputPath,
		"frames", info.TotalFrames,
		"fps", info.FrameRate,
		"duration", info.Duration,
		"hdr", info.HDRInfo.IsHDR)
	return info, nil
}

// TotalFrames returns the number of video frames in a file.
func (p *Prober) TotalFrames(ctx context.Context, inputPath string) (uint64, error) {
	info, err := p.Probe(ctx, inputPath)
	if err != nil {
		return 0, err
	}
	return info.TotalFrames, nil
}

func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &result, nil
}

// extractMediaInfo reads the first video stream. The frame count comes from
// the container when it records one, otherwise from frame rate times
// duration.
func extractMediaInfo(probe *ffprobeOutput) (*MediaInfo, error) {
	info := &MediaInfo{}

	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	var video *ffprobeStream
	for i := range probe.Streams {
		switch probe.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &probe.Streams[i]
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if video == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	info.Width = video.Width
	info.Height = video.Height
	info.VideoCodec = video.CodecName
	info.HDRInfo = HDRInfo{
		ColourPrimaries:         video.ColorPrimaries,
		TransferCharacteristics: video.ColorTransfer,
		MatrixCoefficients:      video.ColorSpace,
		IsHDR:                   detectHDR(video.ColorPrimaries, video.ColorTransfer, video.ColorSpace),
	}

	info.FrameRate = parseFrameRate(video.AvgFrameRate)
	if info.FrameRate == 0 {
		info.FrameRate = parseFrameRate(video.RFrameRate)
	}

	if video.NbFrames != "" {
		if frames, err := strconv.ParseUint(video.NbFrames, 10, 64); err == nil && frames > 0 {
			info.TotalFrames = frames
			return info, nil
		}
	}

	duration := info.Duration
	if video.Duration != "" {
		if d, err := strconv.ParseFloat(video.Duration, 64); err == nil && d > 0 {
			duration = d
		}
	}
	if info.FrameRate > 0 && duration > 0 {
		info.TotalFrames = uint64(info.FrameRate * duration)
	}
	if info.TotalFrames == 0 {
		return nil, fmt.Errorf("frame count unavailable")
	}

	return info, nil
}

// parseFrameRate parses an ffprobe rational such as "30000/1001".
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// detectHDR determines if content is HDR based on color metadata.
func detectHDR(primaries, transfer, matrix string) bool {
	if containsCI(primaries, "bt2020") || containsCI(primaries, "bt.2020") || containsCI(primaries, "bt2100") {
		return true
	}

	if containsCI(transfer, "smpte2084") || containsCI(transfer, "hlg") || containsCI(transfer, "arib-std-b67") {
		return true
	}

	if containsCI(matrix, "bt2020") || containsCI(matrix, "bt.2020") {
		return true
	}

	return false
}

// containsCI performs a case-insensitive substring check.
func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ExecutableResolver locates the ffprobe executable.
type ExecutableResolver interface {
	Resolve(name string) (string, error)
}

// FrameProber resolves ffprobe on every call, so a missing executable only
// fails the jobs that need a probe.
type FrameProber struct {
	resolver ExecutableResolver
}

// NewFrameProber creates a FrameProber.
func NewFrameProber(resolver ExecutableResolver) *FrameProber {
	return &FrameProber{resolver: resolver}
}

// TotalFrames probes inputPath with the resolved ffprobe.
func (f *FrameProber) TotalFrames(ctx context.Context, inputPath string) (uint64, error) {
	exe, err := f.resolver.Resolve("ffprobe")
	if err != nil {
		return 0, err
	}
	return NewProber(exe).TotalFrames(ctx, inputPath)
}
