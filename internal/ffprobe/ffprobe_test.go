package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	lgerrors "github.com/five82/lutgrade/internal/errors"
)

// loadTestData loads a JSON fixture from the testdata directory.
func loadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	return data
}

func TestExtractMediaInfo_FrameCountFromContainer(t *testing.T) {
	probe, err := parseFFprobeOutput(loadTestData(t, "video_1080p_sdr.json"))
	if err != nil {
		t.Fatalf("parseFFprobeOutput() error = %v", err)
	}

	info, err := extractMediaInfo(probe)
	if err != nil {
		t.Fatalf("extractMediaInfo() error = %v", err)
	}

	if info.TotalFrames != 2888 {
		t.Errorf("TotalFrames = %d, want 2888", info.TotalFrames)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.Duration != 120.5 {
		t.Errorf("Duration = %v, want 120.5", info.Duration)
	}
	if !info.HasAudio {
		t.Error("HasAudio = false, want true")
	}
	if info.HDRInfo.IsHDR {
		t.Error("bt709 source detected as HDR")
	}
	if info.VideoCodec != "h264" {
		t.Errorf("VideoCodec = %q", info.VideoCodec)
	}
}

func TestExtractMediaInfo_FrameCountFromRate(t *testing.T) {
	probe, err := parseFFprobeOutput(loadTestData(t, "video_4k_hdr_no_count.json"))
	if err != nil {
		t.Fatalf("parseFFprobeOutput() error = %v", err)
	}

	info, err := extractMediaInfo(probe)
	if err != nil {
		t.Fatalf("extractMediaInfo() error = %v", err)
	}

	// avg_frame_rate is 0/0, so r_frame_rate 25 times the container duration.
	if info.FrameRate != 25 {
		t.Errorf("FrameRate = %v, want 25", info.FrameRate)
	}
	if info.TotalFrames != 250 {
		t.Errorf("TotalFrames = %d, want 250", info.TotalFrames)
	}
	if !info.HDRInfo.IsHDR {
		t.Error("PQ source not detected as HDR")
	}
	if info.HasAudio {
		t.Error("HasAudio = true, want false")
	}
}

func TestExtractMediaInfo_NoVideoStream(t *testing.T) {
	probe, err := parseFFprobeOutput(loadTestData(t, "audio_only.json"))
	if err != nil {
		t.Fatalf("parseFFprobeOutput() error = %v", err)
	}
	if _, err := extractMediaInfo(probe); err == nil {
		t.Error("expected error for a file without video")
	}
}

func TestExtractMediaInfo_NoFrameCount(t *testing.T) {
	probe := &ffprobeOutput{Streams: []ffprobeStream{{CodecType: "video", Width: 640, Height: 480}}}
	if _, err := extractMediaInfo(probe); err == nil {
		t.Error("expected error when neither nb_frames nor rate and duration are known")
	}
}

func TestParseFFprobeOutput_MalformedJSON(t *testing.T) {
	if _, err := parseFFprobeOutput([]byte(`{"streams": [`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"25/1", 25},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"", 0},
		{"29.97", 29.97},
		{"abc/1", 0},
	}
	for _, tt := range tests {
		if got := parseFrameRate(tt.in); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDetectHDR(t *testing.T) {
	tests := []struct {
		name                         string
		primaries, transfer, matrix string
		want                         bool
	}{
		{"SDR bt709", "bt709", "bt709", "bt709", false},
		{"HDR10 PQ", "bt2020", "smpte2084", "bt2020nc", true},
		{"HLG", "bt709", "arib-std-b67", "bt709", true},
		{"matrix only", "", "", "bt2020nc", true},
		{"empty", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectHDR(tt.primaries, tt.transfer, tt.matrix); got != tt.want {
				t.Errorf("detectHDR() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeWithFakeExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a unix shell")
	}

	fixture, err := filepath.Abs(filepath.Join("testdata", "video_1080p_sdr.json"))
	if err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(t.TempDir(), "ffprobe")
	body := "#!/bin/sh\ncat '" + fixture + "'\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}

	frames, err := NewProber(script).TotalFrames(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("TotalFrames() error = %v", err)
	}
	if frames != 2888 {
		t.Errorf("TotalFrames() = %d, want 2888", frames)
	}
}

func TestProbeFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a unix shell")
	}

	script := filepath.Join(t.TempDir(), "ffprobe")
	body := "#!/bin/sh\necho 'clip.mp4: Invalid data found when processing input' >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := NewProber(script).TotalFrames(context.Background(), "clip.mp4")
	if !lgerrors.IsKind(err, lgerrors.KindProbe) {
		t.Fatalf("TotalFrames() error = %v, want probe error", err)
	}
}

type mapResolver map[string]string

func (m mapResolver) Resolve(name string) (string, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return "", lgerrors.NewExecutableUnavailableError(name, os.ErrNotExist)
}

func TestFrameProberResolvesEachCall(t *testing.T) {
	_, err := NewFrameProber(mapResolver{}).TotalFrames(context.Background(), "clip.mp4")
	if !lgerrors.IsExecutableUnavailable(err) {
		t.Fatalf("TotalFrames() error = %v, want executable unavailable", err)
	}

	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a unix shell")
	}
	fixture, err := filepath.Abs(filepath.Join("testdata", "video_1080p_sdr.json"))
	if err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat '"+fixture+"'\n"), 0755); err != nil {
		t.Fatal(err)
	}
	frames, err := NewFrameProber(mapResolver{"ffprobe": script}).TotalFrames(context.Background(), "clip.mp4")
	if err != nil || frames != 2888 {
		t.Errorf("TotalFrames() = %d, %v; want 2888", frames, err)
	}
}
