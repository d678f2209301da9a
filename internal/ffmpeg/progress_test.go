package ffmpeg

import (
	"slices"
	"testing"
	"time"
)

func TestScannerFraction(t *testing.T) {
	s := NewScanner(240)
	p, ok := s.Scan("...frame=  120 fps=30 q=-1.0 size=N/A time=00:00:04.00 bitrate=N/A speed=1x\r")
	if !ok {
		t.Fatal("expected progress")
	}
	if p.Frames != 120 || p.TotalFrames != 240 {
		t.Errorf("Frames = %d/%d, want 120/240", p.Frames, p.TotalFrames)
	}
	if !p.Determinate || p.Fraction != 0.5 {
		t.Errorf("Fraction = %v (determinate %v), want 0.5", p.Fraction, p.Determinate)
	}
	if !p.HasElapsed || p.Elapsed != 4*time.Second {
		t.Errorf("Elapsed = %v, want 4s", p.Elapsed)
	}
}

func TestScannerIndeterminate(t *testing.T) {
	s := NewScanner(0)
	p, ok := s.Scan("frame=   42 fps=12 ")
	if !ok {
		t.Fatal("expected progress")
	}
	if p.Frames != 42 {
		t.Errorf("Frames = %d, want 42", p.Frames)
	}
	if p.Determinate || p.Fraction != 0 {
		t.Errorf("unknown total should be indeterminate, got %+v", p)
	}
}

func TestScannerClampsFraction(t *testing.T) {
	s := NewScanner(100)
	p, ok := s.Scan("frame=  150 fps=30\n")
	if !ok {
		t.Fatal("expected progress")
	}
	if p.Fraction != 1 {
		t.Errorf("Fraction = %v, want 1", p.Fraction)
	}
}

func TestScannerStraddlingChunks(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   uint64
	}{
		{"split inside number", []string{"frame=  12", "0 fps=30 "}, 120},
		{"split inside key", []string{"fra", "me=  120 fps=30 "}, 120},
		{"split after equals", []string{"frame=", "  120 fps"}, 120},
		{"split before terminator", []string{"frame=  120", " fps"}, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner(240)
			var last Progress
			found := false
			for _, c := range tt.chunks {
				if p, ok := s.Scan(c); ok {
					last, found = p, true
				}
			}
			if !found {
				t.Fatal("token across chunks was not found")
			}
			if last.Frames != tt.want {
				t.Errorf("Frames = %d, want %d", last.Frames, tt.want)
			}
		})
	}
}

func TestScannerDoesNotRepeat(t *testing.T) {
	s := NewScanner(240)
	if _, ok := s.Scan("frame=  120 fps=30 "); !ok {
		t.Fatal("expected progress from first chunk")
	}
	if p, ok := s.Scan("q=-1.0 size=N/A "); ok {
		t.Errorf("second chunk re-reported %+v", p)
	}
}

func TestScannerUsesLatestToken(t *testing.T) {
	s := NewScanner(300)
	p, ok := s.Scan("frame=  100 fps=30\rframe=  150 fps=30\rframe=  200 fps=30\r")
	if !ok {
		t.Fatal("expected progress")
	}
	if p.Frames != 200 {
		t.Errorf("Frames = %d, want 200", p.Frames)
	}
}

func TestScannerFlushFinalToken(t *testing.T) {
	s := NewScanner(240)
	if _, ok := s.Scan("frame=  120 fps=30\rframe=  240"); !ok {
		t.Fatal("expected progress for the terminated token")
	}
	p, ok := s.Flush()
	if !ok {
		t.Fatal("unterminated token at end of input was dropped")
	}
	if p.Frames != 240 || p.Fraction != 1 {
		t.Errorf("Frames = %d (fraction %v), want 240 (1)", p.Frames, p.Fraction)
	}
	if _, ok := s.Flush(); ok {
		t.Error("second Flush re-reported the token")
	}
}

func TestScannerFlushAfterReportedToken(t *testing.T) {
	s := NewScanner(240)
	if _, ok := s.Scan("frame=  240 fps=30\n"); !ok {
		t.Fatal("expected progress")
	}
	if p, ok := s.Flush(); ok {
		t.Errorf("Flush re-reported %+v", p)
	}

	s = NewScanner(240)
	s.Scan("speed=1x frame=")
	if p, ok := s.Flush(); ok {
		t.Errorf("Flush reported a token without digits: %+v", p)
	}
}

func TestScannerNoToken(t *testing.T) {
	s := NewScanner(240)
	if _, ok := s.Scan("Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':\n"); ok {
		t.Error("no progress expected for header output")
	}
	if _, ok := s.Scan("time=00:00:01.00 bitrate=N/A\n"); ok {
		t.Error("a time token alone does not report progress")
	}
}

func TestStripANSI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"\x1b[0;33mwarning\x1b[0m", "warning"},
		{"\x1b[1;31mError\x1b[0m opening", "Error opening"},
		{"\x1b[2Kframe= 1", "frame= 1"},
	}
	for _, tt := range tests {
		if got := StripANSI(tt.in); got != tt.want {
			t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLineBuffer(t *testing.T) {
	var b LineBuffer
	var got []string
	got = append(got, b.Write("ffmpeg version 7")...)
	got = append(got, b.Write(".0\nframe=  1 fps=0\rframe=  2")...)
	got = append(got, b.Write(" fps=0\r\n\n")...)
	got = append(got, b.Write("tail without newline")...)

	want := []string{"ffmpeg version 7.0", "frame=  1 fps=0", "frame=  2 fps=0"}
	if !slices.Equal(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
	if rest := b.Flush(); rest != "tail without newline" {
		t.Errorf("Flush() = %q", rest)
	}
	if rest := b.Flush(); rest != "" {
		t.Errorf("second Flush() = %q, want empty", rest)
	}
}
