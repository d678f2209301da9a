package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/five82/lutgrade/internal/util"
)

// Progress is a progress report extracted from FFmpeg output.
type Progress struct {
	// Frames is the number of frames processed so far.
	Frames uint64
	// TotalFrames is the known frame count of the source, or 0.
	TotalFrames uint64
	// Fraction is Frames/TotalFrames clamped to [0,1]. Only valid when
	// Determinate is set.
	Fraction    float64
	Determinate bool
	// Elapsed is the output timestamp from the time= token. It is recorded
	// but never used to compute Fraction.
	Elapsed    time.Duration
	HasElapsed bool
}

var (
	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

	// The trailing non-digit proves the number is complete; a chunk ending
	// in "frame=  12" may continue with "0" in the next read.
	frameRegex = regexp.MustCompile(`frame=\s*(\d+)\D`)
	// At end of input nothing can follow, so the carry's tail is complete.
	frameEndRegex = regexp.MustCompile(`frame=\s*(\d+)\s*$`)
	timeRegex  = regexp.MustCompile(`time=(\d{2}:\d{2}:\d{2}\.\d{2})`)
)

// maxCarry bounds the text carried between chunks. Progress tokens are far
// shorter than this.
const maxCarry = 64

// StripANSI removes terminal escape and color sequences.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// Scanner extracts progress from FFmpeg output delivered in arbitrary chunks.
// It is not safe for concurrent use.
type Scanner struct {
	totalFrames uint64
	carry       string
	elapsed     time.Duration
	hasElapsed  bool
}

// NewScanner creates a scanner. totalFrames may be 0 when unknown.
func NewScanner(totalFrames uint64) *Scanner {
	return &Scanner{totalFrames: totalFrames}
}

// Scan consumes the next chunk of output. It reports progress when a
// complete frame= token was found; a chunk without one is not an error.
func (s *Scanner) Scan(chunk string) (Progress, bool) {
	text := s.carry + chunk
	consumed := 0

	if m := lastSubmatchIndex(timeRegex, text); m != nil {
		if secs, ok := util.ParseFFmpegTime(text[m[2]:m[3]]); ok {
			s.elapsed = time.Duration(secs * float64(time.Second))
			s.hasElapsed = true
		}
		consumed = m[1]
	}

	var (
		frames uint64
		found  bool
	)
	if m := lastSubmatchIndex(frameRegex, text); m != nil {
		if f, err := strconv.ParseUint(text[m[2]:m[3]], 10, 64); err == nil {
			frames, found = f, true
		}
		// Leave the terminating character unconsumed.
		if end := m[1] - 1; end > consumed {
			consumed = end
		}
	}

	rest := text[consumed:]
	if len(rest) > maxCarry {
		rest = rest[len(rest)-maxCarry:]
	}
	s.carry = rest

	if !found {
		return Progress{}, false
	}
	return s.report(frames), true
}

// Flush reports a frame= token left unterminated at end of input. Call it
// once the stream is closed.
func (s *Scanner) Flush() (Progress, bool) {
	text := s.carry
	s.carry = ""
	m := frameEndRegex.FindStringSubmatch(text)
	if m == nil {
		return Progress{}, false
	}
	frames, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Progress{}, false
	}
	return s.report(frames), true
}

func (s *Scanner) report(frames uint64) Progress {
	p := Progress{
		Frames:      frames,
		TotalFrames: s.totalFrames,
		Elapsed:     s.elapsed,
		HasElapsed:  s.hasElapsed,
	}
	if s.totalFrames > 0 {
		p.Fraction = util.Clamp01(float64(frames) / float64(s.totalFrames))
		p.Determinate = true
	}
	return p
}

func lastSubmatchIndex(re *regexp.Regexp, text string) []int {
	all := re.FindAllStringSubmatchIndex(text, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// LineBuffer assembles log lines from output chunks. FFmpeg ends progress
// lines with '\r' and everything else with '\n'; both terminate a line.
type LineBuffer struct {
	partial strings.Builder
}

// Write appends chunk and returns the completed, non-blank lines.
func (b *LineBuffer) Write(chunk string) []string {
	var lines []string
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		if c == '\r' || c == '\n' {
			if line := strings.TrimSpace(b.partial.String()); line != "" {
				lines = append(lines, line)
			}
			b.partial.Reset()
			continue
		}
		// Bytes, not runes: a multi-byte character may be split across chunks.
		b.partial.WriteByte(c)
	}
	return lines
}

// Flush returns any unterminated remainder.
func (b *LineBuffer) Flush() string {
	line := strings.TrimSpace(b.partial.String())
	b.partial.Reset()
	return line
}
