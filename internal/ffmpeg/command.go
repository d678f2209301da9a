package ffmpeg

import (
	"time"

	"github.com/five82/lutgrade/internal/grade"
	"github.com/five82/lutgrade/internal/util"
)

// PreviewFilter holds the filter arguments of a single-frame preview.
type PreviewFilter struct {
	Arguments []string
	HasFilter bool
}

// BuildPreviewFilter returns the arguments that grade a single output frame.
// Without any grading stage only the frame limit is returned.
func BuildPreviewFilter(cfg grade.Config) PreviewFilter {
	args := []string{"-frames:v", "1"}

	if cfg.HasBlend() {
		graph := blendGraph(cfg, "")
		return PreviewFilter{
			Arguments: append(args, "-filter_complex", graph, "-map", Label(LabelOut)),
			HasFilter: true,
		}
	}

	chain := linearChain(cfg, "")
	if chain.IsEmpty() {
		return PreviewFilter{Arguments: args}
	}
	return PreviewFilter{
		Arguments: append(args, "-vf", chain.Build()),
		HasFilter: true,
	}
}

// BuildExportFilter returns the -filter_complex graph for a full export. The
// graph always ends in a pixel format conversion labelled [out].
func BuildExportFilter(cfg grade.Config, pixelFormat string) string {
	if cfg.HasBlend() {
		return blendGraph(cfg, pixelFormat)
	}
	return NewFilterGraph().
		AddChain([]string{InputVideo}, linearChain(cfg, pixelFormat), LabelOut).
		Build()
}

// BuildPreviewArgs returns the full argument list for rendering one graded
// frame of input at offset into output.
func BuildPreviewArgs(input, output string, offset time.Duration, cfg grade.Config) []string {
	args := []string{"-ss", util.FormatSeconds(offset), "-i", input}
	args = append(args, BuildPreviewFilter(cfg).Arguments...)
	return append(args, "-y", "-f", "image2", output)
}

// BuildExportArgs returns the full argument list for exporting input to
// output. Edit lists are ignored at the demuxer and frame timing is passed
// through so sources with unusual timestamp metadata stay aligned.
func BuildExportArgs(input, output string, cfg grade.Config, profile EncodingProfile) []string {
	args := []string{"-y", "-ignore_editlist", "1", "-i", input}
	args = append(args, "-fps_mode", "passthrough")
	args = append(args, profile.Args()...)
	args = append(args, "-c:a", AudioCodec, "-b:a", AudioBitrate)
	args = append(args, "-filter_complex", BuildExportFilter(cfg, profile.PixelFormat()))
	args = append(args, "-map", Label(LabelOut), "-map", "0:a?")
	return append(args, output)
}

// linearChain is LUT, white balance and pixel format, each only if needed.
func linearChain(cfg grade.Config, pixelFormat string) *VideoFilterChain {
	chain := NewVideoFilterChain()
	if cfg.HasPrimary() {
		chain.AddFilter(LUT3DFilter(cfg.PrimaryLUT()))
	}
	return chain.
		AddFilter(ColorBalanceFilter(cfg.Balance())).
		AddFilter(FormatFilter(pixelFormat))
}

// blendGraph grades the input twice, once with the primary LUT and once with
// primary then secondary, and overlays the second branch by opacity.
func blendGraph(cfg grade.Config, pixelFormat string) string {
	primary := NewVideoFilterChain().AddFilter(LUT3DFilter(cfg.PrimaryLUT()))
	secondary := NewVideoFilterChain().
		AddFilter(LUT3DFilter(cfg.PrimaryLUT())).
		AddFilter(LUT3DFilter(cfg.SecondaryLUT()))
	blend := NewVideoFilterChain().
		AddFilter(BlendFilter(cfg.Opacity())).
		AddFilter(ColorBalanceFilter(cfg.Balance())).
		AddFilter(FormatFilter(pixelFormat))

	return NewFilterGraph().
		AddChain([]string{InputVideo}, primary, LabelPrimary).
		AddChain([]string{InputVideo}, secondary, LabelSecondary).
		AddChain([]string{LabelPrimary, LabelSecondary}, blend, LabelOut).
		Build()
}
