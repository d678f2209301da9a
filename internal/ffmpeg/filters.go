package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/five82/lutgrade/internal/grade"
	"github.com/five82/lutgrade/internal/util"
)

// Pad labels shared by preview and export graphs.
const (
	InputVideo     = "0:v"
	LabelPrimary   = "primary"
	LabelSecondary = "secondary"
	LabelOut       = "out"
)

// VideoFilterChain builds video filter chains.
type VideoFilterChain struct {
	filters []string
}

// NewVideoFilterChain creates a new empty filter chain.
func NewVideoFilterChain() *VideoFilterChain {
	return &VideoFilterChain{}
}

// AddFilter adds a filter to the chain. Empty filters are ignored.
func (c *VideoFilterChain) AddFilter(filter string) *VideoFilterChain {
	if filter != "" {
		c.filters = append(c.filters, filter)
	}
	return c
}

// Build builds the filter chain into a single filter string.
// Returns empty string if no filters are present.
func (c *VideoFilterChain) Build() string {
	if len(c.filters) == 0 {
		return ""
	}
	return strings.Join(c.filters, ",")
}

// IsEmpty returns true if no filters are present.
func (c *VideoFilterChain) IsEmpty() bool {
	return len(c.filters) == 0
}

// FilterGraph builds a -filter_complex description out of labelled chains.
type FilterGraph struct {
	chains []string
}

// NewFilterGraph creates an empty graph.
func NewFilterGraph() *FilterGraph {
	return &FilterGraph{}
}

// AddChain appends "[in1][in2]chain[out]" to the graph.
func (g *FilterGraph) AddChain(inputs []string, chain *VideoFilterChain, output string) *FilterGraph {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString(Label(in))
	}
	b.WriteString(chain.Build())
	b.WriteString(Label(output))
	g.chains = append(g.chains, b.String())
	return g
}

// Build joins the chains with ';'.
func (g *FilterGraph) Build() string {
	return strings.Join(g.chains, ";")
}

// Label wraps a pad name in brackets.
func Label(name string) string {
	return "[" + name + "]"
}

// LUT3DFilter returns a lut3d stage for path.
func LUT3DFilter(path string) string {
	return "lut3d=" + quoteFilterValue(path)
}

// BlendFilter returns an overlay blend weighted by opacity, where 0 shows only
// the first input and 1 only the second.
func BlendFilter(opacity float64) string {
	return "blend=all_mode=overlay:all_opacity=" + util.FormatDecimal(util.Clamp01(opacity))
}

// FormatFilter returns a pixel format conversion stage.
func FormatFilter(pixelFormat string) string {
	if pixelFormat == "" {
		return ""
	}
	return "format=" + pixelFormat
}

// ColorBalanceFilter returns the colorbalance stage for b, or "" when b is
// neutral so that the stage is left out of the graph entirely.
func ColorBalanceFilter(b grade.Balance) string {
	if b.IsNeutral() {
		return ""
	}
	return fmt.Sprintf("colorbalance=rm=%s:bm=%s", util.FormatDecimal(b.Red), util.FormatDecimal(b.Blue))
}

// quoteFilterValue single-quotes v for a filtergraph. A literal quote has to
// close the quoted run, be escaped, and reopen it.
func quoteFilterValue(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}
