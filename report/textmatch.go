package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/match"
	"github.com/swdee/go-pnideval/region"
)

const (
	// placeholderMissed marks a ground truth text region with no matched
	// detection
	placeholderMissed = "<missed>"
	// placeholderUnrecognised marks a matched detection carrying no text
	placeholderUnrecognised = "<unrecognised>"
)

// Matched is a region set with the matching computed for it
type Matched struct {
	Set     region.Set
	Mapping match.Mapping
}

// TextMatchOptions control the text match dump
type TextMatchOptions struct {
	// TextClasses is the text class family to list
	TextClasses map[region.ClassID]bool
	// RecognizedOnly lists only pairs whose strings are identical
	RecognizedOnly bool
}

// WriteTextMatches lists every ground truth text region with the geometry and
// text of its matched detection, one drawing section at a time.  Each line is
// "gt text<TAB>detected text<TAB>detection quad".
func WriteTextMatches(w io.Writer, drawings []Matched, opts TextMatchOptions) error {

	bw := bufio.NewWriter(w)

	for _, m := range drawings {
		fmt.Fprintf(bw, "test drawing : %s%s\n", m.Set.DrawingID, headerRule)

		for gi, g := range m.Set.GroundTruth {
			if !opts.TextClasses[g.Class] {
				continue
			}

			gtText := g.TextOr("")
			dtText := placeholderMissed
			quad := placeholderMissed

			if di, ok := m.Mapping.Detection(gi); ok {
				d := m.Set.Detections[di]
				dtText = d.TextOr(placeholderUnrecognised)
				quad = formatQuad(d.Geometry)
			}

			if opts.RecognizedOnly && (dtText != gtText || g.Text == nil) {
				continue
			}

			fmt.Fprintf(bw, "%s\t%s\t%s\n", gtText, dtText, quad)
		}

		fmt.Fprintln(bw)
	}

	return bw.Flush()
}

// formatQuad prints the vertices as comma separated rounded coordinates
func formatQuad(q geometry.Quad) string {

	flat := q.Round().Flat()
	parts := make([]string, len(flat))

	for i, v := range flat {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return strings.Join(parts, ",")
}
