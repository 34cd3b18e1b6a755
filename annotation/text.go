package annotation

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/region"
)

// TextOptions controls reading of the DOTA text format
type TextOptions struct {
	// ScoreColumn treats the column after the class name as the detection
	// score instead of the difficulty flag
	ScoreColumn bool
}

// ReadText parses DOTA style lines "x1 y1 x2 y2 x3 y3 x4 y4 class [extra]".
// Lines starting with "imagesource" or "gsd" are DOTA headers and ignored.
func ReadText(r io.Reader, drawingID string, classes *region.ClassMap,
	opts TextOptions) (*Document, error) {

	doc := newDocument(drawingID)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "imagesource") || strings.HasPrefix(line, "gsd") {
			continue
		}

		fields := strings.Fields(line)

		if len(fields) < 9 {
			return nil, malformed(lineNo, "expected at least 9 fields, got %d", len(fields))
		}

		var coords [8]float64

		for i := 0; i < 8; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)

			if err != nil {
				return nil, malformed(lineNo, "invalid coordinate %q", fields[i])
			}

			coords[i] = v
		}

		name := fields[8]
		id, ok := classes.ID(name)

		if !ok {
			doc.Unknown[name]++
			continue
		}

		reg := region.Region{
			Class:    id,
			Geometry: geometry.FromFlat(coords),
		}

		if len(fields) > 9 {
			if opts.ScoreColumn {
				score, err := strconv.ParseFloat(fields[9], 64)

				if err != nil {
					return nil, malformed(lineNo, "invalid score %q", fields[9])
				}

				reg = reg.WithScore(score)

			} else {
				diff, err := strconv.Atoi(fields[9])

				if err != nil {
					return nil, malformed(lineNo, "invalid difficulty %q", fields[9])
				}

				reg.Attrs.Difficulty = diff
			}
		}

		doc.Regions = append(doc.Regions, reg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading annotation: %w", err)
	}

	return doc, nil
}

// WriteText writes regions in the DOTA text format.  Detections with a score
// get the score as the last column, other regions their difficulty.
func WriteText(w io.Writer, regions []region.Region, classes *region.ClassMap) error {

	bw := bufio.NewWriter(w)

	for _, r := range regions {
		for _, v := range r.Geometry.Flat() {
			fmt.Fprintf(bw, "%s ", formatCoord(v))
		}

		extra := strconv.Itoa(r.Attrs.Difficulty)

		if r.Score != nil {
			extra = strconv.FormatFloat(*r.Score, 'f', -1, 64)
		}

		fmt.Fprintf(bw, "%s %s\n", classes.Name(r.Class), extra)
	}

	return bw.Flush()
}

// formatCoord prints whole numbers without a fraction
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
