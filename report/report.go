package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/swdee/go-pnideval/apeval"
	"github.com/swdee/go-pnideval/region"
	"github.com/swdee/go-pnideval/stats"
)

// Result is everything produced by one evaluation run
type Result struct {
	// RunID identifies the run in the report header
	RunID string
	// Corpus holds the per drawing statistics in drawing order
	Corpus stats.Corpus
	// AP is the summary over every evaluated class, nil when AP was not
	// computed
	AP *apeval.Summary
	// SymbolAP is the summary with text classes ignored, nil when symbol only
	// figures are not requested
	SymbolAP *apeval.Summary
}

// Options select the optional report sections
type Options struct {
	Classes *region.ClassMap
	// Recognition prints text recognition ratios
	Recognition     bool
	RecognitionMode stats.RecognitionMode
	// CompareAngle prints the degree correction ratio
	CompareAngle bool
	// SymbolOnly prints precision and recall with text classes removed
	SymbolOnly  bool
	Aggregation stats.Aggregation
}

// headerRule trails the drawing id in every section header
const headerRule = "----------------------------------"

// WriteResults writes the per drawing section for every drawing followed by
// the corpus summary lines.  Undefined ratios are printed as 0.
func WriteResults(w io.Writer, res Result, opts Options) error {

	bw := bufio.NewWriter(w)

	if res.RunID != "" {
		fmt.Fprintf(bw, "run : %s\n\n", res.RunID)
	}

	for _, d := range res.Corpus.Drawings {
		writeDrawing(bw, d, opts)
	}

	writeSummary(bw, res, opts)

	return bw.Flush()
}

// writeDrawing writes the section of a single drawing
func writeDrawing(w io.Writer, d stats.Drawing, opts Options) {

	fmt.Fprintf(w, "test drawing : %s%s\n", d.DrawingID, headerRule)
	fmt.Fprintf(w, "total precision : %s\n", d.Precision())
	fmt.Fprintf(w, "total recall : %s\n", d.Recall())

	if opts.Recognition {
		fmt.Fprintf(w, "total recognition ratio: %s\n", d.Recognition.Ratio(opts.RecognitionMode))
	}

	if opts.CompareAngle {
		fmt.Fprintf(w, "total degree correction ratio: %s\n", d.Angle)
	}

	if opts.SymbolOnly {
		fmt.Fprintf(w, "\nonly symbol precision : %s\n", d.SymbolOnly.Precision())
		fmt.Fprintf(w, "only symbol recall : %s\n", d.SymbolOnly.Recall())
	}

	for _, cc := range d.PerClass {
		fmt.Fprintf(w, "%s\n", classLine(cc, opts.Classes))
	}

	fmt.Fprintln(w)
}

// classLine formats "class ID (['name']) : detected / ground truth"
func classLine(cc stats.ClassCounts, classes *region.ClassMap) string {

	name := fmt.Sprintf("%d", cc.Class)

	if classes != nil {
		name = classes.Name(cc.Class)
	}

	return fmt.Sprintf("class %d (['%s']) : %d / %d", cc.Class, name, cc.Detected, cc.GroundTruth)
}

// writeSummary writes the AP block and the corpus tuple lines
func writeSummary(w io.Writer, res Result, opts Options) {

	c := res.Corpus
	precision, recall := c.PrecisionRecall(opts.Aggregation)

	fmt.Fprintf(w, "corpus (%s) : %d drawings\n", opts.Aggregation, len(c.Drawings))
	fmt.Fprintf(w, "total precision : %s\n", c.Precision())
	fmt.Fprintf(w, "total recall : %s\n", c.Recall())

	if opts.Recognition {
		fmt.Fprintf(w, "total recognition ratio: %s\n", c.Recognition(opts.RecognitionMode))
	}

	if opts.CompareAngle {
		fmt.Fprintf(w, "total degree correction ratio: %s\n", c.AngleCorrection())
	}

	fmt.Fprintln(w)

	var ap apeval.Summary

	if res.AP != nil {
		ap = *res.AP
		fmt.Fprint(w, ap.String())
		fmt.Fprintln(w)
	}

	if opts.SymbolOnly {
		sym := c.SymbolOnly()
		symP, symR := sym.Precision().Float(), sym.Recall().Float()

		if opts.Aggregation == stats.Averaged {
			symP, symR = meanSymbolOnly(c)
		}

		var symAP apeval.Summary

		if res.SymbolAP != nil {
			symAP = *res.SymbolAP
		}

		fmt.Fprintf(w, "(mean precision only sym, mean recall only sym, ap, ap50, ap75) = %s\n",
			tuple(symP, symR, symAP.AP, symAP.AP50, symAP.AP75))
	}

	recog := 0.0

	if opts.Recognition {
		recog = c.Recognition(opts.RecognitionMode).Float()
	}

	fmt.Fprintf(w, "(mean precision, mean recall, mean recognition ratio, ap, ap50, ap75) = %s\n",
		tuple(precision, recall, recog, ap.AP, ap.AP50, ap.AP75))
}

// meanSymbolOnly averages symbol only precision and recall per drawing
func meanSymbolOnly(c stats.Corpus) (precision, recall float64) {

	if len(c.Drawings) == 0 {
		return 0, 0
	}

	for _, d := range c.Drawings {
		precision += d.SymbolOnly.Precision().Float()
		recall += d.SymbolOnly.Recall().Float()
	}

	n := float64(len(c.Drawings))

	return precision / n, recall / n
}

// tuple formats values as "(a, b, c)"
func tuple(vals ...float64) string {

	parts := make([]string, len(vals))

	for i, v := range vals {
		parts[i] = fmt.Sprintf("%.4f", v)
	}

	return "(" + strings.Join(parts, ", ") + ")"
}
