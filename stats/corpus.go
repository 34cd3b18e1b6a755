package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/swdee/go-pnideval/region"
)

// Aggregation selects how corpus precision and recall are reported
type Aggregation int

const (
	// Pooled sums counts over all drawings before dividing
	Pooled Aggregation = iota
	// Averaged takes the arithmetic mean of the per drawing ratios, drawings
	// with an undefined ratio count as 0
	Averaged
)

// String returns the configuration name of the aggregation
func (a Aggregation) String() string {
	if a == Averaged {
		return "averaged"
	}
	return "pooled"
}

// ParseAggregation converts "pooled" or "averaged" into an Aggregation
func ParseAggregation(s string) (Aggregation, error) {
	switch s {
	case "pooled", "":
		return Pooled, nil
	case "averaged":
		return Averaged, nil
	}
	return 0, fmt.Errorf("unknown aggregation %q", s)
}

// Corpus accumulates the drawing results of an evaluation run
type Corpus struct {
	Drawings []Drawing
}

// Add appends a drawing result
func (c *Corpus) Add(d Drawing) {
	c.Drawings = append(c.Drawings, d)
}

// Totals returns the pooled counts over every drawing
func (c Corpus) Totals() Counts {

	var t Counts

	for _, d := range c.Drawings {
		t = t.add(d.Counts)
	}

	return t
}

// Precision returns the pooled precision
func (c Corpus) Precision() Ratio {
	return c.Totals().Precision()
}

// Recall returns the pooled recall
func (c Corpus) Recall() Ratio {
	return c.Totals().Recall()
}

// Recognition returns the pooled recognition ratio
func (c Corpus) Recognition(mode RecognitionMode) Ratio {

	var r Recognition

	for _, d := range c.Drawings {
		r = r.add(d.Recognition)
	}

	return r.Ratio(mode)
}

// AngleCorrection returns the pooled share of matched pairs with equal
// angles
func (c Corpus) AngleCorrection() Ratio {

	var r Ratio

	for _, d := range c.Drawings {
		r = r.Add(d.Angle)
	}

	return r
}

// SymbolOnly returns the pooled counts with text classes removed
func (c Corpus) SymbolOnly() Counts {

	var t Counts

	for _, d := range c.Drawings {
		t = t.add(d.SymbolOnly)
	}

	return t
}

// PerClass returns the pooled per class counts sorted by class id
func (c Corpus) PerClass() []ClassCounts {

	sum := make(map[region.ClassID]Counts)

	for _, d := range c.Drawings {
		for _, cc := range d.PerClass {
			sum[cc.Class] = sum[cc.Class].add(cc.Counts)
		}
	}

	res := make([]ClassCounts, 0, len(sum))

	for class, counts := range sum {
		res = append(res, ClassCounts{Class: class, Counts: counts})
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Class < res[j].Class
	})

	return res
}

// MeanPrecision returns the arithmetic mean of per drawing precision
func (c Corpus) MeanPrecision() float64 {
	return c.mean(func(d Drawing) Ratio { return d.Precision() })
}

// MeanRecall returns the arithmetic mean of per drawing recall
func (c Corpus) MeanRecall() float64 {
	return c.mean(func(d Drawing) Ratio { return d.Recall() })
}

// mean averages the ratio selected by fn over all drawings
func (c Corpus) mean(fn func(Drawing) Ratio) float64 {

	if len(c.Drawings) == 0 {
		return 0
	}

	vals := make([]float64, len(c.Drawings))

	for i, d := range c.Drawings {
		vals[i] = fn(d).Float()
	}

	return floats.Sum(vals) / float64(len(vals))
}

// PrecisionRecall returns corpus precision and recall under the given
// aggregation
func (c Corpus) PrecisionRecall(agg Aggregation) (precision, recall float64) {

	if agg == Averaged {
		return c.MeanPrecision(), c.MeanRecall()
	}

	return c.Precision().Float(), c.Recall().Float()
}
