package stats

import (
	"fmt"
	"sort"

	"github.com/swdee/go-pnideval/match"
	"github.com/swdee/go-pnideval/region"
)

// RecognitionMode selects the denominator of the text recognition ratio
type RecognitionMode int

const (
	// ScoreGroundTruth divides recognised pairs by every ground truth text
	// region
	ScoreGroundTruth RecognitionMode = iota
	// ScoreTruePositive divides recognised pairs by the matched text pairs
	// whose detection carries text
	ScoreTruePositive
)

// String returns the configuration name of the mode
func (m RecognitionMode) String() string {
	if m == ScoreTruePositive {
		return "tp"
	}
	return "gt"
}

// ParseRecognitionMode converts "gt" or "tp" into a mode
func ParseRecognitionMode(s string) (RecognitionMode, error) {
	switch s {
	case "gt", "":
		return ScoreGroundTruth, nil
	case "tp":
		return ScoreTruePositive, nil
	}
	return 0, fmt.Errorf("unknown recognition mode %q", s)
}

// Options control what is counted for a drawing
type Options struct {
	// TextClasses is the text class family used for recognition and symbol
	// only figures
	TextClasses map[region.ClassID]bool
	// CompareAngle enables counting matched pairs whose angles agree
	CompareAngle bool
}

// Counts are the raw tallies behind precision and recall
type Counts struct {
	// Detected is the number of matched pairs (true positives)
	Detected int
	// Predictions is the number of detections considered
	Predictions int
	// GroundTruth is the number of ground truth regions
	GroundTruth int
}

// Precision returns Detected / Predictions
func (c Counts) Precision() Ratio {
	return Ratio{Num: c.Detected, Den: c.Predictions}
}

// Recall returns Detected / GroundTruth
func (c Counts) Recall() Ratio {
	return Ratio{Num: c.Detected, Den: c.GroundTruth}
}

// add returns the element wise sum
func (c Counts) add(o Counts) Counts {
	return Counts{
		Detected:    c.Detected + o.Detected,
		Predictions: c.Predictions + o.Predictions,
		GroundTruth: c.GroundTruth + o.GroundTruth,
	}
}

// ClassCounts are the counts restricted to one class
type ClassCounts struct {
	Class region.ClassID
	Counts
}

// Recognition tallies text recognition on matched text pairs
type Recognition struct {
	// GroundTruthText is the number of ground truth text regions
	GroundTruthText int
	// TruePositiveText is the number of matched text pairs where the
	// detection carries text
	TruePositiveText int
	// Recognized is the number of those pairs with identical strings
	Recognized int
}

// Ratio returns the recognition ratio for the mode
func (r Recognition) Ratio(mode RecognitionMode) Ratio {

	if mode == ScoreTruePositive {
		return Ratio{Num: r.Recognized, Den: r.TruePositiveText}
	}

	return Ratio{Num: r.Recognized, Den: r.GroundTruthText}
}

// add returns the element wise sum
func (r Recognition) add(o Recognition) Recognition {
	return Recognition{
		GroundTruthText:  r.GroundTruthText + o.GroundTruthText,
		TruePositiveText: r.TruePositiveText + o.TruePositiveText,
		Recognized:       r.Recognized + o.Recognized,
	}
}

// Drawing is the evaluation result of one drawing
type Drawing struct {
	DrawingID string
	Counts
	// PerClass holds one entry for every class present in ground truth,
	// sorted by class id
	PerClass    []ClassCounts
	Recognition Recognition
	// Angle counts matched pairs (Den) and those with equal angles (Num),
	// only filled when angles are compared
	Angle Ratio
	// SymbolOnly are the counts with text classes removed
	SymbolOnly Counts
}

// Compute derives the statistics of one drawing from its region set and the
// matching produced for it
func Compute(set region.Set, m match.Mapping, opts Options) Drawing {

	gt := set.GroundTruth
	dets := set.Detections

	d := Drawing{
		DrawingID: set.DrawingID,
		Counts: Counts{
			Detected:    m.Len(),
			Predictions: len(dets),
			GroundTruth: len(gt),
		},
	}

	isText := func(c region.ClassID) bool {
		return opts.TextClasses[c]
	}

	// per class tallies keyed by every ground truth class
	perClass := make(map[region.ClassID]*ClassCounts)

	for _, c := range region.Classes(gt) {
		perClass[c] = &ClassCounts{Class: c}
	}

	for _, r := range gt {
		perClass[r.Class].GroundTruth++

		if isText(r.Class) {
			d.Recognition.GroundTruthText++
		} else {
			d.SymbolOnly.GroundTruth++
		}
	}

	for _, r := range dets {
		if cc, ok := perClass[r.Class]; ok {
			cc.Predictions++
		}

		if !isText(r.Class) {
			d.SymbolOnly.Predictions++
		}
	}

	for _, p := range m.Pairs() {
		g := gt[p.GroundTruth]
		dt := dets[p.Detection]

		perClass[g.Class].Detected++

		if !isText(g.Class) {
			d.SymbolOnly.Detected++
		}

		if isText(g.Class) && isText(dt.Class) && dt.Text != nil {
			d.Recognition.TruePositiveText++

			if g.Text != nil && *g.Text == *dt.Text {
				d.Recognition.Recognized++
			}
		}

		if opts.CompareAngle {
			d.Angle.Den++

			if g.AngleOr(0) == dt.AngleOr(0) {
				d.Angle.Num++
			}
		}
	}

	d.PerClass = make([]ClassCounts, 0, len(perClass))

	for _, cc := range perClass {
		d.PerClass = append(d.PerClass, *cc)
	}

	sort.Slice(d.PerClass, func(i, j int) bool {
		return d.PerClass[i].Class < d.PerClass[j].Class
	})

	return d
}
