package filter

import (
	flatbush "github.com/bmharper/flatbush-go"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/match"
	"github.com/swdee/go-pnideval/region"
)

// Params defines the detection filtering applied before matching
type Params struct {
	// ScoreThreshold is the minimum score a detection needs to be kept
	ScoreThreshold float64
	// PerClassScore overrides ScoreThreshold for individual classes, used to
	// lower the bar for rare symbols
	PerClassScore map[region.ClassID]float64
	// NMSThreshold is the IoU above which the lower scored of two detections
	// of the same class is suppressed.  Zero disables NMS.
	NMSThreshold float64
	// SmallBoxOverlap suppresses a detection when this share of its area is
	// covered by a higher scored detection of the same class.  Zero disables
	// the check.
	SmallBoxOverlap float64
}

// DefaultParams returns the filtering used for the P&ID symbol models
func DefaultParams() Params {
	return Params{
		ScoreThreshold: 0.5,
		NMSThreshold:   0.5,
	}
}

// scoreFor returns the score threshold applicable to the class
func (p Params) scoreFor(class region.ClassID) float64 {

	if t, ok := p.PerClassScore[class]; ok {
		return t
	}

	return p.ScoreThreshold
}

// Apply runs score filtering followed by class aware NMS.  The input is not
// modified and the output keeps the input order.
func Apply(detections []region.Region, p Params) []region.Region {
	return NMS(Score(detections, p), p.NMSThreshold, p.SmallBoxOverlap)
}

// Score returns the detections whose score reaches the class threshold
func Score(detections []region.Region, p Params) []region.Region {

	keep := make([]region.Region, 0, len(detections))

	for _, det := range detections {
		if det.ScoreOr(0) >= p.scoreFor(det.Class) {
			keep = append(keep, det)
		}
	}

	return keep
}

// NMS runs class aware non-maximum suppression.  Detections are visited by
// descending score and a detection is dropped when a kept detection of the
// same class overlaps it with an IoU above iouThreshold, or covers more than
// smallBoxOverlap of its area.  Survivors are returned in input order.
func NMS(detections []region.Region, iouThreshold, smallBoxOverlap float64) []region.Region {

	if len(detections) < 2 || (iouThreshold <= 0 && smallBoxOverlap <= 0) {
		return detections
	}

	// spatial index over the detection bounds so only nearby boxes are
	// compared
	fb := flatbush.NewFlatbush64()
	fb.Reserve(len(detections))

	for _, det := range detections {
		b := det.Geometry.Bound()
		fb.Add(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	}

	fb.Finish()

	kept := make([]bool, len(detections))
	suppressed := make([]bool, len(detections))

	for _, i := range match.ScoreOrder(detections) {

		if suppressed[i] {
			continue
		}

		kept[i] = true
		det := detections[i]
		b := det.Geometry.Bound()

		for _, j := range fb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1]) {

			if j == i || kept[j] || suppressed[j] || detections[j].Class != det.Class {
				continue
			}

			other := detections[j].Geometry

			// do IoU check
			if iouThreshold > 0 && geometry.IoU(det.Geometry, other) > iouThreshold {
				suppressed[j] = true
				continue
			}

			// do partial box check, if the intersection covers most of the
			// small box
			if smallBoxOverlap > 0 && geometry.IoF(det.Geometry, other) > smallBoxOverlap {
				suppressed[j] = true
			}
		}
	}

	res := make([]region.Region, 0, len(detections))

	for i, det := range detections {
		if kept[i] {
			res = append(res, det)
		}
	}

	return res
}
