package apeval

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/match"
	"github.com/swdee/go-pnideval/region"
)

// ErrNoGroundTruth is returned when no drawing has a ground truth region of
// an evaluated class
var ErrNoGroundTruth = errors.New("no ground truth regions to evaluate")

// Evaluator computes average precision over a corpus.  Detections passed in
// must be the raw scored detector output, before score filtering or NMS.
type Evaluator interface {
	Evaluate(sets []region.Set) (Summary, error)
}

// Summary holds the headline AP figures
type Summary struct {
	// AP is the mean over IoU thresholds 0.50:0.05:0.95 and classes
	AP float64
	// AP50 is the mean over classes at IoU 0.50
	AP50 float64
	// AP75 is the mean over classes at IoU 0.75
	AP75 float64
	// PerClass is the AP of each class with ground truth, averaged over the
	// IoU thresholds
	PerClass map[region.ClassID]float64
	// MaxDetections is the per drawing per class detection cap used
	MaxDetections int
}

// String renders the summary in the COCO summary line style
func (s Summary) String() string {

	var b strings.Builder

	fmt.Fprintf(&b, " Average Precision  (AP) @[ IoU=0.50:0.95 | area=   all | maxDets=%d ] = %.3f\n", s.MaxDetections, s.AP)
	fmt.Fprintf(&b, " Average Precision  (AP) @[ IoU=0.50      | area=   all | maxDets=%d ] = %.3f\n", s.MaxDetections, s.AP50)
	fmt.Fprintf(&b, " Average Precision  (AP) @[ IoU=0.75      | area=   all | maxDets=%d ] = %.3f\n", s.MaxDetections, s.AP75)

	return b.String()
}

// COCO is the default Evaluator following the COCO detection protocol with
// bounding quads in place of boxes and no area ranges or crowd regions
type COCO struct {
	// MaxDetections caps the detections per drawing and class, ranked by
	// score.  Zero means unlimited.
	MaxDetections int
	// IgnoreClasses are excluded from the mean
	IgnoreClasses map[region.ClassID]bool
}

// recallPoints is the number of interpolated recall thresholds
const recallPoints = 101

// DefaultMaxDetections matches the largest COCO maxDets setting
const DefaultMaxDetections = 100

// NewCOCO returns a COCO evaluator with the default detection cap
func NewCOCO() *COCO {
	return &COCO{MaxDetections: DefaultMaxDetections}
}

// IoUThresholds returns 0.50, 0.55, ... 0.95
func IoUThresholds() []float64 {

	res := make([]float64, 10)

	for i := range res {
		res[i] = math.Round((0.5+0.05*float64(i))*100) / 100
	}

	return res
}

// scoredMatch is one ranked detection and whether it was a true positive
type scoredMatch struct {
	score float64
	tp    bool
}

// Evaluate computes AP, AP50 and AP75 over every drawing in sets
func (c *COCO) Evaluate(sets []region.Set) (Summary, error) {

	thresholds := IoUThresholds()

	// collect classes with ground truth
	numGT := make(map[region.ClassID]int)

	for _, s := range sets {
		for _, g := range s.GroundTruth {
			if !c.IgnoreClasses[g.Class] {
				numGT[g.Class]++
			}
		}
	}

	if len(numGT) == 0 {
		return Summary{MaxDetections: c.MaxDetections}, ErrNoGroundTruth
	}

	classes := make([]region.ClassID, 0, len(numGT))

	for class := range numGT {
		classes = append(classes, class)
	}

	sort.Slice(classes, func(i, j int) bool {
		return classes[i] < classes[j]
	})

	// ap[t][k] for threshold t and class k
	ap := make([][]float64, len(thresholds))

	for t, thresh := range thresholds {
		ap[t] = make([]float64, len(classes))

		for k, class := range classes {
			var ranked []scoredMatch

			for _, s := range sets {
				ranked = append(ranked, c.evaluateDrawing(s, class, thresh)...)
			}

			ap[t][k] = averagePrecision(ranked, numGT[class])
		}
	}

	sum := Summary{
		PerClass:      make(map[region.ClassID]float64, len(classes)),
		MaxDetections: c.MaxDetections,
	}

	all := make([]float64, 0, len(thresholds)*len(classes))

	for t := range thresholds {
		all = append(all, ap[t]...)
	}

	sum.AP = floats.Sum(all) / float64(len(all))
	sum.AP50 = floats.Sum(ap[0]) / float64(len(classes))
	sum.AP75 = floats.Sum(ap[5]) / float64(len(classes))

	for k, class := range classes {
		var v float64

		for t := range thresholds {
			v += ap[t][k]
		}

		sum.PerClass[class] = v / float64(len(thresholds))
	}

	return sum, nil
}

// evaluateDrawing matches the detections of one class in a drawing at the
// IoU threshold and returns them ranked with their outcome.  A detection
// claims the unmatched ground truth region with the highest IoU at or above
// the threshold.
func (c *COCO) evaluateDrawing(s region.Set, class region.ClassID, thresh float64) []scoredMatch {

	var gt []region.Region

	for _, g := range s.GroundTruth {
		if g.Class == class {
			gt = append(gt, g)
		}
	}

	var dets []region.Region

	for _, d := range s.Detections {
		if d.Class == class {
			dets = append(dets, d)
		}
	}

	order := match.ScoreOrder(dets)

	if c.MaxDetections > 0 && len(order) > c.MaxDetections {
		order = order[:c.MaxDetections]
	}

	taken := make([]bool, len(gt))
	res := make([]scoredMatch, 0, len(order))

	for _, di := range order {
		best := -1
		bestIoU := math.Min(thresh, 1-1e-10)

		for gi, g := range gt {
			if taken[gi] {
				continue
			}

			iou := geometry.IoU(dets[di].Geometry, g.Geometry)

			if iou < bestIoU {
				continue
			}

			bestIoU = iou
			best = gi
		}

		if best >= 0 {
			taken[best] = true
		}

		res = append(res, scoredMatch{score: dets[di].ScoreOr(0), tp: best >= 0})
	}

	return res
}

// averagePrecision computes the 101 point interpolated AP of the ranked
// matches pooled over drawings
func averagePrecision(ranked []scoredMatch, numGT int) float64 {

	if numGT == 0 {
		return 0
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := len(ranked)
	recall := make([]float64, n)
	precision := make([]float64, n)

	// cumulative true and false positive counts as the score threshold
	// decreases
	var tp, fp int

	for i, m := range ranked {
		if m.tp {
			tp++
		} else {
			fp++
		}

		recall[i] = float64(tp) / float64(numGT)
		precision[i] = float64(tp) / float64(tp+fp)
	}

	// make precision monotonically decreasing
	for i := n - 1; i > 0; i-- {
		if precision[i] > precision[i-1] {
			precision[i-1] = precision[i]
		}
	}

	q := make([]float64, recallPoints)

	for r := range q {
		rt := float64(r) / float64(recallPoints-1)
		idx := sort.SearchFloat64s(recall, rt)

		if idx < n {
			q[r] = precision[idx]
		}
	}

	return floats.Sum(q) / recallPoints
}
