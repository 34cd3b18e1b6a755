package match

import (
	"sort"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/region"
)

// ThresholdPolicy defines the minimum IoU a detection must exceed to match a
// ground truth region.  Classes without an override use Default.
type ThresholdPolicy struct {
	Default  float64
	PerClass map[region.ClassID]float64
}

// DefaultThreshold is the IoU threshold used when no policy is configured
const DefaultThreshold = 0.5

// DefaultPolicy returns a policy using DefaultThreshold for every class
func DefaultPolicy() ThresholdPolicy {
	return ThresholdPolicy{Default: DefaultThreshold}
}

// For returns the threshold applicable to the class
func (p ThresholdPolicy) For(class region.ClassID) float64 {

	if t, ok := p.PerClass[class]; ok {
		return t
	}

	return p.Default
}

// Mapping is the bidirectional result of matching.  Keys and values are
// indices into the ground truth and detection slices given to Match.
type Mapping struct {
	GroundTruthToDetection map[int]int
	DetectionToGroundTruth map[int]int
}

// Pair is one matched ground truth and detection index
type Pair struct {
	GroundTruth int
	Detection   int
}

// NewMapping returns an empty mapping
func NewMapping() Mapping {
	return Mapping{
		GroundTruthToDetection: make(map[int]int),
		DetectionToGroundTruth: make(map[int]int),
	}
}

// Len returns the number of matched pairs
func (m Mapping) Len() int {
	return len(m.GroundTruthToDetection)
}

// Detection returns the detection matched to the ground truth index
func (m Mapping) Detection(gt int) (int, bool) {
	dt, ok := m.GroundTruthToDetection[gt]
	return dt, ok
}

// GroundTruth returns the ground truth matched to the detection index
func (m Mapping) GroundTruth(dt int) (int, bool) {
	gt, ok := m.DetectionToGroundTruth[dt]
	return gt, ok
}

// Pairs returns the matched pairs sorted by ground truth index
func (m Mapping) Pairs() []Pair {

	pairs := make([]Pair, 0, len(m.GroundTruthToDetection))

	for gt, dt := range m.GroundTruthToDetection {
		pairs = append(pairs, Pair{GroundTruth: gt, Detection: dt})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].GroundTruth < pairs[j].GroundTruth
	})

	return pairs
}

// add records a pair in both directions
func (m Mapping) add(gt, dt int) {
	m.GroundTruthToDetection[gt] = dt
	m.DetectionToGroundTruth[dt] = gt
}

// Match pairs detections with ground truth regions of one drawing.  The
// detections are visited in descending score order (ties keep their input
// order) and each claims the unmatched ground truth region of the same class
// with the highest IoU, provided the IoU strictly exceeds the class
// threshold.  Equal IoUs resolve to the lowest ground truth index.  The
// result is greedy, not a globally optimal assignment.  A missing detection
// score counts as 0.
func Match(groundTruth, detections []region.Region, policy ThresholdPolicy) Mapping {

	m := NewMapping()

	if len(groundTruth) == 0 || len(detections) == 0 {
		return m
	}

	order := ScoreOrder(detections)

	// index ground truth by class so detections only scan their own class
	byClass := make(map[region.ClassID][]int)

	for i, gt := range groundTruth {
		byClass[gt.Class] = append(byClass[gt.Class], i)
	}

	for _, di := range order {
		det := detections[di]
		thresh := policy.For(det.Class)

		best := -1
		bestIoU := 0.0

		for _, gi := range byClass[det.Class] {
			if _, taken := m.GroundTruthToDetection[gi]; taken {
				continue
			}

			iou := geometry.IoU(det.Geometry, groundTruth[gi].Geometry)

			// candidates are visited in ascending index so strict comparison
			// keeps the lowest index on ties
			if iou > bestIoU {
				best = gi
				bestIoU = iou
			}
		}

		if best >= 0 && bestIoU > thresh {
			m.add(best, di)
		}
	}

	return m
}

// ScoreOrder returns the detection indices sorted by descending score, equal
// scores keep their input order
func ScoreOrder(detections []region.Region) []int {

	order := make([]int, len(detections))

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].ScoreOr(0) > detections[order[b]].ScoreOr(0)
	})

	return order
}
