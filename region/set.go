package region

import (
	"sort"
)

// Set holds the ground truth and detection regions of one drawing.  The
// order within each slice is the insertion order and only serves as the
// deterministic tie-break during matching and merging.
type Set struct {
	DrawingID   string
	GroundTruth []Region
	Detections  []Region
}

// Filter returns a copy of the set keeping only regions whose class is
// accepted by keep
func (s Set) Filter(keep func(ClassID) bool) Set {
	return Set{
		DrawingID:   s.DrawingID,
		GroundTruth: FilterClasses(s.GroundTruth, keep),
		Detections:  FilterClasses(s.Detections, keep),
	}
}

// WithDetections returns a copy of the set with its detections replaced
func (s Set) WithDetections(dets []Region) Set {
	s.Detections = dets
	return s
}

// FilterClasses returns the regions whose class is accepted by keep
func FilterClasses(regions []Region, keep func(ClassID) bool) []Region {

	res := make([]Region, 0, len(regions))

	for _, r := range regions {
		if keep(r.Class) {
			res = append(res, r)
		}
	}

	return res
}

// Classes returns the distinct classes present in regions sorted ascending
func Classes(regions []Region) []ClassID {

	seen := make(map[ClassID]bool)
	var res []ClassID

	for _, r := range regions {
		if !seen[r.Class] {
			seen[r.Class] = true
			res = append(res, r.Class)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})

	return res
}

// Stamp sets the drawing, role and a fresh id from gen on every region
func Stamp(regions []Region, drawingID string, role Role, gen *IDGenerator) {

	for i := range regions {
		regions[i].DrawingID = drawingID
		regions[i].Role = role
		regions[i].ID = gen.GetNext()
	}
}
