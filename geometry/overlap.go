package geometry

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// fixedPointScale is the factor applied to float coordinates before handing
// them to clipper which works on integer coordinates.  Drawing coordinates
// are pixels so three decimal places keeps intersection areas exact for the
// integer and half pixel boxes produced by detectors.
const fixedPointScale = 1000.0

// AreaOverlap returns the intersection and union areas of the two quads.
// A cheap bounding box test rejects disjoint pairs before the exact polygon
// clip is performed.  Degenerate quads never intersect anything.
func AreaOverlap(a, b Quad) (intersection, union float64) {

	areaA := a.Area()
	areaB := b.Area()
	union = areaA + areaB

	if areaA == 0 || areaB == 0 {
		return 0, union
	}

	if !a.Bound().Intersects(b.Bound()) {
		return 0, union
	}

	intersection = intersectionArea(a, b)

	// clamp rounding noise from the fixed point conversion
	intersection = math.Min(intersection, math.Min(areaA, areaB))

	return intersection, union - intersection
}

// IoU returns the Intersection over Union of the two quads, 0 when the union
// is empty
func IoU(a, b Quad) float64 {

	inter, union := AreaOverlap(a, b)

	if union <= 0 {
		return 0
	}

	return inter / union
}

// IoF returns the Intersection over Foreground, the share of other's area
// that is covered by reference.  It is asymmetric, 0 when other has no area.
func IoF(reference, other Quad) float64 {

	area := other.Area()

	if area == 0 {
		return 0
	}

	inter, _ := AreaOverlap(reference, other)

	return inter / area
}

// intersectionArea clips the two quads against each other and returns the
// area of the resulting polygons
func intersectionArea(a, b Quad) float64 {

	c := clipper.NewClipper(0)
	c.AddPath(toPath(a), clipper.PtSubject, true)
	c.AddPath(toPath(b), clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)

	if !ok {
		return 0
	}

	// two simple quads intersect in hole free pieces, their areas add up
	var area float64

	for _, path := range solution {
		area += math.Abs(planar.Area(fromPath(path)))
	}

	return area / (fixedPointScale * fixedPointScale)
}

// toPath converts a quad into a fixed point clipper path
func toPath(q Quad) clipper.Path {

	path := make(clipper.Path, 0, len(q))

	for _, p := range q {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(p[0] * fixedPointScale)),
			Y: clipper.CInt(math.Round(p[1] * fixedPointScale)),
		})
	}

	return path
}

// fromPath converts a clipper path back into an orb ring, still in fixed
// point units
func fromPath(path clipper.Path) orb.Ring {

	ring := make(orb.Ring, 0, len(path))

	for _, pt := range path {
		ring = append(ring, orb.Point{float64(pt.X), float64(pt.Y)})
	}

	return ring
}
