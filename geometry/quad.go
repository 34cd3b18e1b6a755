package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/mat"
)

// Quad is a quadrilateral described by its four ordered vertices.  Axis
// aligned boxes are represented as quads with right angled vertices so that
// every shape passing through the evaluator shares one representation.
type Quad [4]orb.Point

// FromCorners returns the axis aligned quad spanning the given corners.  The
// vertices are ordered (xmin,ymin), (xmax,ymin), (xmax,ymax), (xmin,ymax).
func FromCorners(xmin, ymin, xmax, ymax float64) Quad {
	return Quad{
		{xmin, ymin},
		{xmax, ymin},
		{xmax, ymax},
		{xmin, ymax},
	}
}

// FromXYWH returns the axis aligned quad for a box given by its top left
// corner and size, as used in COCO annotations
func FromXYWH(x, y, w, h float64) Quad {
	return FromCorners(x, y, x+w, y+h)
}

// FromFlat builds a quad from eight coordinates x1 y1 x2 y2 x3 y3 x4 y4
func FromFlat(c [8]float64) Quad {
	return Quad{
		{c[0], c[1]},
		{c[2], c[3]},
		{c[4], c[5]},
		{c[6], c[7]},
	}
}

// FromRotated expands the two point plus angle encoding into four vertices.
// The box (xmin,ymin)-(xmax,ymax) is rotated about its centre by degrees,
// positive angles rotate clockwise in image coordinates (y axis down).
func FromRotated(xmin, ymin, xmax, ymax, degrees float64) Quad {

	q := FromCorners(xmin, ymin, xmax, ymax)

	if degrees == 0 {
		return q
	}

	cx := (xmin + xmax) / 2
	cy := (ymin + ymax) / 2

	return q.rotate(orb.Point{cx, cy}, degrees)
}

// ToRotated is the inverse of FromRotated.  Vertex 1 and vertex 3 are rotated
// back by -degrees about the midpoint of their diagonal which recovers the
// unrotated box corners.
func (q Quad) ToRotated(degrees float64) (xmin, ymin, xmax, ymax float64) {

	c := orb.Point{(q[0][0] + q[2][0]) / 2, (q[0][1] + q[2][1]) / 2}
	diag := q.rotate(c, -degrees)

	xmin = math.Min(diag[0][0], diag[2][0])
	xmax = math.Max(diag[0][0], diag[2][0])
	ymin = math.Min(diag[0][1], diag[2][1])
	ymax = math.Max(diag[0][1], diag[2][1])

	return xmin, ymin, xmax, ymax
}

// rotate returns the quad rotated about c by degrees
func (q Quad) rotate(c orb.Point, degrees float64) Quad {

	rad := degrees * math.Pi / 180
	cos := math.Cos(rad)
	sin := math.Sin(rad)

	// rotation matrix
	r := mat.NewDense(2, 2, []float64{
		cos, -sin,
		sin, cos,
	})

	// vertices relative to the centre as column vectors
	rel := mat.NewDense(2, 4, nil)

	for i, p := range q {
		rel.Set(0, i, p[0]-c[0])
		rel.Set(1, i, p[1]-c[1])
	}

	var out mat.Dense
	out.Mul(r, rel)

	var res Quad

	for i := range res {
		res[i] = orb.Point{out.At(0, i) + c[0], out.At(1, i) + c[1]}
	}

	return res
}

// Ring returns the quad as an unclosed orb ring
func (q Quad) Ring() orb.Ring {
	return orb.Ring{q[0], q[1], q[2], q[3]}
}

// Bound returns the axis aligned bounding box of the quad
func (q Quad) Bound() orb.Bound {
	return q.Ring().Bound()
}

// Area returns the unsigned area of the quad
func (q Quad) Area() float64 {
	return math.Abs(planar.Area(q.Ring()))
}

// Centroid returns the mean of the four vertices.  This is not the area
// centroid, it is the reference point used when combining fragments.
func (q Quad) Centroid() orb.Point {

	var x, y float64

	for _, p := range q {
		x += p[0]
		y += p[1]
	}

	return orb.Point{x / 4, y / 4}
}

// MinY returns the smallest y coordinate (top edge in image coordinates)
func (q Quad) MinY() float64 {
	return q.Bound().Min[1]
}

// MaxY returns the largest y coordinate (bottom edge in image coordinates)
func (q Quad) MaxY() float64 {
	return q.Bound().Max[1]
}

// Flat returns the eight coordinates x1 y1 x2 y2 x3 y3 x4 y4
func (q Quad) Flat() [8]float64 {
	return [8]float64{
		q[0][0], q[0][1],
		q[1][0], q[1][1],
		q[2][0], q[2][1],
		q[3][0], q[3][1],
	}
}

// Round returns the quad with every coordinate rounded to the nearest integer
func (q Quad) Round() Quad {

	var res Quad

	for i, p := range q {
		res[i] = orb.Point{math.Round(p[0]), math.Round(p[1])}
	}

	return res
}

// Translate returns the quad shifted by dx, dy
func (q Quad) Translate(dx, dy float64) Quad {

	var res Quad

	for i, p := range q {
		res[i] = orb.Point{p[0] + dx, p[1] + dy}
	}

	return res
}

// Degenerate reports whether the quad encloses no area
func (q Quad) Degenerate() bool {
	return q.Area() == 0
}
