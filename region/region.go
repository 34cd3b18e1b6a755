package region

import (
	"github.com/swdee/go-pnideval/geometry"
)

// ClassID is the integer identifier of a symbol or text class
type ClassID int

// Role discriminates between annotated ground truth and model output
type Role int

const (
	// GroundTruth is an annotated reference region
	GroundTruth Role = iota
	// Detection is a region produced by a detector
	Detection
)

// String returns the role name
func (r Role) String() string {
	switch r {
	case GroundTruth:
		return "gt"
	case Detection:
		return "dt"
	}
	return "unknown"
}

// Attributes carries pass through metadata from PNID annotations that the
// evaluator does not interpret
type Attributes struct {
	// Large marks a symbol as belonging to the large symbol group
	Large bool
	// Flip marks a horizontally flipped symbol
	Flip bool
	// Difficulty is the DOTA difficulty flag
	Difficulty int
}

// Region is a single annotated or detected area on a drawing
type Region struct {
	// ID is the identity of the region, two regions with equal geometry are
	// still distinct when their ID differs
	ID int64
	// DrawingID is the drawing the region belongs to
	DrawingID string
	Role      Role
	Class     ClassID
	Geometry  geometry.Quad
	// Score is the detector confidence, only present on detections
	Score *float64
	// Text is the recognised or annotated string content for text classes
	Text *string
	// Angle is the rotation in degrees when the region was given in two point
	// plus angle form
	Angle *float64
	Attrs Attributes
}

// ScoreOr returns the score or def when absent
func (r Region) ScoreOr(def float64) float64 {
	if r.Score == nil {
		return def
	}
	return *r.Score
}

// TextOr returns the text or def when absent
func (r Region) TextOr(def string) string {
	if r.Text == nil {
		return def
	}
	return *r.Text
}

// AngleOr returns the angle or def when absent
func (r Region) AngleOr(def float64) float64 {
	if r.Angle == nil {
		return def
	}
	return *r.Angle
}

// WithScore returns a copy of the region carrying the given score
func (r Region) WithScore(score float64) Region {
	r.Score = &score
	return r
}

// WithText returns a copy of the region carrying the given text
func (r Region) WithText(text string) Region {
	r.Text = &text
	return r
}

// WithAngle returns a copy of the region carrying the given angle
func (r Region) WithAngle(degrees float64) Region {
	r.Angle = &degrees
	return r
}

// Clone returns a deep copy so optional fields are not shared
func (r Region) Clone() Region {

	if r.Score != nil {
		r = r.WithScore(*r.Score)
	}

	if r.Text != nil {
		r = r.WithText(*r.Text)
	}

	if r.Angle != nil {
		r = r.WithAngle(*r.Angle)
	}

	return r
}

// SameAngle reports whether both regions carry the same angle, two regions
// without an angle are considered aligned
func SameAngle(a, b Region) bool {

	if a.Angle == nil || b.Angle == nil {
		return a.Angle == nil && b.Angle == nil
	}

	return *a.Angle == *b.Angle
}
