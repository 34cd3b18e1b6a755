package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

// quadsEqual compares the vertices of two quads
func quadsEqual(a, b Quad, epsilon float64) bool {
	for i := range a {
		for j := 0; j < 2; j++ {
			if diff := a[i][j] - b[i][j]; diff > epsilon || diff < -epsilon {
				return false
			}
		}
	}
	return true
}

func TestFromRotated(t *testing.T) {

	tests := []struct {
		name     string
		box      [4]float64
		degrees  float64
		expected Quad
	}{
		{
			name:     "no rotation",
			box:      [4]float64{0, 0, 10, 4},
			degrees:  0,
			expected: FromCorners(0, 0, 10, 4),
		},
		{
			name:    "quarter turn",
			box:     [4]float64{0, 0, 10, 4},
			degrees: 90,
			// centre (5,2), width and height swap
			expected: Quad{
				{7, -3},
				{7, 7},
				{3, 7},
				{3, -3},
			},
		},
		{
			name:    "half turn",
			box:     [4]float64{0, 0, 10, 4},
			degrees: 180,
			expected: Quad{
				{10, 4},
				{0, 4},
				{0, 0},
				{10, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := FromRotated(tt.box[0], tt.box[1], tt.box[2], tt.box[3], tt.degrees)

			if !quadsEqual(q, tt.expected, 1e-9) {
				t.Errorf("expected %v, got %v", tt.expected, q)
			}
		})
	}
}

func TestToRotatedInverse(t *testing.T) {

	for _, deg := range []float64{0, 15, 45, 90, 135, 270} {
		q := FromRotated(100, 40, 180, 60, deg)
		xmin, ymin, xmax, ymax := q.ToRotated(deg)

		assert.InDelta(t, 100.0, xmin, 1e-9, "degrees %v", deg)
		assert.InDelta(t, 40.0, ymin, 1e-9, "degrees %v", deg)
		assert.InDelta(t, 180.0, xmax, 1e-9, "degrees %v", deg)
		assert.InDelta(t, 60.0, ymax, 1e-9, "degrees %v", deg)
	}
}

func TestQuadMeasures(t *testing.T) {

	q := FromCorners(2, 4, 12, 10)

	assert.InDelta(t, 60.0, q.Area(), 1e-9)
	assert.Equal(t, orb.Point{7, 7}, q.Centroid())
	assert.Equal(t, 4.0, q.MinY())
	assert.Equal(t, 10.0, q.MaxY())
	assert.Equal(t, [8]float64{2, 4, 12, 4, 12, 10, 2, 10}, q.Flat())
	assert.Equal(t, q, FromFlat(q.Flat()))
	assert.True(t, FromCorners(1, 1, 1, 5).Degenerate())
	assert.Equal(t, FromCorners(3, 5, 13, 11), q.Translate(1, 1))
	assert.Equal(t, FromCorners(2, 4, 12, 10), FromCorners(1.6, 4.4, 12.2, 9.5).Round())
}
