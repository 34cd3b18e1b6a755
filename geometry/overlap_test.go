package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoU(t *testing.T) {

	tests := []struct {
		name     string
		a        Quad
		b        Quad
		expected float64
	}{
		{
			name:     "identical boxes",
			a:        FromXYWH(0, 0, 10, 10),
			b:        FromXYWH(0, 0, 10, 10),
			expected: 1.0,
		},
		{
			name:     "partial overlap",
			a:        FromXYWH(0, 0, 10, 10),
			b:        FromXYWH(5, 5, 10, 10),
			expected: 25.0 / 175.0,
		},
		{
			name:     "one inside other",
			a:        FromCorners(0, 0, 20, 20),
			b:        FromCorners(5, 5, 15, 15),
			expected: 100.0 / 400.0,
		},
		{
			name:     "disjoint",
			a:        FromCorners(0, 0, 10, 10),
			b:        FromCorners(20, 20, 30, 30),
			expected: 0,
		},
		{
			name:     "touching edges",
			a:        FromCorners(0, 0, 10, 10),
			b:        FromCorners(10, 0, 20, 10),
			expected: 0,
		},
		{
			name:     "degenerate line",
			a:        FromCorners(0, 0, 10, 0),
			b:        FromCorners(0, 0, 10, 10),
			expected: 0,
		},
		{
			name:     "both degenerate",
			a:        FromCorners(3, 3, 3, 3),
			b:        FromCorners(3, 3, 3, 3),
			expected: 0,
		},
		{
			name: "diamond inside square",
			a:    FromCorners(0, 0, 10, 10),
			b: FromFlat([8]float64{
				5, 0,
				10, 5,
				5, 10,
				0, 5,
			}),
			expected: 50.0 / 100.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, IoU(tt.a, tt.b), 1e-6)
			// symmetry
			assert.InDelta(t, IoU(tt.a, tt.b), IoU(tt.b, tt.a), 1e-9)
		})
	}
}

func TestAreaOverlap(t *testing.T) {

	inter, union := AreaOverlap(FromXYWH(0, 0, 10, 10), FromXYWH(5, 5, 10, 10))

	assert.InDelta(t, 25.0, inter, 1e-6)
	assert.InDelta(t, 175.0, union, 1e-6)
}

func TestIoF(t *testing.T) {

	big := FromCorners(0, 0, 100, 10)
	small := FromCorners(90, 0, 110, 10)

	// half of small lies inside big
	assert.InDelta(t, 0.5, IoF(big, small), 1e-6)
	// a tenth of big lies inside small
	assert.InDelta(t, 0.1, IoF(small, big), 1e-6)

	assert.Equal(t, 0.0, IoF(big, FromCorners(5, 5, 5, 5)))
}

func TestRotatedOverlap(t *testing.T) {

	a := FromRotated(0, 0, 10, 10, 45)
	b := FromRotated(0, 0, 10, 10, 45)

	assert.InDelta(t, 1.0, IoU(a, b), 1e-6)
	assert.InDelta(t, 100.0, a.Area(), 1e-6)

	// a 45 degree rotated square against its axis aligned self
	c := FromCorners(0, 0, 10, 10)
	iou := IoU(a, c)
	assert.Greater(t, iou, 0.0)
	assert.Less(t, iou, 1.0)
}
