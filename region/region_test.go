package region

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swdee/go-pnideval/geometry"
)

func TestOptionalFields(t *testing.T) {

	r := Region{Class: 3, Geometry: geometry.FromCorners(0, 0, 10, 10)}

	assert.Equal(t, 0.0, r.ScoreOr(0))
	assert.Equal(t, "", r.TextOr(""))
	assert.Equal(t, 0.0, r.AngleOr(0))

	r2 := r.WithScore(0.9).WithText("PUMP").WithAngle(90)

	assert.Nil(t, r.Score)
	assert.Equal(t, 0.9, r2.ScoreOr(0))
	assert.Equal(t, "PUMP", r2.TextOr(""))
	assert.Equal(t, 90.0, r2.AngleOr(0))

	c := r2.Clone()
	*c.Text = "VALVE"
	assert.Equal(t, "PUMP", r2.TextOr(""))
}

func TestSameAngle(t *testing.T) {

	a := Region{}
	b := Region{}

	assert.True(t, SameAngle(a, b))
	assert.False(t, SameAngle(a.WithAngle(0), b))
	assert.True(t, SameAngle(a.WithAngle(45), b.WithAngle(45)))
	assert.False(t, SameAngle(a.WithAngle(45), b.WithAngle(90)))
}

func TestSetFilter(t *testing.T) {

	s := Set{
		DrawingID:   "d1",
		GroundTruth: []Region{{Class: 1}, {Class: 2}, {Class: 1}},
		Detections:  []Region{{Class: 2}, {Class: 3}},
	}

	f := s.Filter(func(c ClassID) bool { return c == 1 })

	assert.Equal(t, "d1", f.DrawingID)
	assert.Len(t, f.GroundTruth, 2)
	assert.Len(t, f.Detections, 0)
	assert.Len(t, s.GroundTruth, 3)

	assert.Equal(t, []ClassID{1, 2}, Classes(s.GroundTruth))
}

func TestIDGeneratorConcurrent(t *testing.T) {

	gen := NewIDGenerator()

	var wg sync.WaitGroup
	seen := make(chan int64, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- gen.GetNext()
		}()
	}

	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)

	for id := range seen {
		unique[id] = true
	}

	assert.Len(t, unique, 100)
	assert.Equal(t, int64(101), gen.GetNext())
}

func TestStamp(t *testing.T) {

	regions := []Region{{Class: 1}, {Class: 2}}
	Stamp(regions, "d7", Detection, NewIDGenerator())

	assert.Equal(t, "d7", regions[1].DrawingID)
	assert.Equal(t, Detection, regions[0].Role)
	assert.Equal(t, int64(1), regions[0].ID)
	assert.Equal(t, int64(2), regions[1].ID)
}
