package merge

import (
	"math"
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/paulmach/orb"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/region"
)

// Params defines when two text fragments are consolidated into one region
type Params struct {
	// IoFThreshold is the share of the other fragment that must be covered
	// for a merge regardless of alignment
	IoFThreshold float64
	// YGapThreshold is the maximum difference of the top edges and of the
	// bottom edges for two fragments to count as the same text line
	YGapThreshold float64
	// HorizontalIoFThreshold is the lower IoF accepted for fragments on the
	// same text line
	HorizontalIoFThreshold float64
	// Classes limits merging to the given classes, normally the text class
	// family.  An empty set allows every class.
	Classes map[region.ClassID]bool
	// RequireSameAngle only merges fragments with equal rotation
	RequireSameAngle bool
}

// DefaultParams returns the thresholds used for P&ID text annotations
func DefaultParams() Params {
	return Params{
		IoFThreshold:           0.3,
		YGapThreshold:          5,
		HorizontalIoFThreshold: 0.1,
		RequireSameAngle:       true,
	}
}

// Stats describes a consolidation run
type Stats struct {
	// Passes is the number of passes run including the final pass that
	// performed no merge
	Passes int
	// Merges is the total number of pairwise merges
	Merges int
}

// Mergeable reports whether initiator and other should be consolidated.  The
// test is asymmetric as IoF is measured against other's area.
func Mergeable(initiator, other region.Region, p Params) bool {

	if initiator.Class != other.Class {
		return false
	}

	if len(p.Classes) > 0 && !p.Classes[initiator.Class] {
		return false
	}

	if p.RequireSameAngle && !region.SameAngle(initiator, other) {
		return false
	}

	iof := geometry.IoF(initiator.Geometry, other.Geometry)

	if iof > p.IoFThreshold {
		return true
	}

	// fragments of the same text line with little overlap
	a := initiator.Geometry
	b := other.Geometry

	return math.Abs(a.MinY()-b.MinY()) < p.YGapThreshold &&
		math.Abs(a.MaxY()-b.MaxY()) < p.YGapThreshold &&
		iof > p.HorizontalIoFThreshold
}

// Combine returns the consolidated region of initiator and other.  Each of
// the eight coordinates is taken from whichever input lies farther from the
// merged centroid along that axis, the text is spliced on its overlap and
// every other attribute comes from the initiator.
func Combine(initiator, other region.Region, ids *region.IDGenerator) region.Region {

	ca := initiator.Geometry.Centroid()
	cb := other.Geometry.Centroid()
	mid := orb.Point{(ca[0] + cb[0]) / 2, (ca[1] + cb[1]) / 2}

	var q geometry.Quad

	for i := range q {
		for axis := 0; axis < 2; axis++ {
			av := initiator.Geometry[i][axis]
			bv := other.Geometry[i][axis]

			if math.Abs(av-mid[axis]) > math.Abs(bv-mid[axis]) {
				q[i][axis] = av
			} else {
				q[i][axis] = bv
			}
		}
	}

	merged := initiator.Clone()
	merged.Geometry = q
	merged.ID = ids.GetNext()

	if initiator.Text != nil || other.Text != nil {
		merged = merged.WithText(SpliceText(initiator.TextOr(""), other.TextOr("")))
	}

	return merged
}

// SpliceText concatenates a and b sharing the longest suffix of a that is
// also a prefix of b, eg: "PUMP-" and "-101A" give "PUMP-101A"
func SpliceText(a, b string) string {

	ar := []rune(a)
	br := []rune(b)

	common := 0

	for i := 1; i <= len(ar) && i <= len(br); i++ {
		if string(ar[len(ar)-i:]) == string(br[:i]) {
			common = i
		}
	}

	return a + string(br[common:])
}

// pair is a merge found during a pass
type pair struct {
	initiator int
	other     int
}

// Pass runs a single consolidation pass over regions and returns the new
// collection and the number of merges performed.  Pairs are scanned with
// the initiator in collection order and candidates in ascending index.  A
// region takes part in at most one merge per pass.  Merges are collected
// first and applied afterwards, the consolidated region taking the
// initiator's position.
func Pass(regions []region.Region, p Params, ids *region.IDGenerator) ([]region.Region, int) {

	if len(regions) < 2 {
		return regions, 0
	}

	// fragments can only merge when their bounds touch
	fb := flatbush.NewFlatbush64()
	fb.Reserve(len(regions))

	for _, r := range regions {
		b := r.Geometry.Bound()
		fb.Add(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	}

	fb.Finish()

	merged := make([]bool, len(regions))
	var pairs []pair

	for i, r := range regions {

		if merged[i] {
			continue
		}

		b := r.Geometry.Bound()
		near := fb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
		sort.Ints(near)

		for _, j := range near {

			if j == i || merged[j] {
				continue
			}

			if Mergeable(r, regions[j], p) {
				pairs = append(pairs, pair{initiator: i, other: j})
				merged[i] = true
				merged[j] = true
				break
			}
		}
	}

	if len(pairs) == 0 {
		return regions, 0
	}

	combined := make(map[int]region.Region, len(pairs))

	for _, pr := range pairs {
		combined[pr.initiator] = Combine(regions[pr.initiator], regions[pr.other], ids)
	}

	out := make([]region.Region, 0, len(regions)-len(pairs))

	for i, r := range regions {
		if c, ok := combined[i]; ok {
			out = append(out, c)
			continue
		}

		if merged[i] {
			continue
		}

		out = append(out, r)
	}

	return out, len(pairs)
}

// Consolidate repeats passes until one performs no merge and returns the
// resulting fixed point.  Merged regions receive ids from a fresh generator
// offset past the largest input id.
func Consolidate(regions []region.Region, p Params) []region.Region {
	out, _ := ConsolidateWithStats(regions, p, nil)
	return out
}

// ConsolidateWithStats is Consolidate with a caller supplied id generator and
// run statistics.  When ids is nil a generator continuing after the largest
// input id is used.
func ConsolidateWithStats(regions []region.Region, p Params,
	ids *region.IDGenerator) ([]region.Region, Stats) {

	if ids == nil {
		ids = generatorAfter(regions)
	}

	var st Stats
	cur := regions

	for {
		next, n := Pass(cur, p, ids)
		st.Passes++
		st.Merges += n
		cur = next

		if n == 0 {
			return cur, st
		}
	}
}

// generatorAfter returns an id generator whose ids do not collide with the
// given regions
func generatorAfter(regions []region.Region) *region.IDGenerator {

	var last int64

	for _, r := range regions {
		if r.ID > last {
			last = r.ID
		}
	}

	return region.NewIDGeneratorFrom(last)
}
