package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-pnideval/apeval"
	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/match"
	"github.com/swdee/go-pnideval/region"
	"github.com/swdee/go-pnideval/stats"
)

func testCorpus() stats.Corpus {

	var c stats.Corpus

	c.Add(stats.Drawing{
		DrawingID: "A-001",
		Counts:    stats.Counts{Detected: 3, Predictions: 4, GroundTruth: 6},
		PerClass: []stats.ClassCounts{
			{Class: 1, Counts: stats.Counts{Detected: 2, Predictions: 2, GroundTruth: 4}},
			{Class: 499, Counts: stats.Counts{Detected: 1, Predictions: 2, GroundTruth: 2}},
		},
		Recognition: stats.Recognition{GroundTruthText: 2, TruePositiveText: 1, Recognized: 1},
		SymbolOnly:  stats.Counts{Detected: 2, Predictions: 2, GroundTruth: 4},
	})

	// drawing without any detections
	c.Add(stats.Drawing{
		DrawingID: "A-002",
		Counts:    stats.Counts{GroundTruth: 2},
		PerClass: []stats.ClassCounts{
			{Class: 1, Counts: stats.Counts{GroundTruth: 2}},
		},
		SymbolOnly: stats.Counts{GroundTruth: 2},
	})

	return c
}

func TestWriteResults(t *testing.T) {

	classes := region.NewClassMap(map[region.ClassID]string{1: "gate_valve", 499: "text"})
	ap := apeval.Summary{AP: 0.5, AP50: 0.75, AP75: 0.25, MaxDetections: 100}

	var buf bytes.Buffer
	err := WriteResults(&buf, Result{RunID: "run-1", Corpus: testCorpus(), AP: &ap}, Options{
		Classes:     classes,
		Recognition: true,
		SymbolOnly:  true,
	})
	require.NoError(t, err)

	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "run : run-1\n"))
	assert.Contains(t, out, "test drawing : A-001----------------------------------\n")
	assert.Contains(t, out, "total precision : 3 / 4 = 0.7500\n")
	assert.Contains(t, out, "total recall : 3 / 6 = 0.5000\n")
	assert.Contains(t, out, "total recognition ratio: 1 / 2 = 0.5000\n")
	assert.Contains(t, out, "class 1 (['gate_valve']) : 2 / 4\n")
	assert.Contains(t, out, "class 499 (['text']) : 1 / 2\n")

	// undefined precision of the empty drawing prints as 0
	assert.Contains(t, out, "total precision : 0 / 0 = 0.0000\n")

	assert.Contains(t, out, ap.String())
	assert.Contains(t, out,
		"(mean precision, mean recall, mean recognition ratio, ap, ap50, ap75) = (0.7500, 0.3750, 0.5000, 0.5000, 0.7500, 0.2500)\n")
	assert.Contains(t, out,
		"(mean precision only sym, mean recall only sym, ap, ap50, ap75) = (1.0000, 0.3333, 0.0000, 0.0000, 0.0000)\n")
}

func TestWriteResultsAveraged(t *testing.T) {

	var buf bytes.Buffer
	err := WriteResults(&buf, Result{Corpus: testCorpus()}, Options{Aggregation: stats.Averaged})
	require.NoError(t, err)

	out := buf.String()

	assert.NotContains(t, out, "run :")
	assert.NotContains(t, out, "recognition ratio:")
	assert.Contains(t, out, "corpus (averaged) : 2 drawings\n")
	// per drawing precision 0.75 and 0 averaged
	assert.Contains(t, out, "= (0.3750, 0.2500, 0.0000, 0.0000, 0.0000, 0.0000)\n")
	// without a class map the numeric id is used as name
	assert.Contains(t, out, "class 1 (['1']) : 2 / 4\n")
}

func TestWriteTextMatches(t *testing.T) {

	text := region.ClassID(499)

	// recognised, wrong text, detection without text, missed and a symbol
	gt := []region.Region{
		{Class: text, Geometry: geometry.FromCorners(0, 0, 10, 4)},
		{Class: text, Geometry: geometry.FromCorners(20, 0, 30, 4)},
		{Class: text, Geometry: geometry.FromCorners(40, 0, 50, 4)},
		{Class: text, Geometry: geometry.FromCorners(60, 0, 70, 4)},
		{Class: 1, Geometry: geometry.FromCorners(0, 10, 10, 20)},
	}
	gt[0] = gt[0].WithText("FIC-101")
	gt[1] = gt[1].WithText("PUMP-1")
	gt[2] = gt[2].WithText("LINE-2")
	gt[3] = gt[3].WithText("TAG-9")

	dets := []region.Region{
		region.Region{Class: text, Geometry: geometry.FromCorners(0, 0, 10, 4)}.WithText("FIC-101"),
		region.Region{Class: text, Geometry: geometry.FromCorners(20, 0, 30, 4)}.WithText("PUMP-7"),
		{Class: text, Geometry: geometry.FromCorners(40, 0, 50, 4)},
	}

	set := region.Set{DrawingID: "A-001", GroundTruth: gt, Detections: dets}
	m := match.Match(gt, dets, match.DefaultPolicy())
	matched := []Matched{{Set: set, Mapping: m}}
	opts := TextMatchOptions{TextClasses: map[region.ClassID]bool{text: true}}

	var buf bytes.Buffer
	require.NoError(t, WriteTextMatches(&buf, matched, opts))

	expected := "test drawing : A-001----------------------------------\n" +
		"FIC-101\tFIC-101\t0,0,10,0,10,4,0,4\n" +
		"PUMP-1\tPUMP-7\t20,0,30,0,30,4,20,4\n" +
		"LINE-2\t<unrecognised>\t40,0,50,0,50,4,40,4\n" +
		"TAG-9\t<missed>\t<missed>\n" +
		"\n"

	assert.Equal(t, expected, buf.String())

	buf.Reset()
	opts.RecognizedOnly = true
	require.NoError(t, WriteTextMatches(&buf, matched, opts))

	assert.Equal(t,
		"test drawing : A-001----------------------------------\n"+
			"FIC-101\tFIC-101\t0,0,10,0,10,4,0,4\n\n",
		buf.String())
}
