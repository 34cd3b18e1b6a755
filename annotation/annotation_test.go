package annotation

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/region"
)

// testClasses returns a small class map with the text family
func testClasses() *region.ClassMap {
	return region.NewClassMap(map[region.ClassID]string{
		1:   "gate_valve",
		2:   "pump",
		499: "text",
	})
}

func TestParseFormat(t *testing.T) {

	tests := []struct {
		in       string
		expected Format
	}{
		{"txt", FormatText},
		{".XML", FormatXML},
		{"coco", FormatCOCO},
	}

	for _, tt := range tests {
		f, err := ParseFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, f)
	}

	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestReadText(t *testing.T) {

	in := `imagesource:pnid
gsd:null
0 0 10 0 10 10 0 10 gate_valve 0
20 0 30 0 30 10 20 10 pump 1

5 5 6 5 6 6 5 6 compressor 0
`

	doc, err := ReadText(strings.NewReader(in), "d1", testClasses(), TextOptions{})
	require.NoError(t, err)

	require.Len(t, doc.Regions, 2)
	assert.Equal(t, region.ClassID(1), doc.Regions[0].Class)
	assert.Equal(t, geometry.FromCorners(0, 0, 10, 10), doc.Regions[0].Geometry)
	assert.Equal(t, 1, doc.Regions[1].Attrs.Difficulty)
	assert.Nil(t, doc.Regions[1].Score)
	assert.Equal(t, map[string]int{"compressor": 1}, doc.Unknown)
}

func TestReadTextScores(t *testing.T) {

	in := "0 0 10 0 10 10 0 10 pump 0.87\n"

	doc, err := ReadText(strings.NewReader(in), "d1", testClasses(), TextOptions{ScoreColumn: true})
	require.NoError(t, err)
	require.Len(t, doc.Regions, 1)
	assert.Equal(t, 0.87, doc.Regions[0].ScoreOr(0))
}

func TestReadTextMalformed(t *testing.T) {

	tests := []string{
		"0 0 10 0 10 10 0 10\n",
		"0 0 ten 0 10 10 0 10 pump\n",
		"0 0 10 0 10 10 0 10 pump easy\n",
	}

	for _, in := range tests {
		_, err := ReadText(strings.NewReader(in), "d1", testClasses(), TextOptions{})
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestWriteTextRoundTrip(t *testing.T) {

	regions := []region.Region{
		{Class: 1, Geometry: geometry.FromCorners(0, 0, 10.5, 10)},
		{Class: 2, Geometry: geometry.FromCorners(20, 0, 30, 10)},
	}
	regions[1] = regions[1].WithScore(0.5)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, regions, testClasses()))

	assert.Equal(t,
		"0 0 10.5 0 10.5 10 0 10 gate_valve 0\n"+
			"20 0 30 0 30 10 20 10 pump 0.5\n",
		buf.String())
}

const pnidXML = `<?xml version="1.0" encoding="UTF-8"?>
<annotation>
    <filename>KNU-A-22300-001.jpg</filename>
    <size>
        <width>7000</width>
        <height>5000</height>
        <depth>3</depth>
    </size>
    <symbol_object>
        <type>symbol</type>
        <class>pump</class>
        <bndbox>
            <xmin>100</xmin>
            <ymin>200</ymin>
            <xmax>140</xmax>
            <ymax>260</ymax>
        </bndbox>
        <isLarge>y</isLarge>
        <degree>0</degree>
        <flip>n</flip>
    </symbol_object>
    <symbol_object>
        <type>text</type>
        <class>PUMP-101A</class>
        <bndbox>
            <xmin>0</xmin>
            <ymin>0</ymin>
            <xmax>10</xmax>
            <ymax>4</ymax>
        </bndbox>
        <isLarge>n</isLarge>
        <degree>90</degree>
        <flip>n</flip>
        <score>0.75</score>
    </symbol_object>
    <symbol_object>
        <type>symbol</type>
        <class>gate_valve</class>
        <bndbox>
            <x1>0</x1><y1>0</y1><x2>8</x2><y2>0</y2>
            <x3>8</x3><y3>8</y3><x4>0</x4><y4>8</y4>
        </bndbox>
    </symbol_object>
    <symbol_object>
        <type>symbol</type>
        <class>heat_exchanger</class>
        <bndbox>
            <xmin>0</xmin><ymin>0</ymin><xmax>1</xmax><ymax>1</ymax>
        </bndbox>
    </symbol_object>
</annotation>
`

func TestReadXML(t *testing.T) {

	doc, err := ReadXML(strings.NewReader(pnidXML), "KNU-A-22300-001", testClasses())
	require.NoError(t, err)

	assert.Equal(t, "KNU-A-22300-001.jpg", doc.Filename)
	assert.Equal(t, 7000, doc.Width)
	assert.Equal(t, 5000, doc.Height)
	assert.Equal(t, map[string]int{"heat_exchanger": 1}, doc.Unknown)

	require.Len(t, doc.Regions, 3)

	pump := doc.Regions[0]
	assert.Equal(t, region.ClassID(2), pump.Class)
	assert.Equal(t, geometry.FromCorners(100, 200, 140, 260), pump.Geometry)
	assert.True(t, pump.Attrs.Large)
	assert.Nil(t, pump.Text)

	text := doc.Regions[1]
	assert.Equal(t, region.ClassID(499), text.Class)
	assert.Equal(t, "PUMP-101A", text.TextOr(""))
	assert.Equal(t, 90.0, text.AngleOr(0))
	assert.Equal(t, 0.75, text.ScoreOr(0))
	assert.InDelta(t, 40.0, text.Geometry.Area(), 1e-9)
	assert.InDelta(t, -3.0, text.Geometry.MinY(), 1e-9)

	valve := doc.Regions[2]
	assert.Equal(t, geometry.FromCorners(0, 0, 8, 8), valve.Geometry)
	assert.Nil(t, valve.Angle)
}

func TestReadXMLMalformed(t *testing.T) {

	_, err := ReadXML(strings.NewReader("<annotation><symbol_object>"), "d", testClasses())
	assert.ErrorIs(t, err, ErrMalformed)

	bad := `<annotation><symbol_object><type>symbol</type><class>pump</class>
<bndbox><xmin>a</xmin><ymin>0</ymin><xmax>1</xmax><ymax>1</ymax></bndbox></symbol_object></annotation>`

	_, err = ReadXML(strings.NewReader(bad), "d", testClasses())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWriteXMLRoundTrip(t *testing.T) {

	doc, err := ReadXML(strings.NewReader(pnidXML), "KNU-A-22300-001", testClasses())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, doc, testClasses()))

	out := buf.String()
	assert.Contains(t, out, "<type>text</type>")
	assert.Contains(t, out, "<class>PUMP-101A</class>")
	assert.Contains(t, out, "<degree>90</degree>")

	again, err := ReadXML(strings.NewReader(out), "KNU-A-22300-001", testClasses())
	require.NoError(t, err)
	require.Len(t, again.Regions, len(doc.Regions))

	for i := range doc.Regions {
		assert.InDelta(t, 1.0, geometry.IoU(doc.Regions[i].Geometry, again.Regions[i].Geometry), 1e-6)
		assert.Equal(t, doc.Regions[i].Class, again.Regions[i].Class)
	}
}

func TestReadCOCO(t *testing.T) {

	gt := `{
  "images": [{"id": 1, "file_name": "drawings/A-001.jpg", "width": 100, "height": 100},
             {"id": 2, "file_name": "A-002.jpg", "width": 100, "height": 100}],
  "annotations": [
    {"id": 1, "image_id": 1, "category_id": 2, "bbox": [10, 10, 20, 20]},
    {"id": 2, "image_id": 2, "category_id": 499, "bbox": [0, 0, 30, 10], "text": "FIC-1"},
    {"id": 3, "image_id": 2, "category_id": 77, "bbox": [0, 0, 1, 1]}
  ],
  "categories": [{"id": 2, "name": "pump"}, {"id": 499, "name": "text"}]
}`

	dt := `[
  {"image_id": 1, "category_id": 2, "bbox": [11, 10, 20, 20], "score": 0.9},
  {"image_id": 2, "category_id": 499, "bbox": [0, 0, 30, 10], "score": 0.8, "text": "FIC-1"}
]`

	gtDocs, dtDocs, err := ReadCOCO(strings.NewReader(gt), strings.NewReader(dt), testClasses())
	require.NoError(t, err)

	require.Contains(t, gtDocs, "A-001")
	require.Contains(t, dtDocs, "A-002")

	assert.Equal(t, geometry.FromXYWH(10, 10, 20, 20), gtDocs["A-001"].Regions[0].Geometry)
	assert.Equal(t, "FIC-1", gtDocs["A-002"].Regions[0].TextOr(""))
	assert.Equal(t, map[string]int{"77": 1}, gtDocs["A-002"].Unknown)
	assert.Equal(t, 0.9, dtDocs["A-001"].Regions[0].ScoreOr(0))

	_, _, err = ReadCOCO(strings.NewReader(gt), strings.NewReader(`[{"image_id": 9, "category_id": 2, "bbox": [0,0,1,1]}]`), testClasses())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWriteCOCODetections(t *testing.T) {

	sets := []region.Set{
		{DrawingID: "b", Detections: []region.Region{{Class: 2, Geometry: geometry.FromXYWH(1, 2, 3, 4)}}},
		{DrawingID: "a"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCOCODetections(&buf, sets))

	assert.JSONEq(t, `[{"image_id": 2, "category_id": 2, "bbox": [1, 2, 3, 4]}]`, buf.String())
}

func TestLoadDirIsolatesFailures(t *testing.T) {

	dir := t.TempDir()

	files := map[string]string{
		"A-001.txt":     "0 0 10 0 10 10 0 10 pump 0\n",
		"A-002.txt":     "broken line\n",
		"sub/A-003.txt": "0 0 10 0 10 10 0 10 gate_valve 0\n",
		"notes.md":      "ignored",
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	calls := 0
	d := Decoder{Format: FormatText, Classes: testClasses()}
	docs, fileErrs, err := LoadDir(dir, d, func() { calls++ })
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Len(t, docs, 2)
	assert.Contains(t, docs, "A-001")
	assert.Contains(t, docs, "A-003")

	require.Len(t, fileErrs, 1)
	assert.Equal(t, "A-002", fileErrs[0].DrawingID)
	assert.ErrorIs(t, fileErrs[0], ErrMalformed)

	_, _, err = LoadDir(filepath.Join(dir, "missing"), d, nil)
	assert.Error(t, err)
}

func TestPair(t *testing.T) {

	gt := map[string]*Document{
		"a": {Regions: []region.Region{{Class: 1}}},
		"b": {Regions: []region.Region{{Class: 1}, {Class: 2}}},
		"c": {Regions: []region.Region{{Class: 1}}},
	}
	dt := map[string]*Document{
		"a": {Regions: []region.Region{{Class: 1}}},
		"d": {Regions: []region.Region{{Class: 2}}},
		"c": {Regions: []region.Region{{Class: 2}}},
	}

	sets, missing := Pair(gt, dt, map[string]bool{"c": true}, region.NewIDGenerator())

	require.Len(t, sets, 3)
	assert.Equal(t, "a", sets[0].DrawingID)
	assert.Equal(t, "b", sets[1].DrawingID)
	assert.Equal(t, "d", sets[2].DrawingID)

	assert.Empty(t, sets[1].Detections)
	assert.Empty(t, sets[2].GroundTruth)
	assert.Equal(t, region.Detection, sets[2].Detections[0].Role)
	assert.Equal(t, "d", sets[2].Detections[0].DrawingID)

	assert.Equal(t, []MissingCounterpart{
		{DrawingID: "b", Missing: region.Detection},
		{DrawingID: "d", Missing: region.GroundTruth},
	}, missing)

	// ids are unique across the batch
	seen := make(map[int64]bool)

	for _, s := range sets {
		for _, r := range append(s.GroundTruth, s.Detections...) {
			assert.False(t, seen[r.ID])
			seen[r.ID] = true
		}
	}

	// source documents are left untouched
	assert.Equal(t, int64(0), gt["a"].Regions[0].ID)
}
