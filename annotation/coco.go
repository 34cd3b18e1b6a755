package annotation

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/region"
)

// cocoGroundTruth is a COCO instances file
type cocoGroundTruth struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// cocoAnnotation is a ground truth annotation or a detection result entry
type cocoAnnotation struct {
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Score      *float64   `json:"score,omitempty"`
	Text       *string    `json:"text,omitempty"`
	Degree     *float64   `json:"degree,omitempty"`
}

// region converts the annotation into a region, rotating the box when a
// degree is present
func (a cocoAnnotation) region() region.Region {

	x, y, w, h := a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3]

	r := region.Region{
		Class:    region.ClassID(a.CategoryID),
		Geometry: geometry.FromXYWH(x, y, w, h),
		Score:    a.Score,
		Text:     a.Text,
	}

	if a.Degree != nil {
		r.Geometry = geometry.FromRotated(x, y, x+w, y+h, *a.Degree)
		r.Angle = a.Degree
	}

	return r
}

// ReadCOCO parses a COCO ground truth file and a COCO detection result list
// referring to its images.  Drawings are keyed by the image file stem.  The
// detection reader may be nil to only load ground truth.
func ReadCOCO(gt io.Reader, dt io.Reader, classes *region.ClassMap) (gtDocs, dtDocs map[string]*Document, err error) {

	var g cocoGroundTruth

	if err := json.NewDecoder(gt).Decode(&g); err != nil {
		return nil, nil, fmt.Errorf("%w: ground truth: %v", ErrMalformed, err)
	}

	images := make(map[int]cocoImage, len(g.Images))
	gtDocs = make(map[string]*Document, len(g.Images))
	dtDocs = make(map[string]*Document, len(g.Images))

	for _, img := range g.Images {
		images[img.ID] = img
		id := drawingIDFromPath(img.FileName)

		for _, docs := range []map[string]*Document{gtDocs, dtDocs} {
			doc := newDocument(id)
			doc.Filename = img.FileName
			doc.Width = img.Width
			doc.Height = img.Height
			docs[id] = doc
		}
	}

	if err := addCOCO(g.Annotations, images, gtDocs, classes); err != nil {
		return nil, nil, fmt.Errorf("ground truth: %w", err)
	}

	if dt == nil {
		return gtDocs, nil, nil
	}

	var dets []cocoAnnotation

	if err := json.NewDecoder(dt).Decode(&dets); err != nil {
		return nil, nil, fmt.Errorf("%w: detections: %v", ErrMalformed, err)
	}

	if err := addCOCO(dets, images, dtDocs, classes); err != nil {
		return nil, nil, fmt.Errorf("detections: %w", err)
	}

	return gtDocs, dtDocs, nil
}

// addCOCO appends the annotations to the document of their image
func addCOCO(anns []cocoAnnotation, images map[int]cocoImage,
	docs map[string]*Document, classes *region.ClassMap) error {

	for i, a := range anns {
		img, ok := images[a.ImageID]

		if !ok {
			return fmt.Errorf("%w: annotation %d refers to unknown image %d", ErrMalformed, i, a.ImageID)
		}

		doc := docs[drawingIDFromPath(img.FileName)]
		r := a.region()

		if !classes.Contains(r.Class) {
			doc.Unknown[strconv.Itoa(a.CategoryID)]++
			continue
		}

		doc.Regions = append(doc.Regions, r)
	}

	return nil
}

// WriteCOCODetections writes detections as a COCO result list.  Image ids
// are assigned in ascending drawing id order starting at 1.
func WriteCOCODetections(w io.Writer, sets []region.Set) error {

	ids := make([]string, 0, len(sets))
	byID := make(map[string]region.Set, len(sets))

	for _, s := range sets {
		ids = append(ids, s.DrawingID)
		byID[s.DrawingID] = s
	}

	sort.Strings(ids)

	res := make([]cocoAnnotation, 0)

	for i, id := range ids {
		for _, d := range byID[id].Detections {
			b := d.Geometry.Bound()

			res = append(res, cocoAnnotation{
				ImageID:    i + 1,
				CategoryID: int(d.Class),
				BBox:       [4]float64{b.Min[0], b.Min[1], b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]},
				Score:      d.Score,
				Text:       d.Text,
			})
		}
	}

	enc := json.NewEncoder(w)

	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("error encoding detections: %w", err)
	}

	return nil
}

// drawingIDFromPath returns the file name without directory and extension
func drawingIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
