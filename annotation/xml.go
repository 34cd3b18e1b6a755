package annotation

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/swdee/go-pnideval/geometry"
	"github.com/swdee/go-pnideval/region"
)

const (
	// objectTypeText marks a text region, its class element holds the string
	objectTypeText = "text"
	// objectTypeSymbol marks a symbol region
	objectTypeSymbol = "symbol"
	// textClassName is the class assigned to text regions
	textClassName = "text"
)

// xmlAnnotation is the root element of a PNID XML annotation
type xmlAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename,omitempty"`
	Size     *xmlSize    `xml:"size,omitempty"`
	Objects  []xmlObject `xml:"symbol_object"`
}

type xmlSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth,omitempty"`
}

// xmlObject is one symbol_object element
type xmlObject struct {
	Type    string  `xml:"type"`
	Class   string  `xml:"class"`
	Box     xmlBox  `xml:"bndbox"`
	IsLarge string  `xml:"isLarge,omitempty"`
	Degree  string  `xml:"degree,omitempty"`
	Flip    string  `xml:"flip,omitempty"`
	Score   *string `xml:"score,omitempty"`
}

// xmlBox holds either the two point or the four point form
type xmlBox struct {
	XMin *string `xml:"xmin,omitempty"`
	YMin *string `xml:"ymin,omitempty"`
	XMax *string `xml:"xmax,omitempty"`
	YMax *string `xml:"ymax,omitempty"`
	X1   *string `xml:"x1,omitempty"`
	Y1   *string `xml:"y1,omitempty"`
	X2   *string `xml:"x2,omitempty"`
	Y2   *string `xml:"y2,omitempty"`
	X3   *string `xml:"x3,omitempty"`
	Y3   *string `xml:"y3,omitempty"`
	X4   *string `xml:"x4,omitempty"`
	Y4   *string `xml:"y4,omitempty"`
}

// twoPoint reports whether the box is in xmin/ymin/xmax/ymax form
func (b xmlBox) twoPoint() bool {
	return b.XMin != nil
}

// parseFloats converts the given optional strings to floats
func parseFloats(vals ...*string) ([]float64, error) {

	res := make([]float64, len(vals))

	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("missing coordinate")
		}

		f, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)

		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", *v)
		}

		res[i] = f
	}

	return res, nil
}

// quad converts the box into a quad rotated by degrees when given in two
// point form
func (b xmlBox) quad(degrees float64) (geometry.Quad, error) {

	if b.twoPoint() {
		v, err := parseFloats(b.XMin, b.YMin, b.XMax, b.YMax)

		if err != nil {
			return geometry.Quad{}, err
		}

		return geometry.FromRotated(v[0], v[1], v[2], v[3], degrees), nil
	}

	v, err := parseFloats(b.X1, b.Y1, b.X2, b.Y2, b.X3, b.Y3, b.X4, b.Y4)

	if err != nil {
		return geometry.Quad{}, err
	}

	return geometry.FromFlat([8]float64{v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]}), nil
}

// parseFlag reads y/n style flags
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}

// formatFlag writes a y/n flag
func formatFlag(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// ReadXML parses a PNID XML annotation.  Text objects are assigned the text
// class and carry their class element as text content.
func ReadXML(r io.Reader, drawingID string, classes *region.ClassMap) (*Document, error) {

	var ann xmlAnnotation

	if err := xml.NewDecoder(r).Decode(&ann); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := newDocument(drawingID)
	doc.Filename = ann.Filename

	if ann.Size != nil {
		doc.Width = ann.Size.Width
		doc.Height = ann.Size.Height
	}

	for i, obj := range ann.Objects {

		name := strings.TrimSpace(obj.Class)
		isText := strings.TrimSpace(obj.Type) == objectTypeText

		if isText {
			name = textClassName
		}

		id, ok := classes.ID(name)

		if !ok {
			doc.Unknown[name]++
			continue
		}

		reg := region.Region{
			Class: id,
			Attrs: region.Attributes{
				Large: parseFlag(obj.IsLarge),
				Flip:  parseFlag(obj.Flip),
			},
		}

		var degrees float64

		if obj.Degree != "" {
			d, err := strconv.ParseFloat(strings.TrimSpace(obj.Degree), 64)

			if err != nil {
				return nil, fmt.Errorf("%w: object %d: invalid degree %q", ErrMalformed, i, obj.Degree)
			}

			degrees = d
			reg = reg.WithAngle(d)
		}

		q, err := obj.Box.quad(degrees)

		if err != nil {
			return nil, fmt.Errorf("%w: object %d: %v", ErrMalformed, i, err)
		}

		reg.Geometry = q

		if isText {
			reg = reg.WithText(obj.Class)
		}

		if obj.Score != nil {
			s, err := strconv.ParseFloat(strings.TrimSpace(*obj.Score), 64)

			if err != nil {
				return nil, fmt.Errorf("%w: object %d: invalid score %q", ErrMalformed, i, *obj.Score)
			}

			reg = reg.WithScore(s)
		}

		doc.Regions = append(doc.Regions, reg)
	}

	return doc, nil
}

// WriteXML writes the document as PNID XML in the two point plus degree form
// with coordinates rounded to whole pixels.  Regions of the text class family
// are written as text objects.
func WriteXML(w io.Writer, doc *Document, classes *region.ClassMap) error {

	textClasses := classes.TextClasses()

	ann := xmlAnnotation{
		Filename: doc.Filename,
		Objects:  make([]xmlObject, 0, len(doc.Regions)),
	}

	if doc.Width > 0 || doc.Height > 0 {
		ann.Size = &xmlSize{Width: doc.Width, Height: doc.Height, Depth: 3}
	}

	for _, r := range doc.Regions {

		var xmin, ymin, xmax, ymax float64

		if r.Angle != nil {
			xmin, ymin, xmax, ymax = r.Geometry.ToRotated(*r.Angle)
		} else {
			b := r.Geometry.Bound()
			xmin, ymin, xmax, ymax = b.Min[0], b.Min[1], b.Max[0], b.Max[1]
		}

		obj := xmlObject{
			Type:    objectTypeSymbol,
			Class:   classes.Name(r.Class),
			IsLarge: formatFlag(r.Attrs.Large),
			Degree:  strconv.FormatFloat(r.AngleOr(0), 'f', -1, 64),
			Flip:    formatFlag(r.Attrs.Flip),
			Box: xmlBox{
				XMin: roundedString(xmin),
				YMin: roundedString(ymin),
				XMax: roundedString(xmax),
				YMax: roundedString(ymax),
			},
		}

		if textClasses[r.Class] {
			obj.Type = objectTypeText
			obj.Class = r.TextOr("")
		}

		if r.Score != nil {
			s := strconv.FormatFloat(*r.Score, 'f', -1, 64)
			obj.Score = &s
		}

		ann.Objects = append(ann.Objects, obj)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("error writing xml: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")

	if err := enc.Encode(ann); err != nil {
		return fmt.Errorf("error encoding xml: %w", err)
	}

	_, err := io.WriteString(w, "\n")
	return err
}

// roundedString rounds v to a whole number and formats it
func roundedString(v float64) *string {
	v = math.Round(v)

	// avoid writing negative zero
	if v == 0 {
		v = 0
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	return &s
}
