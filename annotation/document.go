package annotation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/swdee/go-pnideval/region"
)

// ErrMalformed is returned when an annotation file cannot be parsed
var ErrMalformed = errors.New("malformed annotation")

// Format names an annotation file format
type Format string

const (
	// FormatText is the DOTA style text format, one region per line
	FormatText Format = "txt"
	// FormatXML is the PNID XML format with symbol_object elements
	FormatXML Format = "xml"
	// FormatCOCO is a COCO JSON ground truth file or detection result list
	FormatCOCO Format = "json"
)

// ParseFormat converts a format name or file extension into a Format
func ParseFormat(s string) (Format, error) {

	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "txt", "dota", "text":
		return FormatText, nil
	case "xml", "pnid":
		return FormatXML, nil
	case "json", "coco":
		return FormatCOCO, nil
	}

	return "", fmt.Errorf("unknown annotation format %q", s)
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// Document is the parsed content of one drawing's annotation file
type Document struct {
	DrawingID string
	// Filename is the drawing image named by the annotation, if any
	Filename string
	Width    int
	Height   int
	Regions  []region.Region
	// Unknown counts class names that are not in the class map, regions of
	// those classes are skipped
	Unknown map[string]int
}

// newDocument returns an empty document for the drawing
func newDocument(drawingID string) *Document {
	return &Document{
		DrawingID: drawingID,
		Unknown:   make(map[string]int),
	}
}

// malformed wraps a parse failure with its location
func malformed(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, line, fmt.Sprintf(format, args...))
}
