package annotation

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/swdee/go-pnideval/region"
)

// Decoder reads per drawing annotation files of one format
type Decoder struct {
	Format  Format
	Classes *region.ClassMap
	Text    TextOptions
}

// Decode parses one drawing's annotation from r
func (d Decoder) Decode(r io.Reader, drawingID string) (*Document, error) {

	switch d.Format {
	case FormatText:
		return ReadText(r, drawingID, d.Classes, d.Text)
	case FormatXML:
		return ReadXML(r, drawingID, d.Classes)
	}

	return nil, fmt.Errorf("format %q is not stored one drawing per file", d.Format)
}

// DecodeFile parses the annotation file, the drawing id is the file stem
func (d Decoder) DecodeFile(path string) (*Document, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	return d.Decode(f, drawingIDFromPath(path))
}

// FileError is a failure to load one annotation file
type FileError struct {
	Path      string
	DrawingID string
	Err       error
}

// Error implements error
func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e FileError) Unwrap() error {
	return e.Err
}

// ListDir returns the annotation files of the given format below dir,
// sorted by path
func ListDir(dir string, format Format) ([]string, error) {

	var files []string
	ext := format.Extension()

	err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !de.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", dir, err)
	}

	sort.Strings(files)

	return files, nil
}

// LoadDir decodes every annotation file below dir.  A file that fails to
// parse is reported in the returned FileError list and does not stop the
// remaining files.  progress, if not nil, is called once per file.
func LoadDir(dir string, d Decoder, progress func()) (map[string]*Document, []FileError, error) {

	files, err := ListDir(dir, d.Format)

	if err != nil {
		return nil, nil, err
	}

	docs := make(map[string]*Document, len(files))
	var fileErrs []FileError

	for _, path := range files {
		id := drawingIDFromPath(path)
		doc, err := d.DecodeFile(path)

		if progress != nil {
			progress()
		}

		if err != nil {
			fileErrs = append(fileErrs, FileError{Path: path, DrawingID: id, Err: err})
			continue
		}

		if _, dup := docs[id]; dup {
			fileErrs = append(fileErrs, FileError{
				Path:      path,
				DrawingID: id,
				Err:       fmt.Errorf("duplicate drawing id %q", id),
			})
			continue
		}

		docs[id] = doc
	}

	return docs, fileErrs, nil
}

// MissingCounterpart records a drawing present on one side only
type MissingCounterpart struct {
	DrawingID string
	// Missing is the role that has no annotation for the drawing
	Missing region.Role
}

// Pair joins ground truth and detection documents into region sets sorted
// by drawing id.  A drawing missing on one side is reported and evaluated
// with no regions on that side.  Drawings in exclude are dropped entirely,
// this is used for drawings whose annotation failed to parse.  Every region
// is stamped with its drawing, role and a fresh id.
func Pair(gt, dt map[string]*Document, exclude map[string]bool,
	ids *region.IDGenerator) ([]region.Set, []MissingCounterpart) {

	keys := make(map[string]bool)

	for id := range gt {
		keys[id] = true
	}

	for id := range dt {
		keys[id] = true
	}

	drawings := make([]string, 0, len(keys))

	for id := range keys {
		if !exclude[id] {
			drawings = append(drawings, id)
		}
	}

	sort.Strings(drawings)

	sets := make([]region.Set, 0, len(drawings))
	var missing []MissingCounterpart

	for _, id := range drawings {
		s := region.Set{DrawingID: id}

		if doc, ok := gt[id]; ok {
			s.GroundTruth = append([]region.Region(nil), doc.Regions...)
		} else {
			missing = append(missing, MissingCounterpart{DrawingID: id, Missing: region.GroundTruth})
		}

		if doc, ok := dt[id]; ok {
			s.Detections = append([]region.Region(nil), doc.Regions...)
		} else {
			missing = append(missing, MissingCounterpart{DrawingID: id, Missing: region.Detection})
		}

		region.Stamp(s.GroundTruth, id, region.GroundTruth, ids)
		region.Stamp(s.Detections, id, region.Detection, ids)

		sets = append(sets, s)
	}

	return sets, missing
}
