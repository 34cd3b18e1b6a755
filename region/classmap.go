package region

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrNoClassMap is returned when no class definitions could be loaded
var ErrNoClassMap = errors.New("no class definitions")

// textClassPrefix identifies the text class family, eg: text, text_rotated
// and text_rotated_45
const textClassPrefix = "text"

// ClassMap is a bidirectional mapping between class ids and class names
type ClassMap struct {
	byID   map[ClassID]string
	byName map[string]ClassID
}

// NewClassMap builds a class map from the id to name table
func NewClassMap(names map[ClassID]string) *ClassMap {

	m := &ClassMap{
		byID:   make(map[ClassID]string, len(names)),
		byName: make(map[string]ClassID, len(names)),
	}

	for id, name := range names {
		m.byID[id] = name
		m.byName[name] = id
	}

	return m
}

// LoadClassMap reads the class table from the given text file.  It should
// contain one class per line in the form id|name.
func LoadClassMap(file string) (*ClassMap, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	return ReadClassMap(f)
}

// ReadClassMap parses id|name lines from r.  Blank lines are skipped.
func ReadClassMap(r io.Reader) (*ClassMap, error) {

	scanner := bufio.NewScanner(r)
	names := make(map[ClassID]string)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		idStr, name, ok := strings.Cut(line, "|")

		if !ok {
			return nil, fmt.Errorf("line %d: missing '|' separator in %q", lineNo, line)
		}

		id, err := strconv.Atoi(strings.TrimSpace(idStr))

		if err != nil {
			return nil, fmt.Errorf("line %d: invalid class id: %w", lineNo, err)
		}

		names[ClassID(id)] = strings.TrimSpace(name)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(names) == 0 {
		return nil, ErrNoClassMap
	}

	return NewClassMap(names), nil
}

// Len returns the number of classes
func (m *ClassMap) Len() int {
	return len(m.byID)
}

// ID returns the id of the named class
func (m *ClassMap) ID(name string) (ClassID, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Name returns the name of the class, or its numeric id when unknown
func (m *ClassMap) Name(id ClassID) string {

	if name, ok := m.byID[id]; ok {
		return name
	}

	return strconv.Itoa(int(id))
}

// Contains reports whether the class id is defined
func (m *ClassMap) Contains(id ClassID) bool {
	_, ok := m.byID[id]
	return ok
}

// IDs returns every class id sorted ascending
func (m *ClassMap) IDs() []ClassID {

	ids := make([]ClassID, 0, len(m.byID))

	for id := range m.byID {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	return ids
}

// Subset returns a class map restricted to the given names.  Names that are
// not defined are returned as unknown.
func (m *ClassMap) Subset(names []string) (sub *ClassMap, unknown []string) {

	table := make(map[ClassID]string)

	for _, name := range names {
		id, ok := m.byName[name]

		if !ok {
			unknown = append(unknown, name)
			continue
		}

		table[id] = name
	}

	return NewClassMap(table), unknown
}

// Without returns the classes of m that are not present in other.  The
// small symbol group is the total class map without the large group.
func (m *ClassMap) Without(other *ClassMap) *ClassMap {

	table := make(map[ClassID]string)

	for id, name := range m.byID {
		if !other.Contains(id) {
			table[id] = name
		}
	}

	return NewClassMap(table)
}

// TextClasses returns the set of classes in the text family
func (m *ClassMap) TextClasses() map[ClassID]bool {

	res := make(map[ClassID]bool)

	for id, name := range m.byID {
		if strings.HasPrefix(name, textClassPrefix) {
			res[id] = true
		}
	}

	return res
}
