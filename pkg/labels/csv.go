package labels

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrFileExists is returned by WriteFile when the target already exists.
var ErrFileExists = errors.New("file already exists")

// RowError points at a CSV row that could not be parsed.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() []error {
	return []error{ErrMalformedRow, e.Err}
}

// ReadCSV parses rows of name,red,green,blue,class_index with no header.
// Rows without exactly five fields are skipped. Numeric fields that do not
// parse, or duplicate names, fail the whole read.
func ReadCSV(r io.Reader) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	set := &Set{}
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		if len(rec) != 5 {
			continue
		}
		var nums [4]int
		for i, f := range rec[1:] {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, &RowError{Line: line, Err: err}
			}
			nums[i] = n
		}
		name := Normalize(rec[0])
		if name == "" {
			return nil, &RowError{Line: line, Err: ErrEmptyName}
		}
		if set.indexOf(name) >= 0 {
			return nil, &RowError{Line: line, Err: fmt.Errorf("%w: %s", ErrDuplicate, name)}
		}
		set.items = append(set.items, Label{
			Name:  name,
			Color: Clamp(nums[0], nums[1], nums[2]),
			Class: nums[3],
		})
	}
	return set, nil
}

// WriteCSV writes the set in insertion order. Unassigned classes fall back
// to the label's position.
func WriteCSV(w io.Writer, s *Set) error {
	cw := csv.NewWriter(w)
	for i, l := range s.items {
		class := l.Class
		if class == Unassigned {
			class = i
		}
		rec := []string{
			l.Name,
			strconv.Itoa(int(l.Color.R)),
			strconv.Itoa(int(l.Color.G)),
			strconv.Itoa(int(l.Color.B)),
			strconv.Itoa(class),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile loads a label CSV from disk.
func ReadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening labels: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteFile saves a label CSV, refusing to overwrite an existing file.
func WriteFile(path string, s *Set) error {
	if s.Len() == 0 {
		return ErrNoLabels
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return fmt.Errorf("creating labels: %w", err)
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
