// Package labels keeps the ordered set of annotation labels with their
// display colors and segmentation class indexes.
package labels

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrEmptyName       = errors.New("label name is empty")
	ErrDuplicate       = errors.New("label name already taken")
	ErrNotFound        = errors.New("label not found")
	ErrInvalidClasses  = errors.New("invalid classes")
	ErrMalformedRow    = errors.New("malformed label row")
	ErrNoLabels        = errors.New("no labels")
	ErrUnassignedClass = errors.New("label has no class index")
)

// Unassigned marks a label without a segmentation class.
const Unassigned = -1

// Label is one annotation class.
type Label struct {
	Name  string
	Color RGB
	Class int
}

// Set is an insertion ordered collection of uniquely named labels.
// The zero value is empty and ready to use.
type Set struct {
	items []Label
}

// Normalize lowercases and trims a label name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Len returns the number of labels.
func (s *Set) Len() int { return len(s.items) }

// All returns a copy of the labels in insertion order.
func (s *Set) All() []Label {
	return slices.Clone(s.items)
}

// Names returns label names in insertion order.
func (s *Set) Names() []string {
	names := make([]string, len(s.items))
	for i, l := range s.items {
		names[i] = l.Name
	}
	return names
}

func (s *Set) indexOf(name string) int {
	return slices.IndexFunc(s.items, func(l Label) bool { return l.Name == name })
}

// Get looks up a label by (normalized) name.
func (s *Set) Get(name string) (Label, bool) {
	i := s.indexOf(Normalize(name))
	if i < 0 {
		return Label{}, false
	}
	return s.items[i], true
}

// Has reports whether a label exists.
func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Add appends a label. The name is lowercased, color channels are clamped to
// [0,255] and the class index defaults to the label's position.
func (s *Set) Add(name string, r, g, b int) (Label, error) {
	name = Normalize(name)
	if name == "" {
		return Label{}, ErrEmptyName
	}
	if s.indexOf(name) >= 0 {
		return Label{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	l := Label{Name: name, Color: Clamp(r, g, b), Class: len(s.items)}
	s.items = append(s.items, l)
	return l, nil
}

// Remove deletes a label, leaving every other label untouched.
func (s *Set) Remove(name string) error {
	i := s.indexOf(Normalize(name))
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

// SetColor replaces a label's color, clamping channels to [0,255].
func (s *Set) SetColor(name string, r, g, b int) error {
	i := s.indexOf(Normalize(name))
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.items[i].Color = Clamp(r, g, b)
	return nil
}

// SetClasses assigns class indexes in insertion order. The values must be a
// permutation of 0..n-1 where n is the number of labels.
func (s *Set) SetClasses(classes []int) error {
	if len(s.items) == 0 {
		return ErrNoLabels
	}
	if err := checkPermutation(classes, len(s.items)); err != nil {
		return err
	}
	for i := range s.items {
		s.items[i].Class = classes[i]
	}
	return nil
}

// Classes returns each label's class index in insertion order.
func (s *Set) Classes() []int {
	out := make([]int, len(s.items))
	for i, l := range s.items {
		out[i] = l.Class
	}
	return out
}

// CheckClasses verifies every label has a class and the classes form a
// permutation of 0..n-1.
func (s *Set) CheckClasses() error {
	for _, l := range s.items {
		if l.Class == Unassigned {
			return fmt.Errorf("%w: %s", ErrUnassignedClass, l.Name)
		}
	}
	return checkPermutation(s.Classes(), len(s.items))
}

func checkPermutation(classes []int, n int) error {
	if len(classes) != n {
		return fmt.Errorf("%w: got %d classes for %d labels", ErrInvalidClasses, len(classes), n)
	}
	seen := make([]bool, n)
	for _, c := range classes {
		if c < 0 || c >= n || seen[c] {
			return fmt.Errorf("%w: %v is not a permutation of 0..%d", ErrInvalidClasses, classes, n-1)
		}
		seen[c] = true
	}
	return nil
}
