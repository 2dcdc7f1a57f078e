// Package store owns the loaded volume and one optional mask per label.
package store

import (
	"errors"
	"fmt"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
)

var (
	ErrNoVolume      = errors.New("no volume loaded")
	ErrNoMask        = errors.New("mask not present")
	ErrShapeMismatch = errors.New("mask shape does not match volume")
)

// Slot holds a label's mask or records that none exists yet. An all-zero
// mask is present; a slot that was never drawn, segmented or loaded is not.
type Slot struct {
	mask *volume.Mask
}

// Present reports whether the slot carries a mask.
func (s Slot) Present() bool { return s.mask != nil }

// Mask returns the mask, nil when absent.
func (s Slot) Mask() *volume.Mask { return s.mask }

// Store is the single owner of the volume, labels and masks.
// Every present mask has the volume's shape.
type Store struct {
	vol    *volume.Volume
	labels *labels.Set
	slots  map[string]Slot
}

// New returns an empty store.
func New() *Store {
	return &Store{labels: &labels.Set{}, slots: map[string]Slot{}}
}

// Volume returns the current volume, nil if none is loaded.
func (s *Store) Volume() *volume.Volume { return s.vol }

// HasVolume reports whether a volume is loaded.
func (s *Store) HasVolume() bool { return s.vol != nil }

// SetVolume replaces the volume and resets every mask to absent.
func (s *Store) SetVolume(v *volume.Volume) {
	s.vol = v
	s.ResetMasks()
}

// ReplaceVolume swaps in a volume of the same shape and keeps the masks.
// Used when the display transform changes but the study does not.
func (s *Store) ReplaceVolume(v *volume.Volume) error {
	if s.vol == nil {
		return ErrNoVolume
	}
	if v.Shape() != s.vol.Shape() {
		return fmt.Errorf("%w: %s, want %s", ErrShapeMismatch, v.Shape(), s.vol.Shape())
	}
	s.vol = v
	return nil
}

// Labels exposes the label set. Use the store methods to add or remove
// labels so the masks stay in step.
func (s *Store) Labels() *labels.Set { return s.labels }

// AddLabel adds a label with an absent mask.
func (s *Store) AddLabel(name string, r, g, b int) (labels.Label, error) {
	l, err := s.labels.Add(name, r, g, b)
	if err != nil {
		return l, err
	}
	s.slots[l.Name] = Slot{}
	return l, nil
}

// RemoveLabel drops a label together with its mask, color and class.
func (s *Store) RemoveLabel(name string) error {
	name = labels.Normalize(name)
	if err := s.labels.Remove(name); err != nil {
		return err
	}
	delete(s.slots, name)
	return nil
}

// ReplaceLabels swaps in a whole label set. Masks start absent, or zeroed
// when a volume is loaded.
func (s *Store) ReplaceLabels(set *labels.Set) {
	s.labels = set
	s.slots = make(map[string]Slot, set.Len())
	for _, n := range set.Names() {
		var slot Slot
		if s.vol != nil {
			slot.mask = volume.NewMask(s.vol.Width, s.vol.Height, s.vol.Depth)
		}
		s.slots[n] = slot
	}
}

// Slot returns the mask slot for a label.
func (s *Store) Slot(name string) (Slot, error) {
	name = labels.Normalize(name)
	slot, ok := s.slots[name]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %s", labels.ErrNotFound, name)
	}
	return slot, nil
}

// Mask returns a present mask or ErrNoMask.
func (s *Store) Mask(name string) (*volume.Mask, error) {
	slot, err := s.Slot(name)
	if err != nil {
		return nil, err
	}
	if !slot.Present() {
		return nil, fmt.Errorf("%w: %s", ErrNoMask, name)
	}
	return slot.mask, nil
}

// EnsureMask returns the label's mask, allocating zeros on first use.
func (s *Store) EnsureMask(name string) (*volume.Mask, error) {
	if s.vol == nil {
		return nil, ErrNoVolume
	}
	slot, err := s.Slot(name)
	if err != nil {
		return nil, err
	}
	if slot.Present() {
		return slot.mask, nil
	}
	m := volume.NewMask(s.vol.Width, s.vol.Height, s.vol.Depth)
	s.slots[labels.Normalize(name)] = Slot{mask: m}
	return m, nil
}

func (s *Store) check(name string, m *volume.Mask) error {
	if s.vol == nil {
		return ErrNoVolume
	}
	if _, err := s.Slot(name); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: %s", ErrNoMask, name)
	}
	if !volume.SameShape(s.vol, m) {
		return fmt.Errorf("%w: %s has %v, volume has %v", ErrShapeMismatch, name, m.Shape(), s.vol.Shape())
	}
	return nil
}

// ReplaceMask installs m as the label's mask.
func (s *Store) ReplaceMask(name string, m *volume.Mask) error {
	if err := s.check(name, m); err != nil {
		return err
	}
	s.slots[labels.Normalize(name)] = Slot{mask: m}
	return nil
}

// ReplaceMasks installs several masks at once. Nothing changes unless every
// mask is valid.
func (s *Store) ReplaceMasks(masks map[string]*volume.Mask) error {
	for name, m := range masks {
		if err := s.check(name, m); err != nil {
			return err
		}
	}
	for name, m := range masks {
		s.slots[labels.Normalize(name)] = Slot{mask: m}
	}
	return nil
}

// ResetMasks marks every mask absent.
func (s *Store) ResetMasks() {
	for n := range s.slots {
		s.slots[n] = Slot{}
	}
}

// MaterializeAll allocates zero masks for every absent slot.
func (s *Store) MaterializeAll() error {
	for _, n := range s.labels.Names() {
		if _, err := s.EnsureMask(n); err != nil {
			return err
		}
	}
	return nil
}

// AllPresent reports whether every label has a mask.
func (s *Store) AllPresent() bool {
	for _, n := range s.labels.Names() {
		if !s.slots[n].Present() {
			return false
		}
	}
	return true
}

// Entry pairs a label with its slot.
type Entry struct {
	Label labels.Label
	Slot  Slot
}

// Entries lists labels and their slots in insertion order.
func (s *Store) Entries() []Entry {
	all := s.labels.All()
	out := make([]Entry, len(all))
	for i, l := range all {
		out[i] = Entry{Label: l, Slot: s.slots[l.Name]}
	}
	return out
}

// Flip mirrors the volume and all present masks along axis.
func (s *Store) Flip(axis int) error {
	if s.vol == nil {
		return ErrNoVolume
	}
	s.vol.Flip(axis)
	for _, slot := range s.slots {
		if slot.Present() {
			slot.mask.Flip(axis)
		}
	}
	return nil
}
