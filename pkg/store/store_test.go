package store_test

import (
	"testing"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/store"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LazyMask(t *testing.T) {
	s := store.New()
	_, err := s.AddLabel("tumor", 255, 0, 0)
	require.NoError(t, err)

	slot, err := s.Slot("tumor")
	require.NoError(t, err)
	assert.False(t, slot.Present())

	_, err = s.EnsureMask("tumor")
	assert.ErrorIs(t, err, store.ErrNoVolume)

	s.SetVolume(volume.NewVolume(4, 4, 2))
	m, err := s.EnsureMask("tumor")
	require.NoError(t, err)
	assert.Equal(t, volume.Shape{2, 4, 4}, m.Shape())
	assert.False(t, m.Any())

	slot, _ = s.Slot("tumor")
	assert.True(t, slot.Present())

	again, err := s.EnsureMask("TUMOR")
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestStore_SetVolumeInvalidates(t *testing.T) {
	s := store.New()
	s.AddLabel("a", 0, 0, 0)
	s.SetVolume(volume.NewVolume(2, 2, 2))
	_, err := s.EnsureMask("a")
	require.NoError(t, err)

	s.SetVolume(volume.NewVolume(3, 3, 3))
	_, err = s.Mask("a")
	assert.ErrorIs(t, err, store.ErrNoMask)
}

func TestStore_ReplaceMasksAllOrNothing(t *testing.T) {
	s := store.New()
	s.AddLabel("a", 0, 0, 0)
	s.AddLabel("b", 0, 0, 0)
	s.SetVolume(volume.NewVolume(2, 2, 2))

	good := volume.NewMask(2, 2, 2)
	bad := volume.NewMask(2, 2, 3)
	err := s.ReplaceMasks(map[string]*volume.Mask{"a": good, "b": bad})
	assert.ErrorIs(t, err, store.ErrShapeMismatch)
	_, err = s.Mask("a")
	assert.ErrorIs(t, err, store.ErrNoMask)

	require.NoError(t, s.ReplaceMasks(map[string]*volume.Mask{"a": good}))
	m, err := s.Mask("a")
	require.NoError(t, err)
	assert.Same(t, good, m)

	assert.ErrorIs(t, s.ReplaceMask("zzz", good), labels.ErrNotFound)
}

func TestStore_RemoveLabelIsolation(t *testing.T) {
	s := store.New()
	s.SetVolume(volume.NewVolume(3, 3, 1))
	for _, n := range []string{"a", "b", "c"} {
		_, err := s.AddLabel(n, 1, 2, 3)
		require.NoError(t, err)
		m, err := s.EnsureMask(n)
		require.NoError(t, err)
		m.Set(len(n), 0, 0, 255)
	}
	before := s.Entries()
	snapshot := map[string][]uint8{}
	for _, e := range before {
		snapshot[e.Label.Name] = append([]uint8(nil), e.Slot.Mask().Data...)
	}

	require.NoError(t, s.RemoveLabel("b"))
	after := s.Entries()
	require.Len(t, after, 2)
	assert.Equal(t, before[0].Label, after[0].Label)
	assert.Equal(t, before[2].Label, after[1].Label)
	assert.Equal(t, snapshot["a"], after[0].Slot.Mask().Data)
	assert.Equal(t, snapshot["c"], after[1].Slot.Mask().Data)
	_, err := s.Slot("b")
	assert.ErrorIs(t, err, labels.ErrNotFound)
}

func TestStore_ReplaceLabelsMaterializes(t *testing.T) {
	s := store.New()
	s.SetVolume(volume.NewVolume(2, 2, 1))
	set := &labels.Set{}
	set.Add("liver", 0, 255, 0)
	s.ReplaceLabels(set)
	assert.True(t, s.AllPresent())
	m, err := s.Mask("liver")
	require.NoError(t, err)
	assert.Equal(t, 4, len(m.Data))

	empty := store.New()
	empty.ReplaceLabels(set)
	slot, err := empty.Slot("liver")
	require.NoError(t, err)
	assert.False(t, slot.Present())
}

func TestStore_Flip(t *testing.T) {
	s := store.New()
	assert.ErrorIs(t, s.Flip(0), store.ErrNoVolume)
	v := volume.NewVolume(2, 1, 1)
	v.Data[0] = 9
	s.SetVolume(v)
	s.AddLabel("a", 0, 0, 0)
	m, _ := s.EnsureMask("a")
	m.Data[0] = 255
	require.NoError(t, s.Flip(2))
	assert.Equal(t, []uint16{0, 9}, s.Volume().Data)
	assert.Equal(t, []uint8{0, 255}, m.Data)
}

func TestStore_ReplaceVolumeKeepsMasks(t *testing.T) {
	s := store.New()
	assert.ErrorIs(t, s.ReplaceVolume(volume.NewVolume(2, 2, 1)), store.ErrNoVolume)

	s.SetVolume(volume.NewVolume(2, 2, 1))
	s.AddLabel("a", 0, 0, 0)
	m, err := s.EnsureMask("a")
	require.NoError(t, err)
	m.Data[3] = 255

	next := volume.NewVolume(2, 2, 1)
	next.Data[0] = 7
	require.NoError(t, s.ReplaceVolume(next))
	assert.Same(t, next, s.Volume())
	got, err := s.Mask("a")
	require.NoError(t, err)
	assert.Equal(t, uint8(255), got.Data[3])

	assert.ErrorIs(t, s.ReplaceVolume(volume.NewVolume(3, 2, 1)), store.ErrShapeMismatch)
}
