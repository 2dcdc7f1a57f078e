package series_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/ctlabels.go/pkg/dicom"
	"github.com/jpfielding/ctlabels.go/pkg/series"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"github.com/jpfielding/ctlabels.go/pkg/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phantom(t *testing.T, slices int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "study-001")
	_, err := series.Phantom{PatientID: "P1", StudyID: "77", Width: 16, Height: 12, Slices: slices}.Write(dir)
	require.NoError(t, err)
	return dir
}

func TestLoad(t *testing.T) {
	dir := phantom(t, 5)
	s, err := series.Load(context.Background(), dir, series.Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, "P1", s.PatientID)
	assert.Equal(t, "77", s.StudyID)
	assert.Equal(t, "study-001", s.Key())
	assert.Equal(t, 16, s.Bits)
	assert.Equal(t, volume.Shape{5, 12, 16}, s.Volume.Shape())
	require.Len(t, s.Slices, 5)

	// air is black, the dense core saturates
	assert.Equal(t, uint16(0), s.Volume.Get(0, 0, 2))
	assert.Equal(t, uint16(65535), s.Volume.Get(8, 6, 2))

	// rewindowing keeps shape and changes contrast
	lungs, _ := window.Preset("lungs")
	require.NoError(t, s.Rewindow(lungs))
	assert.Equal(t, volume.Shape{5, 12, 16}, s.Volume.Shape())
}

func TestLoad_RLE(t *testing.T) {
	base := t.TempDir()
	native, rle := filepath.Join(base, "native"), filepath.Join(base, "rle")
	p := series.Phantom{PatientID: "P2", Width: 10, Height: 10, Slices: 3}
	_, err := p.Write(native)
	require.NoError(t, err)
	p.RLE = true
	_, err = p.Write(rle)
	require.NoError(t, err)

	a, err := series.Load(context.Background(), native, series.Options{})
	require.NoError(t, err)
	b, err := series.Load(context.Background(), rle, series.Options{})
	require.NoError(t, err)
	assert.Equal(t, a.Volume.Data, b.Volume.Data)
}

func TestDiscover_FallsBackToAllEntries(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b", "a", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644))
	}
	files, err := series.Discover(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a"), filepath.Join(dir, "b"), filepath.Join(dir, "c")}, files)

	_, err = series.Discover(dir, 2)
	assert.ErrorIs(t, err, series.ErrInvalidFolder)

	_, err = series.Discover(t.TempDir(), 0)
	assert.ErrorIs(t, err, series.ErrInvalidFolder)
}

func TestLoad_Errors(t *testing.T) {
	dir := phantom(t, 2)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	// no .dcm left after removal forces the all-entries pass which sees the folder
	matches, _ := filepath.Glob(filepath.Join(dir, "*.dcm"))
	for _, m := range matches {
		require.NoError(t, os.Rename(m, m+".bin"))
	}
	_, err := series.Load(context.Background(), dir, series.Options{})
	assert.ErrorIs(t, err, dicom.ErrIsDirectory)

	junk := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(junk, "x.dcm"), []byte("nope"), 0644))
	_, err = series.Load(context.Background(), junk, series.Options{})
	assert.ErrorIs(t, err, dicom.ErrNotDICOM)

	_, err = series.Load(context.Background(), dir, series.Options{Window: window.Level{Width: -1}})
	assert.ErrorIs(t, err, window.ErrInvalidWidth)
}

func TestLoad_ShapeMismatch(t *testing.T) {
	dir := phantom(t, 2)
	_, err := series.Phantom{Width: 8, Height: 8, Slices: 1}.Write(filepath.Join(dir, "zz"))
	require.NoError(t, err)
	_, err = series.Load(context.Background(), dir, series.Options{})
	assert.ErrorIs(t, err, series.ErrShapeMismatch)
}
