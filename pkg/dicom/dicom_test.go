package dicom_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpfielding/ctlabels.go/pkg/dicom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlice_RoundTrip(t *testing.T) {
	s := dicom.Slice{
		PatientID:    "P001",
		StudyID:      "S42",
		StudyUID:     dicom.NewUID(),
		SeriesUID:    dicom.NewUID(),
		Instance:     3,
		Rows:         2,
		Columns:      3,
		Pixels:       []int16{-1024, 0, 40, 100, 1000, 3071},
		Intercept:    -1024,
		Slope:        1,
		WindowCenter: 40,
		WindowWidth:  400,
	}
	fn := filepath.Join(t.TempDir(), "slice.dcm")
	n, err := dicom.WriteFile(fn, s.Dataset())
	require.NoError(t, err)
	fi, err := os.Stat(fn)
	require.NoError(t, err)
	assert.Equal(t, fi.Size(), n)

	ds, err := dicom.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "P001", ds.PatientID())
	assert.Equal(t, "S42", ds.StudyID())
	assert.Equal(t, s.StudyUID, ds.StudyInstanceUID())
	assert.Equal(t, dicom.ExplicitVRLittleEndian, ds.TransferSyntax())
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, 3, ds.Columns())
	assert.Equal(t, 16, ds.BitsAllocated())
	assert.Equal(t, 1, ds.PixelRepresentation())
	assert.Equal(t, 3, ds.InstanceNumber())
	assert.False(t, ds.Inverted())

	slope, intercept := ds.Rescale()
	assert.Equal(t, 1.0, slope)
	assert.Equal(t, -1024.0, intercept)
	c, w, ok := ds.Window()
	require.True(t, ok)
	assert.Equal(t, 40.0, c)
	assert.Equal(t, 400.0, w)

	frames, err := ds.Frames()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []float32{-2048, -1024, -984, -924, -24, 2047}, frames[0])
}

func TestNewUID(t *testing.T) {
	a, b := dicom.NewUID(), dicom.NewUID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "2.25."))
	assert.LessOrEqual(t, len(a), 64)
}

// element appends one explicit or implicit VR little endian element.
func element(buf *bytes.Buffer, group, elem uint16, vr string, val []byte, explicit bool) {
	binary.Write(buf, binary.LittleEndian, group)
	binary.Write(buf, binary.LittleEndian, elem)
	if !explicit {
		binary.Write(buf, binary.LittleEndian, uint32(len(val)))
		buf.Write(val)
		return
	}
	buf.WriteString(vr)
	switch vr {
	case "OB", "OW", "SQ", "UN":
		buf.Write([]byte{0, 0})
		binary.Write(buf, binary.LittleEndian, uint32(len(val)))
	default:
		binary.Write(buf, binary.LittleEndian, uint16(len(val)))
	}
	buf.Write(val)
}

func header(ts string) *bytes.Buffer {
	var buf bytes.Buffer
	buf.Write(make([]byte, 128))
	buf.WriteString("DICM")
	uid := []byte(ts)
	if len(uid)%2 == 1 {
		uid = append(uid, 0)
	}
	element(&buf, 0x0002, 0x0010, "UI", uid, true)
	return &buf
}

func u16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }

func TestParse_ImplicitVR8Bit(t *testing.T) {
	buf := header(dicom.ImplicitVRLittleEndian)
	element(buf, 0x0010, 0x0020, "", []byte("PX01"), false)
	element(buf, 0x0028, 0x0004, "", []byte("MONOCHROME1 "), false)
	element(buf, 0x0028, 0x0010, "", u16(1), false)
	element(buf, 0x0028, 0x0011, "", u16(2), false)
	element(buf, 0x0028, 0x0100, "", u16(8), false)
	element(buf, 0x0028, 0x1053, "", []byte("2 "), false)
	element(buf, 0x7FE0, 0x0010, "", []byte{10, 200}, false)

	ds, err := dicom.Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "PX01", ds.PatientID())
	assert.True(t, ds.Inverted())
	frames, err := ds.Frames()
	require.NoError(t, err)
	assert.Equal(t, []float32{20, 400}, frames[0])
}

func TestParse_SkipsSequences(t *testing.T) {
	buf := header(dicom.ExplicitVRLittleEndian)
	element(buf, 0x0008, 0x1140, "SQ", nil, true)
	// rewrite the SQ length to undefined and add an item with a nested element
	b := buf.Bytes()
	binary.LittleEndian.PutUint32(b[len(b)-4:], 0xFFFFFFFF)
	binary.Write(buf, binary.LittleEndian, [2]uint16{0xFFFE, 0xE000})
	binary.Write(buf, binary.LittleEndian, uint32(0xFFFFFFFF))
	element(buf, 0x0008, 0x1150, "UI", []byte("1.2"), true)
	binary.Write(buf, binary.LittleEndian, [2]uint16{0xFFFE, 0xE00D})
	binary.Write(buf, binary.LittleEndian, uint32(0))
	binary.Write(buf, binary.LittleEndian, [2]uint16{0xFFFE, 0xE0DD})
	binary.Write(buf, binary.LittleEndian, uint32(0))
	element(buf, 0x0010, 0x0020, "LO", []byte("AFTER "), true)

	ds, err := dicom.Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "AFTER", ds.PatientID())
	_, ok := ds.Find(dicom.Tag{Group: 0x0008, Element: 0x1150})
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	_, err := dicom.Parse(strings.NewReader("not a dicom file"))
	assert.ErrorIs(t, err, dicom.ErrNotDICOM)

	_, err = dicom.Parse(bytes.NewReader(append(make([]byte, 128), "DICX"...)))
	assert.ErrorIs(t, err, dicom.ErrNotDICOM)

	buf := header("1.2.840.10008.1.2.4.80")
	element(buf, 0x0010, 0x0020, "LO", []byte("PX"), true)
	_, err = dicom.Parse(buf)
	assert.ErrorIs(t, err, dicom.ErrUnsupportedTransferSyntax)

	dir := t.TempDir()
	_, err = dicom.ReadFile(dir)
	assert.ErrorIs(t, err, dicom.ErrIsDirectory)

	junk := filepath.Join(dir, "junk.dcm")
	require.NoError(t, os.WriteFile(junk, []byte("hello"), 0644))
	_, err = dicom.ReadFile(junk)
	assert.ErrorIs(t, err, dicom.ErrNotDICOM)
}

func TestFrames_Errors(t *testing.T) {
	ds := dicom.NewDataset()
	_, err := ds.Frames()
	assert.ErrorIs(t, err, dicom.ErrNoPixelData)

	ds.Put(dicom.Rows, "US", uint16(2))
	ds.Put(dicom.Columns, "US", uint16(2))
	ds.Put(dicom.PixelData, "OW", []byte{1, 2, 3})
	_, err = ds.Frames()
	assert.Error(t, err)
}

func TestFloat_MultiValue(t *testing.T) {
	ds := dicom.NewDataset()
	ds.Put(dicom.WindowCenter, "DS", "40\\-600")
	ds.Put(dicom.WindowWidth, "DS", " 400\\1500")
	c, w, ok := ds.Window()
	require.True(t, ok)
	assert.Equal(t, 40.0, c)
	assert.Equal(t, 400.0, w)
}
