package dicom

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(b byte, n int) []byte { return bytes.Repeat([]byte{b}, n) }

func ramp(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestPackBits(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"single", []byte{0xAA}},
		{"pair", []byte{0xAA, 0xAA}},
		{"literal", []byte{1, 2, 3}},
		{"mixed", []byte{0xAA, 0xAA, 0xAA, 1, 2, 0xBB, 0xBB}},
		{"long run", repeat(0xCC, 130)},
		{"long literal", ramp(130)},
		{"max run", repeat(0xAA, 128)},
		{"max literal", ramp(128)},
		{"alternating", []byte{0, 1, 0, 1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unpackBits(packBits(tt.data), len(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.data, got)
		})
	}
	assert.Len(t, packBits(repeat(7, 128)), 2)
}

func TestUnpackBits_Truncated(t *testing.T) {
	_, err := unpackBits([]byte{0x02, 0x01}, 3)
	assert.ErrorIs(t, err, ErrCorruptPixelData)
	_, err = unpackBits([]byte{0xFE}, 3)
	assert.ErrorIs(t, err, ErrCorruptPixelData)

	// no-op bytes are skipped and output stops at the wanted size
	got, err := unpackBits([]byte{0x80, 0xFE, 9, 0x00, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9}, got)
}

func TestRLEFrame(t *testing.T) {
	raw := make([]byte, 0, 200)
	for i := 0; i < 100; i++ {
		v := uint16(1024)
		if i > 60 {
			v = uint16(i * 300)
		}
		raw = binary.LittleEndian.AppendUint16(raw, v)
	}
	frame := encodeRLE(raw, 100, 2)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(frame))
	assert.Equal(t, 0, len(frame)%2)

	got, err := decodeRLE(frame, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeRLE(frame, 100, 1)
	assert.ErrorIs(t, err, ErrCorruptPixelData)
	_, err = decodeRLE(frame[:10], 100, 2)
	assert.ErrorIs(t, err, ErrCorruptPixelData)
	_, err = decodeRLE(frame, 200, 2)
	assert.ErrorIs(t, err, ErrCorruptPixelData)
}

func TestSlice_RLERoundTrip(t *testing.T) {
	s := Slice{
		PatientID: "RLE",
		StudyUID:  NewUID(),
		SeriesUID: NewUID(),
		Instance:  1,
		Rows:      2,
		Columns:   4,
		Pixels:    []int16{-1024, -1024, -1024, 0, 40, 40, 40, 3071},
		Intercept: 0,
		RLE:       true,
	}
	fn := filepath.Join(t.TempDir(), "rle.dcm")
	_, err := WriteFile(fn, s.Dataset())
	require.NoError(t, err)

	ds, err := ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, RLELossless, ds.TransferSyntax())
	e, ok := ds.Find(PixelData)
	require.True(t, ok)
	enc, ok := e.Value.(Encapsulated)
	require.True(t, ok)
	assert.Len(t, enc.Fragments, 1)

	frames, err := ds.Frames()
	require.NoError(t, err)
	assert.Equal(t, []float32{-1024, -1024, -1024, 0, 40, 40, 40, 3071}, frames[0])
}

func TestFrames_MissingFragment(t *testing.T) {
	ds := NewDataset()
	ds.Put(Rows, "US", uint16(1))
	ds.Put(Columns, "US", uint16(2))
	ds.Put(NumberOfFrames, "IS", "2")
	ds.Put(PixelData, "OB", Encapsulated{Fragments: [][]byte{encodeRLE([]byte{1, 0, 2, 0}, 2, 2)}})
	_, err := ds.Frames()
	assert.ErrorIs(t, err, ErrCorruptPixelData)
}
