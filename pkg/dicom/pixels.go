package dicom

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Frames decodes native or RLE pixel data into modality corrected values
// (stored value * slope + intercept), one slice per frame.
func (ds *Dataset) Frames() ([][]float32, error) {
	e, ok := ds.Find(PixelData)
	if !ok {
		return nil, ErrNoPixelData
	}
	rows, cols, frames := ds.Rows(), ds.Columns(), ds.NumberOfFrames()
	bits := ds.BitsAllocated()
	signed := ds.PixelRepresentation() == 1
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrNotDICOM, cols, rows)
	}
	if bits != 8 && bits != 16 {
		return nil, fmt.Errorf("%w: %d bits allocated", ErrUnsupportedTransferSyntax, bits)
	}
	bytesPerPixel := bits / 8
	pixelsPerFrame := rows * cols
	frameSize := pixelsPerFrame * bytesPerPixel

	var frame func(f int) ([]byte, error)
	switch v := e.Value.(type) {
	case []byte:
		if len(v) < frames*frameSize {
			return nil, fmt.Errorf("pixel data truncated: expected %d bytes for %d frames, got %d", frames*frameSize, frames, len(v))
		}
		frame = func(f int) ([]byte, error) { return v[f*frameSize : (f+1)*frameSize], nil }
	case Encapsulated:
		if len(v.Fragments) < frames {
			return nil, fmt.Errorf("%w: %d fragments for %d frames", ErrCorruptPixelData, len(v.Fragments), frames)
		}
		frame = func(f int) ([]byte, error) { return decodeRLE(v.Fragments[f], pixelsPerFrame, bytesPerPixel) }
	default:
		return nil, fmt.Errorf("pixel data element has unexpected type: %T", e.Value)
	}
	slope, intercept := ds.Rescale()

	slog.Debug("decoding pixel data",
		slog.Int("rows", rows),
		slog.Int("cols", cols),
		slog.Int("frames", frames),
		slog.Int("bitsAllocated", bits),
		slog.Bool("signed", signed))

	out := make([][]float32, frames)
	for f := range out {
		src, err := frame(f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", f, err)
		}
		dst := make([]float32, pixelsPerFrame)
		for i := range dst {
			var v float64
			switch {
			case bits == 16 && signed:
				v = float64(int16(binary.LittleEndian.Uint16(src[i*2:])))
			case bits == 16:
				v = float64(binary.LittleEndian.Uint16(src[i*2:]))
			case signed:
				v = float64(int8(src[i]))
			default:
				v = float64(src[i])
			}
			dst[i] = float32(v*slope + intercept)
		}
		out[f] = dst
	}
	return out, nil
}
