package dicom

import (
	"encoding/binary"
	"fmt"
)

// RLE Lossless frames (PS3.5 Annex G) start with a 64 byte header: the
// segment count followed by fifteen segment offsets. Each segment holds one
// byte plane, most significant first, packed with PackBits.
const rleHeaderSize = 64

// Encapsulated is compressed pixel data with one fragment per frame. The
// basic offset table is not kept.
type Encapsulated struct {
	Fragments [][]byte
}

// unpackBits expands PackBits data until want bytes are produced or the
// input ends.
func unpackBits(data []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for i := 0; i < len(data) && len(out) < want; {
		n := int8(data[i])
		i++
		switch {
		case n == -128:
		case n >= 0:
			count := int(n) + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("%w: literal run of %d truncated at %d", ErrCorruptPixelData, count, i)
			}
			out = append(out, data[i:i+count]...)
			i += count
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("%w: replicate run truncated", ErrCorruptPixelData)
			}
			v := data[i]
			i++
			for k := 0; k < int(-n)+1; k++ {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// packBits compresses data. Runs of two or more bytes replicate; literals
// stop where a run of three begins.
func packBits(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		run := 1
		for i+run < len(data) && run < 128 && data[i+run] == data[i] {
			run++
		}
		if run > 1 {
			out = append(out, byte(int8(1-run)), data[i])
			i += run
			continue
		}
		lit := 1
		for i+lit < len(data) && lit < 128 {
			if j := i + lit; j+2 < len(data) && data[j] == data[j+1] && data[j] == data[j+2] {
				break
			}
			lit++
		}
		out = append(out, byte(lit-1))
		out = append(out, data[i:i+lit]...)
		i += lit
	}
	return out
}

// decodeRLE turns one RLE frame into little endian samples.
func decodeRLE(frame []byte, pixels, bytesPerPixel int) ([]byte, error) {
	if len(frame) < rleHeaderSize {
		return nil, fmt.Errorf("%w: rle header truncated", ErrCorruptPixelData)
	}
	n := int(binary.LittleEndian.Uint32(frame))
	if n != bytesPerPixel {
		return nil, fmt.Errorf("%w: %d rle segments for %d byte samples", ErrCorruptPixelData, n, bytesPerPixel)
	}
	out := make([]byte, pixels*bytesPerPixel)
	for s := 0; s < n; s++ {
		start := int(binary.LittleEndian.Uint32(frame[4+4*s:]))
		end := len(frame)
		if s+1 < n {
			end = int(binary.LittleEndian.Uint32(frame[8+4*s:]))
		}
		if start < rleHeaderSize || start > end || end > len(frame) {
			return nil, fmt.Errorf("%w: rle segment %d spans %d-%d of %d", ErrCorruptPixelData, s, start, end, len(frame))
		}
		plane, err := unpackBits(frame[start:end], pixels)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", s, err)
		}
		if len(plane) < pixels {
			return nil, fmt.Errorf("%w: rle segment %d has %d of %d bytes", ErrCorruptPixelData, s, len(plane), pixels)
		}
		b := bytesPerPixel - 1 - s
		for i := 0; i < pixels; i++ {
			out[i*bytesPerPixel+b] = plane[i]
		}
	}
	return out, nil
}

// encodeRLE packs little endian samples as one RLE frame.
func encodeRLE(raw []byte, pixels, bytesPerPixel int) []byte {
	header := make([]byte, rleHeaderSize)
	binary.LittleEndian.PutUint32(header, uint32(bytesPerPixel))
	body := []byte{}
	plane := make([]byte, pixels)
	for s := 0; s < bytesPerPixel; s++ {
		b := bytesPerPixel - 1 - s
		for i := range plane {
			plane[i] = raw[i*bytesPerPixel+b]
		}
		binary.LittleEndian.PutUint32(header[4+4*s:], uint32(rleHeaderSize+len(body)))
		body = append(body, packBits(plane)...)
		if len(body)%2 != 0 {
			// no-op keeps segments even
			body = append(body, 0x80)
		}
	}
	return append(header, body...)
}
