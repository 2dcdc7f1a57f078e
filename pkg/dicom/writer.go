package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// ImplementationClassUIDValue identifies files written by this package.
const ImplementationClassUIDValue = "2.25.329800735698586629295641978511506172918"

// NewUID returns a globally unique UID under the 2.25 root derived from a
// random UUID.
func NewUID() string {
	id := uuid.New()
	return "2.25." + new(big.Int).SetBytes(id[:]).String()
}

// WriteFile writes ds to path as explicit VR little endian, RLE Lossless
// when the pixel data is encapsulated.
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := Write(f, ds)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Write emits the preamble, a file meta group and the data set elements
// sorted by tag, all explicit VR little endian. Encapsulated pixel data
// selects the RLE Lossless transfer syntax.
func Write(w io.Writer, ds *Dataset) (int64, error) {
	cw := &CountingWriter{Writer: w}
	if _, err := cw.Write(make([]byte, 128)); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := cw.Write([]byte("DICM")); err != nil {
		return cw.Count.Load(), err
	}

	meta := NewDataset()
	body := NewDataset()
	for t, e := range ds.Elements {
		if t.Group == 0x0002 {
			meta.Elements[t] = e
		} else {
			body.Elements[t] = e
		}
	}
	meta.Put(FileMetaInformationVersion, "OB", []byte{0, 1})
	ts := ExplicitVRLittleEndian
	if e, ok := body.Find(PixelData); ok {
		if _, ok := e.Value.(Encapsulated); ok {
			ts = RLELossless
		}
	}
	meta.Put(TransferSyntaxUID, "UI", ts)
	meta.Put(ImplementationClassUID, "UI", ImplementationClassUIDValue)
	if _, ok := meta.Find(MediaStorageSOPClassUID); !ok {
		meta.Put(MediaStorageSOPClassUID, "UI", body.String(SOPClassUID))
	}
	if _, ok := meta.Find(MediaStorageSOPInstanceUID); !ok {
		meta.Put(MediaStorageSOPInstanceUID, "UI", body.String(SOPInstanceUID))
	}
	delete(meta.Elements, FileMetaInformationGroupLength)

	var metaBuf bytes.Buffer
	if _, err := writeBody(&metaBuf, meta); err != nil {
		return cw.Count.Load(), err
	}
	groupLen := NewDataset()
	groupLen.Put(FileMetaInformationGroupLength, "UL", uint32(metaBuf.Len()))
	if _, err := writeBody(cw, groupLen); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := cw.Write(metaBuf.Bytes()); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := writeBody(cw, body); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

func writeBody(w io.Writer, ds *Dataset) (int64, error) {
	elements := make([]*Element, 0, len(ds.Elements))
	for _, e := range ds.Elements {
		elements = append(elements, e)
	}
	slices.SortFunc(elements, func(a, b *Element) int {
		switch {
		case a.Tag.Less(b.Tag):
			return -1
		case b.Tag.Less(a.Tag):
			return 1
		}
		return 0
	})
	cw := &CountingWriter{Writer: w}
	for _, e := range elements {
		if err := writeElement(cw, e); err != nil {
			return cw.Count.Load(), fmt.Errorf("failed to write element %v: %w", e.Tag, err)
		}
	}
	return cw.Count.Load(), nil
}

func writeElement(w io.Writer, e *Element) error {
	vr := e.VR
	if len(vr) != 2 {
		slog.Warn("invalid VR length, defaulting to UN", "vr", vr, "tag", e.Tag)
		vr = "UN"
	}
	if enc, ok := e.Value.(Encapsulated); ok {
		return writeEncapsulated(w, e.Tag, enc)
	}
	val, err := encodeValue(e.Value, vr)
	if err != nil {
		return err
	}
	var hdr []byte
	hdr = binary.LittleEndian.AppendUint16(hdr, e.Tag.Group)
	hdr = binary.LittleEndian.AppendUint16(hdr, e.Tag.Element)
	hdr = append(hdr, vr...)
	if isLongVR(vr) {
		hdr = append(hdr, 0, 0)
		hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(val)))
	} else {
		if len(val) > math.MaxUint16 {
			return fmt.Errorf("value of %d bytes too long for VR %s", len(val), vr)
		}
		hdr = binary.LittleEndian.AppendUint16(hdr, uint16(len(val)))
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err = w.Write(val)
	return err
}

// writeEncapsulated writes undefined length OB pixel data: an empty basic
// offset table, one item per fragment and the sequence delimiter.
func writeEncapsulated(w io.Writer, t Tag, enc Encapsulated) error {
	var b []byte
	b = binary.LittleEndian.AppendUint16(b, t.Group)
	b = binary.LittleEndian.AppendUint16(b, t.Element)
	b = append(b, "OB"...)
	b = append(b, 0, 0)
	b = binary.LittleEndian.AppendUint32(b, undefinedLength)
	item := func(data []byte) {
		b = binary.LittleEndian.AppendUint16(b, Item.Group)
		b = binary.LittleEndian.AppendUint16(b, Item.Element)
		b = binary.LittleEndian.AppendUint32(b, uint32(len(data)+len(data)%2))
		b = append(b, data...)
		if len(data)%2 != 0 {
			b = append(b, 0)
		}
	}
	item(nil)
	for _, f := range enc.Fragments {
		item(f)
	}
	b = binary.LittleEndian.AppendUint16(b, SequenceDelimitation.Group)
	b = binary.LittleEndian.AppendUint16(b, SequenceDelimitation.Element)
	b = binary.LittleEndian.AppendUint32(b, 0)
	_, err := w.Write(b)
	return err
}

// encodeValue returns the even length little endian encoding of v.
func encodeValue(v any, vr string) ([]byte, error) {
	pad := func(b []byte, c byte) []byte {
		if len(b)%2 != 0 {
			b = append(b, c)
		}
		return b
	}
	if v == nil {
		return []byte{}, nil
	}
	switch val := v.(type) {
	case string:
		if vr == "UI" {
			return pad([]byte(val), 0), nil
		}
		return pad([]byte(val), ' '), nil
	case []string:
		return pad([]byte(strings.Join(val, "\\")), ' '), nil
	case uint16:
		return binary.LittleEndian.AppendUint16(nil, val), nil
	case []uint16:
		b := make([]byte, 0, len(val)*2)
		for _, u := range val {
			b = binary.LittleEndian.AppendUint16(b, u)
		}
		return b, nil
	case uint32:
		return binary.LittleEndian.AppendUint32(nil, val), nil
	case int:
		switch vr {
		case "US", "SS":
			return binary.LittleEndian.AppendUint16(nil, uint16(val)), nil
		case "UL", "SL":
			return binary.LittleEndian.AppendUint32(nil, uint32(val)), nil
		case "IS":
			return pad([]byte(strconv.Itoa(val)), ' '), nil
		}
		return nil, fmt.Errorf("int for VR %s not implemented", vr)
	case float64:
		switch vr {
		case "DS":
			return pad([]byte(strconv.FormatFloat(val, 'g', -1, 64)), ' '), nil
		case "FD":
			return binary.LittleEndian.AppendUint64(nil, math.Float64bits(val)), nil
		case "FL":
			return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(val))), nil
		}
		return nil, fmt.Errorf("float64 for VR %s not implemented", vr)
	case []byte:
		return pad(slices.Clone(val), 0), nil
	}
	return nil, fmt.Errorf("unsupported value type %T for VR %s", v, vr)
}

// CountingWriter counts bytes written through it.
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	c.Count.Add(int64(n))
	return n, err
}
