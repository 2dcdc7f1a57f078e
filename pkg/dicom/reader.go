package dicom

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
)

const undefinedLength = 0xFFFFFFFF

// Reader decodes a Part 10 stream.
type Reader struct {
	r              *bufio.Reader
	transferSyntax string
	explicitVR     bool
}

// NewReader wraps r for decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), explicitVR: true}
}

// Parse reads a complete DICOM stream.
func Parse(r io.Reader) (*Dataset, error) {
	return NewReader(r).ReadDataset()
}

// ReadFile parses a DICOM file from disk. Directories, permission problems
// and non-DICOM content are reported with distinct errors.
func ReadFile(path string) (*Dataset, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermission, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermission, path)
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset reads the preamble, the file meta group and the data set.
func (r *Reader) ReadDataset() (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}

	var head [132]byte
	if _, err := io.ReadFull(r.r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: short preamble", ErrNotDICOM)
	}
	if string(head[128:]) != "DICM" {
		return nil, fmt.Errorf("%w: missing DICM magic", ErrNotDICOM)
	}

	// group 0002 is always explicit VR little endian
	r.explicitVR = true
	for {
		t, err := r.readTag()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tag: %w", err)
		}
		if t.Group != 0x0002 && r.transferSyntax == "" {
			r.transferSyntax = ImplicitVRLittleEndian
		}
		if t.Group != 0x0002 {
			if err := r.applyTransferSyntax(); err != nil {
				return nil, err
			}
		}
		elem, err := r.readElement(t)
		if err != nil {
			return nil, fmt.Errorf("reading element %v: %w", t, err)
		}
		if elem == nil {
			continue
		}
		ds.Elements[t] = elem
		if t == TransferSyntaxUID {
			if s, ok := elem.Value.(string); ok {
				r.transferSyntax = s
			}
		}
	}
	return ds, nil
}

func (r *Reader) applyTransferSyntax() error {
	switch r.transferSyntax {
	case ImplicitVRLittleEndian:
		r.explicitVR = false
	case ExplicitVRLittleEndian, RLELossless:
		r.explicitVR = true
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTransferSyntax, r.transferSyntax)
	}
	return nil
}

func (r *Reader) readTag() (Tag, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Tag{}, fmt.Errorf("truncated tag: %w", err)
		}
		return Tag{}, err
	}
	return Tag{
		Group:   binary.LittleEndian.Uint16(b[0:]),
		Element: binary.LittleEndian.Uint16(b[2:]),
	}, nil
}

func (r *Reader) readUint16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (r *Reader) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// readHeader reads the VR (when explicit) and value length after a tag.
func (r *Reader) readHeader(t Tag) (string, uint32, error) {
	if !r.explicitVR {
		vl, err := r.readUint32()
		return vrFor(t), vl, err
	}
	var vrb [2]byte
	if _, err := io.ReadFull(r.r, vrb[:]); err != nil {
		return "", 0, err
	}
	vr := string(vrb[:])
	if isLongVR(vr) {
		if _, err := r.readUint16(); err != nil {
			return "", 0, err
		}
		vl, err := r.readUint32()
		return vr, vl, err
	}
	vl, err := r.readUint16()
	return vr, uint32(vl), err
}

// readElement reads one element. Sequences are skipped and yield nil.
func (r *Reader) readElement(t Tag) (*Element, error) {
	vr, vl, err := r.readHeader(t)
	if err != nil {
		return nil, err
	}
	if vl == undefinedLength {
		if t == PixelData {
			if r.transferSyntax != RLELossless {
				return nil, fmt.Errorf("%w: encapsulated pixel data in %s", ErrUnsupportedTransferSyntax, r.transferSyntax)
			}
			return r.readFragments(t, vr)
		}
		return nil, r.skipUndefined()
	}
	if vr == "SQ" {
		_, err := io.CopyN(io.Discard, r.r, int64(vl))
		return nil, err
	}
	data := make([]byte, vl)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, err
	}
	return &Element{Tag: t, VR: vr, Value: parseValue(vr, data)}, nil
}

// readFragments reads the items of encapsulated pixel data up to the
// sequence delimiter, dropping the leading basic offset table.
func (r *Reader) readFragments(t Tag, vr string) (*Element, error) {
	var frags [][]byte
	for n := 0; ; n++ {
		it, err := r.readTag()
		if err != nil {
			return nil, fmt.Errorf("reading fragment tag: %w", err)
		}
		l, err := r.readUint32()
		if err != nil {
			return nil, fmt.Errorf("reading fragment length: %w", err)
		}
		switch {
		case it == SequenceDelimitation:
			return &Element{Tag: t, VR: vr, Value: Encapsulated{Fragments: frags}}, nil
		case it != Item:
			return nil, fmt.Errorf("%w: unexpected %v in encapsulated pixel data", ErrCorruptPixelData, it)
		case l == undefinedLength:
			return nil, fmt.Errorf("%w: fragment of undefined length", ErrCorruptPixelData)
		}
		data := make([]byte, l)
		if _, err := io.ReadFull(r.r, data); err != nil {
			return nil, fmt.Errorf("reading fragment %d: %w", n, err)
		}
		if n > 0 {
			frags = append(frags, data)
		}
	}
}

// skipUndefined discards a sequence of undefined length, including nested
// items and sequences, up to its delimitation item.
func (r *Reader) skipUndefined() error {
	for {
		t, err := r.readTag()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading sequence item tag: %w", err)
		}
		if t.Group == 0xFFFE {
			l, err := r.readUint32()
			if err != nil {
				return fmt.Errorf("reading delimiter length: %w", err)
			}
			switch t {
			case SequenceDelimitation:
				return nil
			case Item:
				if l != undefinedLength && l > 0 {
					if _, err := io.CopyN(io.Discard, r.r, int64(l)); err != nil {
						return fmt.Errorf("skipping item: %w", err)
					}
				}
			}
			continue
		}
		_, vl, err := r.readHeader(t)
		if err != nil {
			return err
		}
		if vl == undefinedLength {
			if err := r.skipUndefined(); err != nil {
				return err
			}
			continue
		}
		if _, err := io.CopyN(io.Discard, r.r, int64(vl)); err != nil {
			return fmt.Errorf("skipping element value: %w", err)
		}
	}
}

// isLongVR reports whether the VR uses a 4-byte length after 2 reserved bytes.
func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OV", "OW", "SQ", "SV", "UC", "UR", "UT", "UN", "UV":
		return true
	}
	return false
}

// parseValue converts raw bytes into a typed value based on the VR.
func parseValue(vr string, data []byte) any {
	switch vr {
	case "AE", "AS", "CS", "DA", "DS", "DT", "IS", "LO", "LT", "PN", "SH", "ST", "TM", "UC", "UI", "UR", "UT":
		return trimString(data)
	case "US":
		if len(data) == 2 {
			return binary.LittleEndian.Uint16(data)
		}
		values := make([]uint16, len(data)/2)
		for i := range values {
			values[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return values
	case "UL":
		if len(data) == 4 {
			return binary.LittleEndian.Uint32(data)
		}
		values := make([]uint32, len(data)/4)
		for i := range values {
			values[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return values
	case "SS":
		if len(data) == 2 {
			return int16(binary.LittleEndian.Uint16(data))
		}
	case "SL":
		if len(data) == 4 {
			return int32(binary.LittleEndian.Uint32(data))
		}
	case "FL":
		if len(data) == 4 {
			return math.Float32frombits(binary.LittleEndian.Uint32(data))
		}
	case "FD":
		if len(data) == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(data))
		}
	}
	return data
}

// trimString drops trailing NUL and space padding.
func trimString(data []byte) string {
	s := string(data)
	for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
