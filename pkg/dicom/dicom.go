// Package dicom reads and writes the subset of DICOM Part 10 needed for CT
// series: little endian transfer syntaxes with native or RLE Lossless pixel
// data.
//
// Basic usage:
//
//	ds, err := dicom.ReadFile("/path/to/slice.dcm")
//	if err != nil {
//		return err
//	}
//	frames, err := ds.Frames() // modality corrected values, one slice per frame
package dicom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotDICOM                  = errors.New("invalid dicom")
	ErrIsDirectory               = errors.New("folder contains another folder")
	ErrPermission                = errors.New("permission denied")
	ErrUnsupportedTransferSyntax = errors.New("unsupported transfer syntax")
	ErrNoPixelData               = errors.New("no pixel data")
	ErrCorruptPixelData          = errors.New("corrupt pixel data")
)

// Transfer syntaxes understood by the reader and writer.
const (
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	RLELossless            = "1.2.840.10008.1.2.5"
)

// CTImageStorage is the SOP class of written slices.
const CTImageStorage = "1.2.840.10008.5.1.4.1.1.2"

// Photometric interpretations for grayscale images.
const (
	Monochrome1 = "MONOCHROME1"
	Monochrome2 = "MONOCHROME2"
)

// Dataset is a flat collection of elements; sequences are not retained.
type Dataset struct {
	Elements map[Tag]*Element
}

// Element is a single decoded element.
type Element struct {
	Tag   Tag
	VR    string
	Value any
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{Elements: map[Tag]*Element{}}
}

// Put stores a value under t.
func (ds *Dataset) Put(t Tag, vr string, value any) {
	ds.Elements[t] = &Element{Tag: t, VR: vr, Value: value}
}

// Find returns the element for t.
func (ds *Dataset) Find(t Tag) (*Element, bool) {
	e, ok := ds.Elements[t]
	return e, ok
}

// String returns an element's text value, or "" when absent.
func (ds *Dataset) String(t Tag) string {
	e, ok := ds.Find(t)
	if !ok {
		return ""
	}
	switch v := e.Value.(type) {
	case string:
		return v
	case []byte:
		return trimString(v)
	}
	return fmt.Sprint(e.Value)
}

// Int returns an integer value and whether it was present and numeric.
func (ds *Dataset) Int(t Tag) (int, bool) {
	e, ok := ds.Find(t)
	if !ok {
		return 0, false
	}
	switch v := e.Value.(type) {
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case []uint16:
		if len(v) > 0 {
			return int(v[0]), true
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(first(v)))
		return n, err == nil
	case []byte:
		switch len(v) {
		case 2:
			return int(uint16(v[0]) | uint16(v[1])<<8), true
		case 4:
			return int(uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24), true
		}
	}
	return 0, false
}

// Float returns the first value of a decimal string element.
func (ds *Dataset) Float(t Tag) (float64, bool) {
	e, ok := ds.Find(t)
	if !ok {
		return 0, false
	}
	switch v := e.Value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(first(ds.String(t))), 64)
	return f, err == nil
}

// first returns the first value of a backslash separated multi-value.
func first(s string) string {
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		return s[:i]
	}
	return s
}

// PatientID returns (0010,0020).
func (ds *Dataset) PatientID() string { return ds.String(PatientID) }

// StudyID returns (0020,0010).
func (ds *Dataset) StudyID() string { return ds.String(StudyID) }

// StudyInstanceUID returns (0020,000D).
func (ds *Dataset) StudyInstanceUID() string { return ds.String(StudyInstanceUID) }

// TransferSyntax returns (0002,0010), implicit VR little endian when absent.
func (ds *Dataset) TransferSyntax() string {
	if s := ds.String(TransferSyntaxUID); s != "" {
		return s
	}
	return ImplicitVRLittleEndian
}

// Rows returns the image height.
func (ds *Dataset) Rows() int {
	n, _ := ds.Int(Rows)
	return n
}

// Columns returns the image width.
func (ds *Dataset) Columns() int {
	n, _ := ds.Int(Columns)
	return n
}

// BitsAllocated defaults to 16.
func (ds *Dataset) BitsAllocated() int {
	if n, ok := ds.Int(BitsAllocated); ok && n > 0 {
		return n
	}
	return 16
}

// PixelRepresentation is 0 for unsigned and 1 for signed samples.
func (ds *Dataset) PixelRepresentation() int {
	n, _ := ds.Int(PixelRepresentation)
	return n
}

// NumberOfFrames defaults to 1.
func (ds *Dataset) NumberOfFrames() int {
	if n, ok := ds.Int(NumberOfFrames); ok && n > 0 {
		return n
	}
	return 1
}

// InstanceNumber returns (0020,0013), 0 when absent.
func (ds *Dataset) InstanceNumber() int {
	n, _ := ds.Int(InstanceNumber)
	return n
}

// Photometric returns the photometric interpretation, MONOCHROME2 when absent.
func (ds *Dataset) Photometric() string {
	if s := strings.TrimSpace(ds.String(PhotometricInterpretation)); s != "" {
		return s
	}
	return Monochrome2
}

// Inverted reports whether low values display bright.
func (ds *Dataset) Inverted() bool {
	return ds.Photometric() == Monochrome1
}

// Rescale returns the modality LUT slope and intercept (defaults 1 and 0).
func (ds *Dataset) Rescale() (slope, intercept float64) {
	slope, intercept = 1, 0
	if v, ok := ds.Float(RescaleSlope); ok && v != 0 {
		slope = v
	}
	if v, ok := ds.Float(RescaleIntercept); ok {
		intercept = v
	}
	return
}

// Window returns the stored VOI window, if any.
func (ds *Dataset) Window() (center, width float64, ok bool) {
	c, okc := ds.Float(WindowCenter)
	w, okw := ds.Float(WindowWidth)
	return c, w, okc && okw && w > 0
}
