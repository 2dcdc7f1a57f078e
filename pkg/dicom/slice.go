package dicom

import "encoding/binary"

// Slice describes one CT image to be written.
type Slice struct {
	PatientID    string
	StudyID      string
	StudyUID     string
	SeriesUID    string
	Instance     int
	Rows         int
	Columns      int
	Pixels       []int16 // stored values, row-major
	Slope        float64
	Intercept    float64
	WindowCenter float64
	WindowWidth  float64
	Photometric  string
	RLE          bool // store pixel data RLE Lossless compressed
}

// Dataset builds a CT image dataset with signed 16-bit pixel data.
func (s Slice) Dataset() *Dataset {
	ds := NewDataset()
	if s.Slope == 0 {
		s.Slope = 1
	}
	if s.Photometric == "" {
		s.Photometric = Monochrome2
	}
	ds.Put(SOPClassUID, "UI", CTImageStorage)
	ds.Put(SOPInstanceUID, "UI", NewUID())
	ds.Put(Modality, "CS", "CT")
	ds.Put(PatientID, "LO", s.PatientID)
	ds.Put(StudyID, "SH", s.StudyID)
	ds.Put(StudyInstanceUID, "UI", s.StudyUID)
	ds.Put(SeriesInstanceUID, "UI", s.SeriesUID)
	ds.Put(InstanceNumber, "IS", s.Instance)
	ds.Put(SamplesPerPixel, "US", uint16(1))
	ds.Put(PhotometricInterpretation, "CS", s.Photometric)
	ds.Put(Rows, "US", uint16(s.Rows))
	ds.Put(Columns, "US", uint16(s.Columns))
	ds.Put(BitsAllocated, "US", uint16(16))
	ds.Put(BitsStored, "US", uint16(16))
	ds.Put(HighBit, "US", uint16(15))
	ds.Put(PixelRepresentation, "US", uint16(1))
	ds.Put(RescaleSlope, "DS", s.Slope)
	ds.Put(RescaleIntercept, "DS", s.Intercept)
	if s.WindowWidth > 0 {
		ds.Put(WindowCenter, "DS", s.WindowCenter)
		ds.Put(WindowWidth, "DS", s.WindowWidth)
	}
	px := make([]byte, 0, len(s.Pixels)*2)
	for _, p := range s.Pixels {
		px = binary.LittleEndian.AppendUint16(px, uint16(p))
	}
	if s.RLE {
		ds.Put(PixelData, "OB", Encapsulated{Fragments: [][]byte{encodeRLE(px, len(s.Pixels), 2)}})
	} else {
		ds.Put(PixelData, "OW", px)
	}
	return ds
}
