package dicom

import "fmt"

// Tag is a DICOM (group, element) pair.
type Tag struct {
	Group   uint16
	Element uint16
}

func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// Less orders tags the way they must appear in a stream.
func (t Tag) Less(o Tag) bool {
	if t.Group != o.Group {
		return t.Group < o.Group
	}
	return t.Element < o.Element
}

// Tags read or written by this package.
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}

	SOPClassUID       = Tag{0x0008, 0x0016}
	SOPInstanceUID    = Tag{0x0008, 0x0018}
	Modality          = Tag{0x0008, 0x0060}
	PatientName       = Tag{0x0010, 0x0010}
	PatientID         = Tag{0x0010, 0x0020}
	StudyInstanceUID  = Tag{0x0020, 0x000D}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	StudyID           = Tag{0x0020, 0x0010}
	SeriesNumber      = Tag{0x0020, 0x0011}
	InstanceNumber    = Tag{0x0020, 0x0013}
	SliceLocation     = Tag{0x0020, 0x1041}

	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	NumberOfFrames            = Tag{0x0028, 0x0008}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	PixelSpacing              = Tag{0x0028, 0x0030}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	WindowCenter              = Tag{0x0028, 0x1050}
	WindowWidth               = Tag{0x0028, 0x1051}
	RescaleIntercept          = Tag{0x0028, 0x1052}
	RescaleSlope              = Tag{0x0028, 0x1053}

	PixelData = Tag{0x7FE0, 0x0010}

	Item                 = Tag{0xFFFE, 0xE000}
	ItemDelimitation     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitation = Tag{0xFFFE, 0xE0DD}
)

// implicitVR is the dictionary used when the transfer syntax carries no VRs.
var implicitVR = map[Tag]string{
	SOPClassUID:               "UI",
	SOPInstanceUID:            "UI",
	Modality:                  "CS",
	PatientName:               "PN",
	PatientID:                 "LO",
	StudyInstanceUID:          "UI",
	SeriesInstanceUID:         "UI",
	StudyID:                   "SH",
	SeriesNumber:              "IS",
	InstanceNumber:            "IS",
	SliceLocation:             "DS",
	SamplesPerPixel:           "US",
	PhotometricInterpretation: "CS",
	NumberOfFrames:            "IS",
	Rows:                      "US",
	Columns:                   "US",
	PixelSpacing:              "DS",
	BitsAllocated:             "US",
	BitsStored:                "US",
	HighBit:                   "US",
	PixelRepresentation:       "US",
	WindowCenter:              "DS",
	WindowWidth:               "DS",
	RescaleIntercept:          "DS",
	RescaleSlope:              "DS",
	PixelData:                 "OW",
}

func vrFor(t Tag) string {
	if vr, ok := implicitVR[t]; ok {
		return vr
	}
	if t.Group == 0x0002 {
		return "UL"
	}
	return "UN"
}
