package dicom

import (
	"fmt"

	sdicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// HeaderField is one header element as decoded by suyashkumar/dicom.
type HeaderField struct {
	Tag   string
	Name  string
	VR    string
	Value string
}

// ReadHeader lists the elements of a Part 10 file using an independent
// parser. Pixel data is skipped.
func ReadHeader(path string) ([]HeaderField, error) {
	ds, err := sdicom.ParseFile(path, nil, sdicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]HeaderField, 0, len(ds.Elements))
	for _, e := range ds.Elements {
		f := HeaderField{
			Tag:   e.Tag.String(),
			VR:    e.RawValueRepresentation,
			Value: e.Value.String(),
		}
		if info, err := tag.Find(e.Tag); err == nil {
			f.Name = info.Name
		}
		out = append(out, f)
	}
	return out, nil
}
