package series

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/jpfielding/ctlabels.go/pkg/dicom"
)

// Phantom describes a synthetic CT study: air around a water cylinder with a
// dense sphere in the middle.
type Phantom struct {
	PatientID string
	StudyID   string
	Width     int
	Height    int
	Slices    int
	RLE       bool
}

// HU returns the phantom's attenuation at a voxel.
func (p Phantom) HU(x, y, z int) int16 {
	cx, cy, cz := float64(p.Width)/2, float64(p.Height)/2, float64(p.Slices)/2
	dx, dy, dz := float64(x)-cx, float64(y)-cy, float64(z)-cz
	body := math.Min(cx, cy) * 0.8
	switch {
	case math.Hypot(dx, dy) > body:
		return -1000
	case math.Sqrt(dx*dx+dy*dy+dz*dz) < body/3:
		return 400
	}
	return 40
}

// Write stores the phantom as one DICOM file per slice in dir and returns
// the file paths in slice order.
func (p Phantom) Write(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	studyUID, seriesUID := dicom.NewUID(), dicom.NewUID()
	var files []string
	for z := 0; z < p.Slices; z++ {
		px := make([]int16, p.Width*p.Height)
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				// stored with a -1024 intercept
				px[y*p.Width+x] = p.HU(x, y, z) + 1024
			}
		}
		s := dicom.Slice{
			PatientID:    p.PatientID,
			StudyID:      p.StudyID,
			StudyUID:     studyUID,
			SeriesUID:    seriesUID,
			Instance:     z + 1,
			Rows:         p.Height,
			Columns:      p.Width,
			Pixels:       px,
			Slope:        1,
			Intercept:    -1024,
			WindowCenter: 40,
			WindowWidth:  400,
			RLE:          p.RLE,
		}
		fn := filepath.Join(dir, fmt.Sprintf("slice_%04d.dcm", z))
		if _, err := dicom.WriteFile(fn, s.Dataset()); err != nil {
			return nil, fmt.Errorf("writing %s: %w", fn, err)
		}
		files = append(files, fn)
	}
	return files, nil
}
