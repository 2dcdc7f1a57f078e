package render

import (
	"image"

	"github.com/disintegration/imaging"
)

// ZoomLevels are the magnifications the viewer steps through.
var ZoomLevels = []float64{1, 1.5, 2, 4, 8}

// ZoomIn returns the next larger level, staying at the largest.
func ZoomIn(cur float64) float64 {
	for _, z := range ZoomLevels {
		if z > cur {
			return z
		}
	}
	return ZoomLevels[len(ZoomLevels)-1]
}

// ZoomOut returns the next smaller level, staying at the smallest.
func ZoomOut(cur float64) float64 {
	for i := len(ZoomLevels) - 1; i >= 0; i-- {
		if ZoomLevels[i] < cur {
			return ZoomLevels[i]
		}
	}
	return ZoomLevels[0]
}

// Zoom scales img by factor with nearest neighbor sampling so voxel edges
// stay crisp.
func Zoom(img image.Image, factor float64) image.Image {
	if factor == 1 || factor <= 0 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	return imaging.Resize(img, w, h, imaging.NearestNeighbor)
}

// ToView maps a pointer position on a zoomed image back to slice pixels.
func ToView(x, y int, factor float64) (int, int) {
	if factor <= 0 {
		return x, y
	}
	return int(float64(x) / factor), int(float64(y) / factor)
}
