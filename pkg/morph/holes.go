package morph

import "github.com/jpfielding/ctlabels.go/pkg/volume"

// FillHoles closes enclosed background regions of a w x h slice using
// grayscale reconstruction by erosion. The seed equals the slice on its
// border and the slice maximum inside; erosion with a 3x3 footprint is
// repeated, never dropping below the slice, until stable. Border pixels are
// returned unchanged.
func FillHoles(slice []uint8, w, h int) []uint8 {
	out := make([]uint8, len(slice))
	copy(out, slice)
	if w < 3 || h < 3 {
		return out
	}
	var hi uint8
	for _, v := range slice {
		hi = max(hi, v)
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			out[y*w+x] = hi
		}
	}

	// forward and backward raster sweeps until nothing moves
	for changed := true; changed; {
		changed = false
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if sweep(out, slice, w, h, x, y) {
					changed = true
				}
			}
		}
		for y := h - 1; y >= 0; y-- {
			for x := w - 1; x >= 0; x-- {
				if sweep(out, slice, w, h, x, y) {
					changed = true
				}
			}
		}
	}
	return out
}

// sweep lowers marker[p] to the minimum of its 3x3 neighborhood, floored by
// the mask, and reports whether it changed.
func sweep(marker, mask []uint8, w, h, x, y int) bool {
	i := y*w + x
	lo := marker[i]
	for dy := -1; dy <= 1; dy++ {
		ny := y + dy
		if ny < 0 || ny >= h {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := x + dx
			if nx < 0 || nx >= w {
				continue
			}
			lo = min(lo, marker[ny*w+nx])
		}
	}
	lo = max(lo, mask[i])
	if lo < marker[i] {
		marker[i] = lo
		return true
	}
	return false
}

// FillHolesAt fills holes in axial slice z of m in place.
func FillHolesAt(m *volume.Mask, z int) {
	if z < 0 || z >= m.Depth {
		return
	}
	copy(m.Axial(z), FillHoles(m.Axial(z), m.Width, m.Height))
}

// FillHolesAll fills holes on every axial slice of m in place.
func FillHolesAll(m *volume.Mask) {
	for z := 0; z < m.Depth; z++ {
		FillHolesAt(m, z)
	}
}
