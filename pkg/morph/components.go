// Package morph cleans up label masks: it keeps the dominant 3D component
// and closes holes inside axial slices.
package morph

import "github.com/jpfielding/ctlabels.go/pkg/volume"

// Component summarizes one connected region.
type Component struct {
	Label int
	Size  int
	Seed  int // first voxel index in scan order
}

// offsets26 are the neighbor displacements of the 3x3x3 cube.
var offsets26 = func() [][3]int {
	var out [][3]int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 || dz != 0 {
					out = append(out, [3]int{dx, dy, dz})
				}
			}
		}
	}
	return out
}()

// Components labels the 26-connected regions of non-zero voxels. The
// returned slice holds the component label (1-based) of each voxel, 0 for
// background. Components are numbered in scan order.
func Components(m *volume.Mask) ([]int32, []Component) {
	w, h, d := m.Width, m.Height, m.Depth
	plane := w * h
	lbl := make([]int32, len(m.Data))
	var comps []Component
	var queue []int

	for start, v := range m.Data {
		if v == 0 || lbl[start] != 0 {
			continue
		}
		id := int32(len(comps) + 1)
		c := Component{Label: int(id), Seed: start}
		lbl[start] = id
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			ci := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			c.Size++
			cz, rem := ci/plane, ci%plane
			cy, cx := rem/w, rem%w
			for _, o := range offsets26 {
				nx, ny, nz := cx+o[0], cy+o[1], cz+o[2]
				if nx < 0 || nx >= w || ny < 0 || ny >= h || nz < 0 || nz >= d {
					continue
				}
				ni := nz*plane + ny*w + nx
				if m.Data[ni] == 0 || lbl[ni] != 0 {
					continue
				}
				lbl[ni] = id
				queue = append(queue, ni)
			}
		}
		comps = append(comps, c)
	}
	return lbl, comps
}

// RemoveOutliers keeps only the largest 26-connected component of m and
// returns it as a new 0/255 mask. Ties go to the component found first in
// scan order. A mask with no foreground comes back as zeros.
func RemoveOutliers(m *volume.Mask) *volume.Mask {
	out := volume.NewMask(m.Width, m.Height, m.Depth)
	lbl, comps := Components(m)
	if len(comps) == 0 {
		return out
	}
	best := comps[0]
	for _, c := range comps[1:] {
		if c.Size > best.Size {
			best = c
		}
	}
	keep := int32(best.Label)
	for i, l := range lbl {
		if l == keep {
			out.Data[i] = 255
		}
	}
	return out
}
