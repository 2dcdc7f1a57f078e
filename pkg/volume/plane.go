package volume

import "fmt"

// Plane is one of the three orthogonal viewing planes.
type Plane int

const (
	Axial    Plane = iota // fixes dim 0 (z), yields Height x Width
	Coronal               // fixes dim 1 (y), yields Depth x Width
	Sagittal              // fixes dim 2 (x), yields Depth x Height
)

// Planes lists every plane in display order.
var Planes = []Plane{Axial, Coronal, Sagittal}

func (p Plane) String() string {
	switch p {
	case Axial:
		return "axial"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	}
	return fmt.Sprintf("plane(%d)", int(p))
}

// ParsePlane accepts the plane names used on the command line.
func ParsePlane(s string) (Plane, error) {
	switch s {
	case "axial", "a", "0":
		return Axial, nil
	case "coronal", "c", "1":
		return Coronal, nil
	case "sagittal", "s", "2":
		return Sagittal, nil
	}
	return 0, fmt.Errorf("unknown plane %q", s)
}

// PlaneLen returns how many slices exist along the plane's fixed axis.
func (g *Grid[T]) PlaneLen(p Plane) int {
	switch p {
	case Axial:
		return g.Depth
	case Coronal:
		return g.Height
	case Sagittal:
		return g.Width
	}
	return 0
}

// PlaneSize returns the 2D image size (width, height) of slices in the plane.
func (g *Grid[T]) PlaneSize(p Plane) (w, h int) {
	switch p {
	case Axial:
		return g.Width, g.Height
	case Coronal:
		return g.Width, g.Depth
	case Sagittal:
		return g.Height, g.Depth
	}
	return 0, 0
}

// Slice returns a copy of the 2D slice of plane p at index, row-major with
// the width reported by PlaneSize. Out of range indexes return nil.
func (g *Grid[T]) Slice(p Plane, index int) []T {
	if index < 0 || index >= g.PlaneLen(p) {
		return nil
	}
	switch p {
	case Axial:
		slice := make([]T, g.Width*g.Height)
		copy(slice, g.Axial(index))
		return slice

	case Coronal:
		slice := make([]T, g.Width*g.Depth)
		for z := 0; z < g.Depth; z++ {
			copy(slice[z*g.Width:(z+1)*g.Width], g.Data[g.index(0, index, z):g.index(0, index, z)+g.Width])
		}
		return slice

	case Sagittal:
		slice := make([]T, g.Height*g.Depth)
		for z := 0; z < g.Depth; z++ {
			for y := 0; y < g.Height; y++ {
				slice[z*g.Height+y] = g.Data[g.index(index, y, z)]
			}
		}
		return slice
	}
	return nil
}

// Flip mirrors the grid in place along dimension axis (0 = slices, 1 = rows, 2 = columns).
func (g *Grid[T]) Flip(axis int) {
	switch axis {
	case 0:
		n := g.Width * g.Height
		for lo, hi := 0, g.Depth-1; lo < hi; lo, hi = lo+1, hi-1 {
			a, b := g.Axial(lo), g.Axial(hi)
			for i := 0; i < n; i++ {
				a[i], b[i] = b[i], a[i]
			}
		}
	case 1:
		for z := 0; z < g.Depth; z++ {
			for lo, hi := 0, g.Height-1; lo < hi; lo, hi = lo+1, hi-1 {
				a := g.Data[g.index(0, lo, z) : g.index(0, lo, z)+g.Width]
				b := g.Data[g.index(0, hi, z) : g.index(0, hi, z)+g.Width]
				for i := range a {
					a[i], b[i] = b[i], a[i]
				}
			}
		}
	case 2:
		for z := 0; z < g.Depth; z++ {
			for y := 0; y < g.Height; y++ {
				row := g.Data[g.index(0, y, z) : g.index(0, y, z)+g.Width]
				for lo, hi := 0, len(row)-1; lo < hi; lo, hi = lo+1, hi-1 {
					row[lo], row[hi] = row[hi], row[lo]
				}
			}
		}
	}
}

// FlipAll applies every set flag in flips to g.
func (g *Grid[T]) FlipAll(flips [3]bool) {
	for axis, f := range flips {
		if f {
			g.Flip(axis)
		}
	}
}
