// Package volume holds dense 3D grids: CT intensity volumes and label masks.
//
// Data is stored slice by slice, row-major inside a slice, so the voxel at
// (x, y, z) lives at z*Width*Height + y*Width + x. Dimension 0 of the grid is
// the slice axis (z), dimension 1 rows (y), dimension 2 columns (x).
package volume

import "fmt"

// Voxel is the set of element types a grid can hold.
type Voxel interface {
	~uint8 | ~uint16
}

// Grid is a 3D array of voxels.
type Grid[T Voxel] struct {
	Width  int // X, columns
	Height int // Y, rows
	Depth  int // Z, slices

	Data []T
}

// Volume is a windowed CT volume.
type Volume = Grid[uint16]

// Mask is a per-label annotation grid. Zero is unlabeled, anything else is labeled.
type Mask = Grid[uint8]

// New allocates a zeroed grid.
func New[T Voxel](width, height, depth int) *Grid[T] {
	return &Grid[T]{
		Width:  width,
		Height: height,
		Depth:  depth,
		Data:   make([]T, width*height*depth),
	}
}

// NewVolume allocates a zeroed volume.
func NewVolume(width, height, depth int) *Volume {
	return New[uint16](width, height, depth)
}

// NewMask allocates a zeroed mask.
func NewMask(width, height, depth int) *Mask {
	return New[uint8](width, height, depth)
}

// FromSlices stacks equally sized axial slices into a grid.
func FromSlices[T Voxel](width, height int, slices [][]T) (*Grid[T], error) {
	g := New[T](width, height, len(slices))
	n := width * height
	for z, s := range slices {
		if len(s) != n {
			return nil, fmt.Errorf("slice %d has %d voxels, want %d", z, len(s), n)
		}
		copy(g.Data[z*n:], s)
	}
	return g, nil
}

// Shape is (depth, height, width).
type Shape [3]int

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s[0], s[1], s[2])
}

// Shape returns (depth, height, width).
func (g *Grid[T]) Shape() Shape {
	return Shape{g.Depth, g.Height, g.Width}
}

// SameShape reports whether both grids have identical dimensions.
func SameShape[A, B Voxel](a *Grid[A], b *Grid[B]) bool {
	return a != nil && b != nil && a.Shape() == b.Shape()
}

// In reports whether (x, y, z) lies inside the grid.
func (g *Grid[T]) In(x, y, z int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height && z >= 0 && z < g.Depth
}

func (g *Grid[T]) index(x, y, z int) int {
	return z*g.Width*g.Height + y*g.Width + x
}

// Get returns the voxel value at (x, y, z), zero when out of bounds.
func (g *Grid[T]) Get(x, y, z int) T {
	if !g.In(x, y, z) {
		return 0
	}
	return g.Data[g.index(x, y, z)]
}

// Set sets the voxel value at (x, y, z); out of bounds writes are ignored.
func (g *Grid[T]) Set(x, y, z int, val T) {
	if !g.In(x, y, z) {
		return
	}
	g.Data[g.index(x, y, z)] = val
}

// Axial returns the z-th axial slice without copying.
func (g *Grid[T]) Axial(z int) []T {
	n := g.Width * g.Height
	return g.Data[z*n : (z+1)*n]
}

// Clone returns a deep copy.
func (g *Grid[T]) Clone() *Grid[T] {
	c := &Grid[T]{Width: g.Width, Height: g.Height, Depth: g.Depth, Data: make([]T, len(g.Data))}
	copy(c.Data, g.Data)
	return c
}

// Max returns the largest voxel value.
func (g *Grid[T]) Max() T {
	var m T
	for _, v := range g.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// MinMax returns the minimum and maximum voxel values.
func (g *Grid[T]) MinMax() (min, max T) {
	if len(g.Data) == 0 {
		return 0, 0
	}
	min, max = g.Data[0], g.Data[0]
	for _, val := range g.Data {
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}
	return
}

// Any reports whether any voxel is non-zero.
func (g *Grid[T]) Any() bool {
	for _, v := range g.Data {
		if v != 0 {
			return true
		}
	}
	return false
}
