// Package brush defines the stamps used to paint masks.
package brush

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned for a size or shape without a stamp.
var ErrUnsupported = errors.New("unsupported brush")

// Shape of a brush footprint.
type Shape int

const (
	Circle Shape = iota
	Square
)

func (s Shape) String() string {
	switch s {
	case Circle:
		return "circle"
	case Square:
		return "square"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape maps a name onto a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "circle":
		return Circle, nil
	case "square":
		return Square, nil
	}
	return 0, fmt.Errorf("%w: shape %q", ErrUnsupported, s)
}

// Sizes lists the supported brush sizes in ascending order.
var Sizes = []int{1, 3, 5, 7}

// DefaultSize and DefaultShape are used until the user picks another brush.
const (
	DefaultSize  = 7
	DefaultShape = Circle
)

// Stamp is a size x size binary footprint centered on the pointer.
type Stamp struct {
	Size  int
	Shape Shape
	Low   int // cells left/above the center
	High  int // cells right/below the center, counting the center
	cells []bool
}

// At reports whether cell (col, row) of the stamp is set.
func (s Stamp) At(col, row int) bool {
	return s.cells[row*s.Size+col]
}

// Box returns the half-open pixel range [x0,x1) x [y0,y1) the stamp covers
// when centered on (x, y).
func (s Stamp) Box(x, y int) (x0, y0, x1, y1 int) {
	return x - s.Low, y - s.Low, x + s.High, y + s.High
}

// Count returns the number of set cells.
func (s Stamp) Count() int {
	n := 0
	for _, c := range s.cells {
		if c {
			n++
		}
	}
	return n
}

var circles = map[int][]string{
	1: {"1"},
	3: {
		"010",
		"111",
		"010",
	},
	5: {
		"00100",
		"01110",
		"11111",
		"01110",
		"00100",
	},
	7: {
		"0011100",
		"0111110",
		"1111111",
		"1111111",
		"1111111",
		"0111110",
		"0011100",
	},
}

// Lookup returns the stamp for a size and shape.
func Lookup(size int, shape Shape) (Stamp, error) {
	rows, ok := circles[size]
	if !ok {
		return Stamp{}, fmt.Errorf("%w: size %d", ErrUnsupported, size)
	}
	st := Stamp{
		Size:  size,
		Shape: shape,
		Low:   size / 2,
		High:  size - size/2,
		cells: make([]bool, size*size),
	}
	switch shape {
	case Circle:
		for r, row := range rows {
			for c, ch := range row {
				st.cells[r*size+c] = ch == '1'
			}
		}
	case Square:
		for i := range st.cells {
			st.cells[i] = true
		}
	default:
		return Stamp{}, fmt.Errorf("%w: shape %v", ErrUnsupported, shape)
	}
	return st, nil
}

// Default returns the size 7 circle.
func Default() Stamp {
	st, _ := Lookup(DefaultSize, DefaultShape)
	return st
}

// Paint ORs the stamp centered at (x, y) into a w x h plane, clipping cells
// that fall outside.
func (s Stamp) Paint(plane []uint8, w, h, x, y int) {
	x0, y0, _, _ := s.Box(x, y)
	for r := 0; r < s.Size; r++ {
		py := y0 + r
		if py < 0 || py >= h {
			continue
		}
		for c := 0; c < s.Size; c++ {
			px := x0 + c
			if px < 0 || px >= w || !s.At(c, r) {
				continue
			}
			plane[py*w+px] = 1
		}
	}
}
