// Package window maps modality pixel values onto a display range using a
// VOI window (center and width).
package window

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWidth is returned when a window width is not positive.
var ErrInvalidWidth = errors.New("window width must be positive")

// Level is a VOI window.
type Level struct {
	Center      float64
	Width       float64
	Explanation string
}

func (l Level) String() string {
	return fmt.Sprintf("%s (C=%g, W=%g)", l.Explanation, l.Center, l.Width)
}

// Validate rejects non-positive widths.
func (l Level) Validate() error {
	if l.Width <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidWidth, l.Width)
	}
	return nil
}

// Presets are the named windows offered for CT.
var Presets = []Level{
	{Center: 50, Width: 400, Explanation: "Tissue 1"},
	{Center: 50, Width: 250, Explanation: "Tissue 2"},
	{Center: 30, Width: 150, Explanation: "Tissue 3"},
	{Center: -600, Width: 1500, Explanation: "Lungs"},
	{Center: 400, Width: 1800, Explanation: "Bone"},
}

// Default is the window applied on load.
var Default = Presets[0]

// Preset finds a named preset, case insensitively.
func Preset(name string) (Level, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Explanation, name) {
			return p, true
		}
	}
	return Level{}, false
}

// Custom names a center and width, taking the preset name when they match
// one.
func Custom(center, width float64) Level {
	for _, p := range Presets {
		if p.Center == center && p.Width == width {
			return p
		}
	}
	return Level{Center: center, Width: width, Explanation: "Custom"}
}

// Drag shifts the window by a pointer delta: dx widens, dy raises the center.
// The width never drops below 1.
func (l Level) Drag(dx, dy float64) Level {
	l.Width += dx
	if l.Width < 1 {
		l.Width = 1
	}
	l.Center += dy
	l.Explanation = "Custom"
	return l
}

// Apply windows raw modality values into [0, 2^bits-1].
//
// Each value v is mapped to clamp((v-C+W/2)/W, 0, 1). With invert set
// (MONOCHROME1) the result is mirrored around its maximum. The output is then
// shifted so its minimum is zero and normalized by its maximum, skipping the
// division when the maximum is zero, and finally scaled to the bit depth.
func Apply(raw []float32, l Level, bits int, invert bool) ([]uint16, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if bits <= 0 || bits > 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", bits)
	}
	if len(raw) == 0 {
		return []uint16{}, nil
	}
	v := make([]float64, len(raw))
	lo, hi := 1.0, 0.0
	for i, x := range raw {
		n := (float64(x) - l.Center + l.Width/2) / l.Width
		if n < 0 {
			n = 0
		} else if n > 1 {
			n = 1
		}
		v[i] = n
		lo, hi = min(lo, n), max(hi, n)
	}
	if invert {
		for i := range v {
			v[i] = hi - v[i]
		}
		lo, hi = 0, hi-lo
	}
	span := hi - lo
	scale := float64(uint32(1)<<bits - 1)
	out := make([]uint16, len(v))
	for i, n := range v {
		n -= lo
		if span > 0 {
			n /= span
		}
		out[i] = uint16(n * scale)
	}
	return out, nil
}
