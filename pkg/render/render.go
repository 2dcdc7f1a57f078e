// Package render turns volume slices and label masks into display rasters.
package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/store"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"golang.org/x/image/draw"
)

// ErrNoVolume is returned when there is nothing to render.
var ErrNoVolume = errors.New("no volume to render")

// DefaultOpacity is the overlay alpha used until changed.
const DefaultOpacity = 128

// Layer is one label's contribution to the overlay.
type Layer struct {
	Label   labels.Label
	Mask    *volume.Mask // nil when absent
	Visible bool
}

// Preview is an uncommitted gesture drawn on top of its label's mask.
type Preview struct {
	Label    string
	Slice    int     // axial index the gesture is frozen on
	Delta    []uint8 // axial plane of 0/1 stamps
	Polarity int     // +1 draw, -1 erase
}

// Scene collects everything a composite depends on.
type Scene struct {
	Volume    *volume.Volume
	Bits      int // significant bits of Volume values
	Layers    []Layer
	Opacity   uint8
	ShowMasks bool
	Preview   *Preview
}

// Layers builds render layers from the store entries in insertion order.
func Layers(entries []store.Entry, hidden map[string]bool) []Layer {
	out := make([]Layer, len(entries))
	for i, e := range entries {
		out[i] = Layer{Label: e.Label, Mask: e.Slot.Mask(), Visible: !hidden[e.Label.Name]}
	}
	return out
}

// ClampIndex resets an out of range slice index to 0.
func ClampIndex(v *volume.Volume, p volume.Plane, index int) int {
	if index < 0 || index >= v.PlaneLen(p) {
		return 0
	}
	return index
}

// Gray converts a slice of the volume into an opaque RGBA image.
func Gray(vals []uint16, w, h, bits int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if bits <= 0 || bits > 16 {
		bits = 16
	}
	full := uint32(1)<<bits - 1
	for i, v := range vals {
		g := uint8(uint32(v) * 255 / full)
		o := i * 4
		img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = g, g, g, 0xff
	}
	return img
}

// Overlay paints every visible layer's on pixels with its color at the given
// opacity. Later layers overwrite earlier ones; there is no blending between
// labels.
func (s *Scene) Overlay(p volume.Plane, index int) *image.NRGBA {
	w, h := s.Volume.PlaneSize(p)
	ov := image.NewNRGBA(image.Rect(0, 0, w, h))
	if !s.ShowMasks {
		return ov
	}
	for _, l := range s.Layers {
		if l.Mask == nil || !l.Visible {
			continue
		}
		plane := l.Mask.Slice(p, index)
		if s.Preview != nil && p == volume.Axial && index == s.Preview.Slice && s.Preview.Label == l.Label.Name {
			plane = applyDelta(plane, s.Preview.Delta, s.Preview.Polarity)
		}
		c := color.NRGBA{R: l.Label.Color.R, G: l.Label.Color.G, B: l.Label.Color.B, A: s.Opacity}
		for i, v := range plane {
			if v > 0 {
				ov.SetNRGBA(i%w, i/w, c)
			}
		}
	}
	return ov
}

// applyDelta previews mask + delta*255*polarity clamped to [0,255].
func applyDelta(plane, delta []uint8, polarity int) []uint8 {
	out := make([]uint8, len(plane))
	for i, v := range plane {
		n := int(v)
		if i < len(delta) {
			n += int(delta[i]) * 255 * polarity
		}
		out[i] = uint8(max(0, min(255, n)))
	}
	return out
}

// Composite renders plane p at index: grayscale base with the label overlay
// drawn over it. The index is reset to 0 when out of range. Composite does
// not modify the scene.
func (s *Scene) Composite(p volume.Plane, index int) (*image.RGBA, error) {
	if s.Volume == nil {
		return nil, ErrNoVolume
	}
	index = ClampIndex(s.Volume, p, index)
	w, h := s.Volume.PlaneSize(p)
	base := Gray(s.Volume.Slice(p, index), w, h, s.Bits)
	ov := s.Overlay(p, index)
	draw.Draw(base, base.Bounds(), ov, image.Point{}, draw.Over)
	return base, nil
}
