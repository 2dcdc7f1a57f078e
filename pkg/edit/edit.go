// Package edit turns pointer and key events into mask edits and view
// changes. An Engine is driven by a single event stream and is not safe for
// concurrent use.
package edit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpfielding/ctlabels.go/pkg/brush"
	"github.com/jpfielding/ctlabels.go/pkg/morph"
	"github.com/jpfielding/ctlabels.go/pkg/render"
	"github.com/jpfielding/ctlabels.go/pkg/store"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
)

// ErrNoLabelSelected is returned when painting without a target label.
var ErrNoLabelSelected = errors.New("no label selected")

// Mode is what a primary pointer press does.
type Mode int

const (
	Select Mode = iota // re-point the other planes at the click
	Pan                // viewport drag, handled by the front end
	Draw
	Erase
)

func (m Mode) String() string {
	switch m {
	case Select:
		return "select"
	case Pan:
		return "pan"
	case Draw:
		return "draw"
	case Erase:
		return "erase"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode maps a name onto a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Select, Pan, Draw, Erase} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Polarity is +1 for Draw, -1 for Erase and 0 otherwise.
func (m Mode) Polarity() int {
	switch m {
	case Draw:
		return 1
	case Erase:
		return -1
	}
	return 0
}

// Redraw tells the front end how much of the view is stale.
type Redraw int

const (
	RedrawNone    Redraw = iota
	RedrawPreview        // only the frozen axial slice
	RedrawFull
)

// View is the navigation state the engine reads and updates.
type View struct {
	Index     [3]int // slice index per volume.Plane
	Label     string // label targeted by draw/erase, empty for none
	ShowMasks bool
}

// gesture lives from pointer down to pointer up.
type gesture struct {
	label    string
	slice    int
	polarity int
	mode     Mode
	delta    []uint8 // axial plane of 0/1 stamps
}

// Engine applies gestures to masks in a store.
type Engine struct {
	Mode          Mode
	Brush         brush.Stamp
	AutoFillHoles bool

	active *gesture
}

// New returns an engine in Select mode with the default brush.
func New() *Engine {
	return &Engine{Mode: Select, Brush: brush.Default()}
}

// Painting reports whether a gesture is in progress.
func (e *Engine) Painting() bool { return e.active != nil }

// Preview describes the in-progress gesture for live compositing, nil when idle.
func (e *Engine) Preview() *render.Preview {
	if e.active == nil {
		return nil
	}
	return &render.Preview{
		Label:    e.active.label,
		Slice:    e.active.slice,
		Delta:    e.active.delta,
		Polarity: e.active.polarity,
	}
}

// PointerDown handles a primary press at slice pixel (x, y) on plane p.
func (e *Engine) PointerDown(st *store.Store, v *View, p volume.Plane, x, y int) (Redraw, error) {
	vol := st.Volume()
	if vol == nil {
		return RedrawNone, store.ErrNoVolume
	}
	switch e.Mode {
	case Select:
		e.selectAt(vol, v, p, x, y)
		return RedrawFull, nil

	case Draw, Erase:
		if e.active != nil || p != volume.Axial || !v.ShowMasks {
			return RedrawNone, nil
		}
		if v.Label == "" {
			return RedrawNone, ErrNoLabelSelected
		}
		if x < 0 || y < 0 || x >= vol.Width || y >= vol.Height {
			return RedrawNone, nil
		}
		if _, err := st.EnsureMask(v.Label); err != nil {
			return RedrawNone, err
		}
		e.active = &gesture{
			label:    v.Label,
			slice:    render.ClampIndex(vol, volume.Axial, v.Index[volume.Axial]),
			polarity: e.Mode.Polarity(),
			mode:     e.Mode,
			delta:    make([]uint8, vol.Width*vol.Height),
		}
		e.Brush.Paint(e.active.delta, vol.Width, vol.Height, x, y)
		return RedrawPreview, nil
	}
	return RedrawNone, nil
}

// PointerMove extends an in-progress gesture.
func (e *Engine) PointerMove(st *store.Store, x, y int) Redraw {
	vol := st.Volume()
	if e.active == nil || vol == nil {
		return RedrawNone
	}
	if x < 0 || y < 0 || x >= vol.Width || y >= vol.Height {
		return RedrawNone
	}
	e.Brush.Paint(e.active.delta, vol.Width, vol.Height, x, y)
	return RedrawPreview
}

// PointerUp commits the gesture: mask + delta*255*polarity clamped to
// [0,255] on the frozen slice. A draw gesture is followed by hole filling
// when AutoFillHoles is set.
func (e *Engine) PointerUp(st *store.Store) (Redraw, error) {
	g := e.active
	if g == nil {
		return RedrawNone, nil
	}
	e.active = nil
	m, err := st.Mask(g.label)
	if err != nil {
		return RedrawFull, err
	}
	plane := m.Axial(g.slice)
	changed := 0
	for i, d := range g.delta {
		if d == 0 {
			continue
		}
		n := max(0, min(255, int(plane[i])+int(d)*255*g.polarity))
		if uint8(n) != plane[i] {
			changed++
		}
		plane[i] = uint8(n)
	}
	if e.AutoFillHoles && g.mode == Draw {
		morph.FillHolesAt(m, g.slice)
	}
	slog.Debug("committed gesture",
		slog.String("label", g.label),
		slog.String("mode", g.mode.String()),
		slog.Int("slice", g.slice),
		slog.Int("changed", changed))
	return RedrawFull, nil
}

// Cancel drops an in-progress gesture without touching the mask.
func (e *Engine) Cancel() {
	e.active = nil
}

// selectAt re-points the two planes not clicked at the clicked pixel.
func (e *Engine) selectAt(vol *volume.Volume, v *View, p volume.Plane, x, y int) {
	if x < 0 || y < 0 {
		x, y = 0, 0
	}
	set := func(q volume.Plane, i int) {
		v.Index[q] = min(i, vol.PlaneLen(q)-1)
	}
	switch p {
	case volume.Axial:
		set(volume.Coronal, y)
		set(volume.Sagittal, x)
	case volume.Coronal:
		set(volume.Axial, y)
		set(volume.Sagittal, x)
	case volume.Sagittal:
		set(volume.Axial, y)
		set(volume.Coronal, x)
	}
}

// Step moves plane p by delta slices, clamped to the volume. Keys are
// ignored while painting.
func (e *Engine) Step(vol *volume.Volume, v *View, p volume.Plane, delta int) Redraw {
	if e.active != nil || vol == nil {
		return RedrawNone
	}
	next := max(0, min(vol.PlaneLen(p)-1, v.Index[p]+delta))
	if next == v.Index[p] {
		return RedrawNone
	}
	v.Index[p] = next
	return RedrawFull
}

// Key is a keyboard shortcut understood by the engine.
type Key rune

const (
	KeyPrev    Key = 'q'
	KeyNext    Key = 'w'
	KeyZoomIn  Key = '+'
	KeyZoomOut Key = '-'
)

// HandleKey applies a slice or zoom shortcut on plane p.
func (e *Engine) HandleKey(vol *volume.Volume, v *View, zoom *float64, p volume.Plane, k Key) Redraw {
	if e.active != nil {
		return RedrawNone
	}
	switch k {
	case KeyPrev:
		return e.Step(vol, v, p, -1)
	case KeyNext:
		return e.Step(vol, v, p, 1)
	case KeyZoomIn:
		*zoom = render.ZoomIn(*zoom)
		return RedrawFull
	case KeyZoomOut:
		*zoom = render.ZoomOut(*zoom)
		return RedrawFull
	}
	return RedrawNone
}
