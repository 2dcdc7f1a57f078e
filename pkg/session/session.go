// Package session is the explicit state of one annotation session: the
// loaded study, labels and masks, view and edit settings, and the save and
// model folders. Every operation either completes or leaves the session as
// it was.
//
// A Session is driven by one control flow and is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jpfielding/ctlabels.go/pkg/brush"
	"github.com/jpfielding/ctlabels.go/pkg/config"
	"github.com/jpfielding/ctlabels.go/pkg/edit"
	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/logging"
	"github.com/jpfielding/ctlabels.go/pkg/render"
	"github.com/jpfielding/ctlabels.go/pkg/segment"
	"github.com/jpfielding/ctlabels.go/pkg/series"
	"github.com/jpfielding/ctlabels.go/pkg/store"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"github.com/jpfielding/ctlabels.go/pkg/window"
)

var (
	ErrNoVolume        = store.ErrNoVolume
	ErrNoLabelSelected = edit.ErrNoLabelSelected
	ErrNoSaveFolder    = errors.New("select save folder first")
	ErrNoModel         = errors.New("select a segmentation model first")
	ErrNoInferer       = errors.New("no inference command configured")
	ErrNoLabels        = errors.New("add labels first")
	ErrIncomplete      = errors.New("every label needs a mask")
	ErrUnknownPreset   = errors.New("unknown window preset")
	ErrDragDisabled    = errors.New("drag windowing is disabled")
	ErrInvalidRange    = errors.New("invalid segmentation range")
)

// SliceRange is an inclusive range of axial slices.
type SliceRange struct {
	Min, Max int
}

// Session holds everything an annotation front end manipulates.
type Session struct {
	ID      string
	Store   *store.Store
	Engine  *edit.Engine
	View    edit.View
	Focus   volume.Plane // plane keyboard shortcuts act on
	Zoom    float64
	Opacity uint8
	Window  window.Level
	Flips   [3]bool
	SaveDir string

	Model   *segment.Model
	Inferer segment.Inferer
	Device  segment.Device
	// Range limits segmentation to a slice range, nil for every slice.
	Range *SliceRange

	RemoveOutliers bool
	SaveImages     bool
	SaveFlipped    bool
	DragWindowing  bool
	MaxFiles       int
	Workers        int

	series *series.Series
	hidden map[string]bool
	runner segment.Runner
	exams  *Exams
}

// New builds a session from configuration.
func New(cfg *config.Config) (*Session, error) {
	shape, err := brush.ParseShape(cfg.Edit.BrushShape)
	if err != nil {
		return nil, err
	}
	stamp, err := brush.Lookup(cfg.Edit.BrushSize, shape)
	if err != nil {
		return nil, err
	}
	dev, err := segment.ParseDevice(cfg.Segmentation.Device)
	if err != nil {
		return nil, err
	}
	lvl := window.Custom(cfg.Window.Center, cfg.Window.Width)
	if cfg.Window.Preset != "" {
		p, ok := window.Preset(cfg.Window.Preset)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, cfg.Window.Preset)
		}
		lvl = p
	}
	if err := lvl.Validate(); err != nil {
		return nil, err
	}
	eng := edit.New()
	eng.Brush = stamp
	eng.AutoFillHoles = cfg.Edit.AutoFillHoles

	s := &Session{
		ID:             uuid.NewString(),
		Store:          store.New(),
		Engine:         eng,
		View:           edit.View{ShowMasks: cfg.Display.ShowMasks},
		Zoom:           cfg.Display.Zoom,
		Opacity:        uint8(cfg.Display.Opacity),
		Window:         lvl,
		Device:         dev,
		RemoveOutliers: cfg.Edit.RemoveOutliers,
		SaveImages:     cfg.Export.SaveImages,
		SaveFlipped:    cfg.Export.SaveFlipped,
		SaveDir:        cfg.Export.SaveDir,
		DragWindowing:  cfg.Display.DragWindowing,
		MaxFiles:       cfg.Limits.MaxFiles,
		Workers:        cfg.Limits.Workers,
		hidden:         map[string]bool{},
	}
	if s.Zoom <= 0 {
		s.Zoom = 1
	}
	if cmd := cfg.Segmentation.Command; len(cmd) > 0 {
		s.Inferer = segment.ExecInferer{Command: cmd[0], Args: cmd[1:]}
	}
	return s, nil
}

// Context tags ctx with the session id for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	return logging.AppendCtx(ctx, slog.String("session", s.ID))
}

// Series returns the loaded study, nil when none is loaded.
func (s *Session) Series() *series.Series { return s.series }

// Volume returns the displayed volume, nil when none is loaded.
func (s *Session) Volume() *volume.Volume { return s.Store.Volume() }

// StudyKey names the loaded study in exported files.
func (s *Session) StudyKey() string {
	if s.series == nil {
		return ""
	}
	return s.series.Key()
}

func (s *Session) requireVolume() (*volume.Volume, error) {
	v := s.Store.Volume()
	if v == nil {
		return nil, ErrNoVolume
	}
	return v, nil
}

// LoadFolder loads a DICOM folder with the current window and flips. Every
// label gets an empty mask and the view and segmentation range reset. The
// session is unchanged when loading fails.
func (s *Session) LoadFolder(ctx context.Context, dir string) error {
	ctx = s.Context(ctx)
	ser, err := series.Load(ctx, dir, series.Options{MaxFiles: s.MaxFiles, Window: s.Window, Workers: s.Workers})
	if err != nil {
		return err
	}
	s.Engine.Cancel()
	vol := ser.Volume
	vol.FlipAll(s.Flips)
	s.series = ser
	s.Store.SetVolume(vol)
	if err := s.Store.MaterializeAll(); err != nil {
		return err
	}
	s.View.Index = [3]int{}
	s.Range = nil
	slog.InfoContext(ctx, "study loaded",
		slog.String("study", ser.Key()),
		slog.String("patient", ser.PatientID),
		slog.String("shape", vol.Shape().String()))
	return nil
}

// SetWindow re-windows the loaded study, keeping masks and flips.
func (s *Session) SetWindow(l window.Level) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if s.series != nil {
		next := *s.series
		if err := next.Rewindow(l); err != nil {
			return err
		}
		next.Volume.FlipAll(s.Flips)
		if err := s.Store.ReplaceVolume(next.Volume); err != nil {
			return err
		}
		s.series.Volume = next.Volume
	}
	s.Window = l
	return nil
}

// ApplyPreset sets a named window.
func (s *Session) ApplyPreset(name string) error {
	l, ok := window.Preset(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return s.SetWindow(l)
}

// DragWindow adjusts the window by a pointer delta.
func (s *Session) DragWindow(dx, dy float64) error {
	if !s.DragWindowing {
		return ErrDragDisabled
	}
	return s.SetWindow(s.Window.Drag(dx, dy))
}

// Flip toggles the flip of axis (0 slices, 1 rows, 2 columns). A loaded
// volume and its masks are mirrored right away; otherwise the flip applies
// on the next load.
func (s *Session) Flip(axis int) error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("invalid flip axis %d", axis)
	}
	s.Engine.Cancel()
	if s.Store.HasVolume() {
		if err := s.Store.Flip(axis); err != nil {
			return err
		}
	}
	s.Flips[axis] = !s.Flips[axis]
	return nil
}

// AddLabel adds a label; with a study loaded it starts with an empty mask.
func (s *Session) AddLabel(name string, r, g, b int) (labels.Label, error) {
	l, err := s.Store.AddLabel(name, r, g, b)
	if err != nil {
		return l, err
	}
	if s.Store.HasVolume() {
		if _, err := s.Store.EnsureMask(l.Name); err != nil {
			return l, err
		}
	}
	return l, nil
}

// RemoveLabel drops a label with its mask, color and class.
func (s *Session) RemoveLabel(name string) error {
	name = labels.Normalize(name)
	if p := s.Engine.Preview(); p != nil && p.Label == name {
		s.Engine.Cancel()
	}
	if err := s.Store.RemoveLabel(name); err != nil {
		return err
	}
	delete(s.hidden, name)
	if s.View.Label == name {
		s.View.Label = ""
	}
	return nil
}

// SetLabelColor recolors a label.
func (s *Session) SetLabelColor(name string, r, g, b int) error {
	return s.Store.Labels().SetColor(name, r, g, b)
}

// SetClasses assigns segmentation classes in label order.
func (s *Session) SetClasses(classes []int) error {
	return s.Store.Labels().SetClasses(classes)
}

// SelectLabel chooses the label drawn, erased and post-processed.
func (s *Session) SelectLabel(name string) error {
	l, ok := s.Store.Labels().Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", labels.ErrNotFound, name)
	}
	s.View.Label = l.Name
	return nil
}

// SetLabelVisible shows or hides one label's overlay.
func (s *Session) SetLabelVisible(name string, visible bool) error {
	l, ok := s.Store.Labels().Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", labels.ErrNotFound, name)
	}
	if visible {
		delete(s.hidden, l.Name)
	} else {
		s.hidden[l.Name] = true
	}
	return nil
}

// ShowMasks toggles every overlay at once.
func (s *Session) ShowMasks(show bool) {
	s.View.ShowMasks = show
}

// SetMode switches the edit mode, dropping any gesture in progress.
func (s *Session) SetMode(m edit.Mode) {
	s.Engine.Cancel()
	s.Engine.Mode = m
}

// SetBrush selects a brush stamp.
func (s *Session) SetBrush(size int, shape brush.Shape) error {
	stamp, err := brush.Lookup(size, shape)
	if err != nil {
		return err
	}
	s.Engine.Brush = stamp
	return nil
}

// PointerDown forwards a press on plane p at slice pixel (x, y).
func (s *Session) PointerDown(p volume.Plane, x, y int) (edit.Redraw, error) {
	s.Focus = p
	return s.Engine.PointerDown(s.Store, &s.View, p, x, y)
}

// PointerMove forwards a drag.
func (s *Session) PointerMove(x, y int) edit.Redraw {
	return s.Engine.PointerMove(s.Store, x, y)
}

// PointerUp commits the gesture in progress.
func (s *Session) PointerUp() (edit.Redraw, error) {
	return s.Engine.PointerUp(s.Store)
}

// Render composites plane p at the current view index and zoom.
func (s *Session) Render(p volume.Plane) (image.Image, error) {
	vol, err := s.requireVolume()
	if err != nil {
		return nil, err
	}
	bits := 16
	if s.series != nil {
		bits = s.series.Bits
	}
	scene := render.Scene{
		Volume:    vol,
		Bits:      bits,
		Layers:    render.Layers(s.Store.Entries(), s.hidden),
		Opacity:   s.Opacity,
		ShowMasks: s.View.ShowMasks,
		Preview:   s.Engine.Preview(),
	}
	img, err := scene.Composite(p, s.View.Index[p])
	if err != nil {
		return nil, err
	}
	return render.Zoom(img, s.Zoom), nil
}
