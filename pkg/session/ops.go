package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/maskio"
	"github.com/jpfielding/ctlabels.go/pkg/morph"
	"github.com/jpfielding/ctlabels.go/pkg/segment"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
)

// SelectModel points the session at a folder of model weights.
func (s *Session) SelectModel(dir string) error {
	m, err := segment.Discover(dir)
	if err != nil {
		return err
	}
	s.Model = &m
	return nil
}

// SetSegmentationRange limits segmentation to slices lo..hi inclusive.
func (s *Session) SetSegmentationRange(lo, hi int) error {
	vol, err := s.requireVolume()
	if err != nil {
		return err
	}
	if lo < 0 || hi >= vol.Depth || lo > hi {
		return fmt.Errorf("%w: %d-%d with %d slices", ErrInvalidRange, lo, hi, vol.Depth)
	}
	s.Range = &SliceRange{Min: lo, Max: hi}
	return nil
}

// Progress reports how far the running segmentation is.
func (s *Session) Progress() float64 { return s.runner.Progress() }

// Segment runs the selected model over the study and installs the
// predicted masks. Masks are left untouched unless the whole run succeeds.
func (s *Session) Segment(ctx context.Context) error {
	ctx = s.Context(ctx)
	vol, err := s.requireVolume()
	if err != nil {
		return err
	}
	if s.Model == nil {
		return ErrNoModel
	}
	if s.Inferer == nil {
		return ErrNoInferer
	}
	set := s.Store.Labels()
	classes, err := s.Model.Classes(set)
	if err != nil {
		return err
	}
	req := segment.Request{
		Weights: s.Model.Weights,
		Volume:  vol,
		Device:  s.Device,
		Classes: classes,
	}
	if s.Range != nil {
		for z := s.Range.Min; z <= s.Range.Max; z++ {
			req.Slices = append(req.Slices, z)
		}
	}
	s.runner.Inferer = s.Inferer
	res, err := s.runner.Run(ctx, req)
	if err != nil {
		return err
	}
	masks, err := segment.Distribute(res, set, s.Model.Target, s.RemoveOutliers)
	if err != nil {
		return err
	}
	if err := s.Store.ReplaceMasks(masks); err != nil {
		return err
	}
	slog.InfoContext(ctx, "segmentation done",
		slog.String("model", s.Model.Name),
		slog.String("target", s.Model.Target),
		slog.Int("weights", len(s.Model.Weights)))
	return nil
}

func (s *Session) selectedMask() (*volume.Mask, error) {
	if _, err := s.requireVolume(); err != nil {
		return nil, err
	}
	if s.View.Label == "" {
		return nil, ErrNoLabelSelected
	}
	return s.Store.Mask(s.View.Label)
}

// RemoveOutliersSelected keeps only the largest component of the selected label.
func (s *Session) RemoveOutliersSelected() error {
	m, err := s.selectedMask()
	if err != nil {
		return err
	}
	return s.Store.ReplaceMask(s.View.Label, morph.RemoveOutliers(m))
}

// FillHoles fills enclosed holes of the selected label on the current axial
// slice.
func (s *Session) FillHoles() error {
	m, err := s.selectedMask()
	if err != nil {
		return err
	}
	morph.FillHolesAt(m, s.View.Index[volume.Axial])
	return nil
}

// FillHolesAll fills enclosed holes of the selected label on every slice.
func (s *Session) FillHolesAll() error {
	m, err := s.selectedMask()
	if err != nil {
		return err
	}
	morph.FillHolesAll(m)
	return nil
}

func (s *Session) named() []maskio.Named {
	entries := s.Store.Entries()
	out := make([]maskio.Named, len(entries))
	for i, e := range entries {
		out[i] = maskio.Named{Label: e.Label.Name, Mask: e.Slot.Mask()}
	}
	return out
}

// SaveMasks writes every present mask below the save folder, grouped by
// study, label and model.
func (s *Session) SaveMasks() error {
	if _, err := s.requireVolume(); err != nil {
		return err
	}
	if s.SaveDir == "" {
		return ErrNoSaveFolder
	}
	model := ""
	if s.Model != nil {
		model = s.Model.Name
	}
	return maskio.SaveMasks(s.SaveDir, s.StudyKey(), model, s.named(), s.RemoveOutliers)
}

// LoadMasks reads {dir}/{label}/*.png for every label that has a directory.
func (s *Session) LoadMasks(dir string) error {
	vol, err := s.requireVolume()
	if err != nil {
		return err
	}
	if s.Store.Labels().Len() == 0 {
		return ErrNoLabels
	}
	masks, err := maskio.LoadMasks(dir, s.Store.Labels().Names(), vol.Shape())
	if err != nil {
		return err
	}
	return s.install(masks)
}

func (s *Session) install(masks map[string]*volume.Mask) error {
	if s.RemoveOutliers {
		for k, m := range masks {
			masks[k] = morph.RemoveOutliers(m)
		}
	}
	return s.Store.ReplaceMasks(masks)
}

// SaveLabels writes the label set as {name}.csv in the save folder. An
// existing file is never overwritten.
func (s *Session) SaveLabels(name string) (string, error) {
	if s.SaveDir == "" {
		return "", ErrNoSaveFolder
	}
	if !strings.HasSuffix(name, ".csv") {
		name += ".csv"
	}
	path := filepath.Join(s.SaveDir, name)
	return path, labels.WriteFile(path, s.Store.Labels())
}

// LoadLabels replaces the label set from a CSV file. With a study loaded
// every label starts with an empty mask.
func (s *Session) LoadLabels(path string) error {
	if filepath.Ext(path) != ".csv" {
		return fmt.Errorf("%s: select a csv file", path)
	}
	set, err := labels.ReadFile(path)
	if err != nil {
		return err
	}
	s.Engine.Cancel()
	s.Store.ReplaceLabels(set)
	s.hidden = map[string]bool{}
	if !set.Has(s.View.Label) {
		s.View.Label = ""
	}
	return nil
}

// SaveAnnotations exports images and masks of the study for training.
// Every label must have a mask.
func (s *Session) SaveAnnotations() error {
	vol, err := s.requireVolume()
	if err != nil {
		return err
	}
	if s.SaveDir == "" {
		return ErrNoSaveFolder
	}
	if !s.Store.AllPresent() {
		return ErrIncomplete
	}
	return maskio.SaveAnnotations(maskio.Annotations{
		Root:           s.SaveDir,
		Study:          s.StudyKey(),
		Volume:         vol,
		Masks:          s.named(),
		Flips:          s.Flips,
		SaveImages:     s.SaveImages,
		SaveFlipped:    s.SaveFlipped,
		RemoveOutliers: s.RemoveOutliers,
	})
}

// LoadAnnotations reads the study's exported masks back from the save
// folder in the current flip orientation.
func (s *Session) LoadAnnotations() error {
	vol, err := s.requireVolume()
	if err != nil {
		return err
	}
	if s.SaveDir == "" {
		return ErrNoSaveFolder
	}
	masks, err := maskio.LoadAnnotations(s.SaveDir, s.StudyKey(), s.Store.Labels().Names(), vol.Shape(), s.Flips)
	if err != nil {
		return err
	}
	return s.install(masks)
}
