package maskio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jpfielding/ctlabels.go/pkg/morph"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
)

// Named pairs a label with its mask.
type Named struct {
	Label string
	Mask  *volume.Mask
}

// MaskDir is where SaveMasks writes a label: {root}/{study}/{label}, with
// an extra {model} level when masks came from a segmentation model.
func MaskDir(root, study, label, model string) string {
	dir := filepath.Join(root, study, label)
	if model != "" {
		dir = filepath.Join(dir, model)
	}
	return dir
}

// SaveMasks writes each present mask below root. Absent masks are skipped.
func SaveMasks(root, study, model string, masks []Named, removeOutliers bool) error {
	written := 0
	for _, n := range masks {
		if n.Mask == nil {
			continue
		}
		m := n.Mask
		if removeOutliers {
			m = morph.RemoveOutliers(m)
		}
		if err := WriteMask(MaskDir(root, study, n.Label, model), study, m); err != nil {
			return err
		}
		written += len(m.Data)
	}
	slog.Info("saved masks", slog.String("study", study), slog.String("size", humanize.Bytes(uint64(written))))
	return nil
}

// LoadMasks reads {dir}/{label}/*.png for every label whose directory
// exists. Either every found label loads or nothing is returned.
func LoadMasks(dir string, labels []string, shape volume.Shape) (map[string]*volume.Mask, error) {
	out := map[string]*volume.Mask{}
	for _, l := range labels {
		sub := filepath.Join(dir, l)
		if !isDir(sub) {
			continue
		}
		m, err := ReadMask(sub, shape[2], shape[1], shape[0], ReadOptions{})
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", l, err)
		}
		out[l] = m
	}
	return out, nil
}

// Annotations describes a training export of one study.
type Annotations struct {
	Root           string
	Study          string
	Volume         *volume.Volume
	Masks          []Named
	Flips          [3]bool
	SaveImages     bool
	SaveFlipped    bool
	RemoveOutliers bool
}

// Directory names of an annotation export.
const (
	ImagesDir        = "images"
	ImagesFlippedDir = "images_flipped"
)

// AnnotationDir is the mask directory of label, {label}_masks[_flipped].
func AnnotationDir(root, label string, flipped bool) string {
	dir := strings.ToLower(label) + "_masks"
	if flipped {
		dir += "_flipped"
	}
	return filepath.Join(root, dir)
}

func anyFlip(f [3]bool) bool { return f[0] || f[1] || f[2] }

// SaveAnnotations exports images and masks. Data is held in the current
// flipped orientation; the plain directories receive it flipped back to
// acquisition orientation and the _flipped ones, when requested, as shown.
func SaveAnnotations(a Annotations) error {
	flipped := anyFlip(a.Flips) && a.SaveFlipped
	if a.SaveImages {
		if flipped {
			if err := WriteVolume(filepath.Join(a.Root, ImagesFlippedDir), a.Study, a.Volume); err != nil {
				return err
			}
		}
		v := a.Volume
		if anyFlip(a.Flips) {
			v = v.Clone()
			v.FlipAll(a.Flips)
		}
		if err := WriteVolume(filepath.Join(a.Root, ImagesDir), a.Study, v); err != nil {
			return err
		}
	}
	for _, n := range a.Masks {
		m := n.Mask
		if a.RemoveOutliers {
			m = morph.RemoveOutliers(m)
		} else {
			m = ForExport(m)
		}
		if flipped {
			if err := WriteMask(AnnotationDir(a.Root, n.Label, true), a.Study, m); err != nil {
				return err
			}
		}
		if anyFlip(a.Flips) {
			m = m.Clone()
			m.FlipAll(a.Flips)
		}
		if err := WriteMask(AnnotationDir(a.Root, n.Label, false), a.Study, m); err != nil {
			return err
		}
	}
	slog.Info("saved annotations", slog.String("study", a.Study), slog.Int("labels", len(a.Masks)), slog.Bool("flipped", flipped))
	return nil
}

// LoadAnnotations reads the {label}_masks directories below root, keeping
// files of study only, and re-applies flips so masks match the displayed
// volume. Labels without a directory or with the wrong number of slices are
// left out.
func LoadAnnotations(root, study string, labels []string, shape volume.Shape, flips [3]bool) (map[string]*volume.Mask, error) {
	out := map[string]*volume.Mask{}
	for _, l := range labels {
		dir := AnnotationDir(root, l, false)
		if !isDir(dir) {
			continue
		}
		m, err := ReadMask(dir, shape[2], shape[1], shape[0], ReadOptions{Recursive: true, Study: study})
		if err != nil {
			var cm *CountMismatchError
			if errors.As(err, &cm) {
				slog.Debug("skipping annotations", slog.String("label", l), slog.Int("found", cm.Found), slog.Int("want", cm.Want))
				continue
			}
			return nil, fmt.Errorf("loading %s: %w", l, err)
		}
		m.FlipAll(flips)
		out[l] = m
	}
	return out, nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
