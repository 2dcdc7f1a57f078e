// Package maskio reads and writes volumes and masks as per-slice PNG files.
//
// Slices are named {study}_{index}.png and ordered by the trailing index
// when read back. Masks are written as 8-bit grayscale, images as 16-bit.
package maskio

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
)

var (
	ErrCountMismatch = errors.New("invalid number of masks in directory")
	ErrSizeMismatch  = errors.New("mask size does not match the volume")
	ErrBadName       = errors.New("slice file name has no index")
)

// CountMismatchError reports a mask directory whose file count differs from
// the volume depth.
type CountMismatchError struct {
	Dir   string
	Found int
	Want  int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%s: found %d masks, want %d", e.Dir, e.Found, e.Want)
}

func (e *CountMismatchError) Unwrap() error { return ErrCountMismatch }

// SliceName is the file name of slice i of a study.
func SliceName(study string, i int) string {
	return study + "_" + strconv.Itoa(i) + ".png"
}

// SliceIndex parses the number after the last underscore of a slice file.
func SliceIndex(path string) (int, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	i := strings.LastIndex(base, "_")
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadName, path)
	}
	return n, nil
}

// sortByIndex orders slice files numerically so that _10 follows _9.
func sortByIndex(paths []string) error {
	idx := make(map[string]int, len(paths))
	for _, p := range paths {
		n, err := SliceIndex(p)
		if err != nil {
			return err
		}
		idx[p] = n
	}
	slices.SortStableFunc(paths, func(a, b string) int { return idx[a] - idx[b] })
	return nil
}

// ForExport returns the mask as stored on disk: 0/1 masks are scaled to
// 0/255, anything else is written unchanged.
func ForExport(m *volume.Mask) *volume.Mask {
	if m.Max() != 1 {
		return m
	}
	out := m.Clone()
	for i, v := range out.Data {
		out.Data[i] = v * 255
	}
	return out
}

// WriteMask writes every axial slice of m into dir.
func WriteMask(dir, study string, m *volume.Mask) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	m = ForExport(m)
	for z := 0; z < m.Depth; z++ {
		img := &image.Gray{
			Pix:    m.Axial(z),
			Stride: m.Width,
			Rect:   image.Rect(0, 0, m.Width, m.Height),
		}
		path := filepath.Join(dir, SliceName(study, z))
		if err := imaging.Save(img, path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	slog.Debug("wrote mask", slog.String("dir", dir), slog.Int("slices", m.Depth))
	return nil
}

// WriteVolume writes every axial slice of v as a 16-bit grayscale PNG.
func WriteVolume(dir, study string, v *volume.Volume) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for z := 0; z < v.Depth; z++ {
		img := image.NewGray16(image.Rect(0, 0, v.Width, v.Height))
		for i, px := range v.Axial(z) {
			img.Pix[2*i] = uint8(px >> 8)
			img.Pix[2*i+1] = uint8(px)
		}
		path := filepath.Join(dir, SliceName(study, z))
		if err := imaging.Save(img, path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	slog.Debug("wrote images", slog.String("dir", dir), slog.Int("slices", v.Depth))
	return nil
}

// ReadOptions narrows the files ReadMask considers.
type ReadOptions struct {
	// Recursive walks subdirectories instead of reading dir only.
	Recursive bool
	// Study keeps only files whose path below dir contains this string.
	Study string
}

// ReadMask loads a w*h*d mask from the PNG slices in dir. Pixels are
// binarized to 0/255.
func ReadMask(dir string, w, h, d int, opts ReadOptions) (*volume.Mask, error) {
	paths, err := listPNG(dir, opts)
	if err != nil {
		return nil, err
	}
	if len(paths) != d {
		return nil, &CountMismatchError{Dir: dir, Found: len(paths), Want: d}
	}
	if err := sortByIndex(paths); err != nil {
		return nil, err
	}
	m := volume.NewMask(w, h, d)
	for z, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		b := img.Bounds()
		if b.Dx() != w || b.Dy() != h {
			return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrSizeMismatch, p, b.Dx(), b.Dy(), w, h)
		}
		binarize(img, m.Axial(z))
	}
	return m, nil
}

func listPNG(dir string, opts ReadOptions) ([]string, error) {
	var paths []string
	if !opts.Recursive {
		found, err := filepath.Glob(filepath.Join(dir, "*.png"))
		if err != nil {
			return nil, err
		}
		paths = found
	} else {
		err := filepath.WalkDir(dir, func(p string, e os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !e.IsDir() && filepath.Ext(p) == ".png" {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if opts.Study == "" {
		return paths, nil
	}
	return slices.DeleteFunc(paths, func(p string) bool {
		rel, err := filepath.Rel(dir, p)
		return err != nil || !strings.Contains(rel, opts.Study)
	}), nil
}

// binarize writes 255 into dst for every non-zero pixel of img.
func binarize(img image.Image, dst []uint8) {
	b := img.Bounds()
	w := b.Dx()
	switch g := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+w]
			for x, v := range row {
				if v > 0 {
					dst[y*w+x] = 255
				}
			}
		}
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+2*w]
			for x := 0; x < w; x++ {
				if row[2*x] != 0 || row[2*x+1] != 0 {
					dst[y*w+x] = 255
				}
			}
		}
	default:
		t := segment.Threshold(img, 1)
		for y := 0; y < b.Dy(); y++ {
			copy(dst[y*w:(y+1)*w], t.Pix[y*t.Stride:y*t.Stride+w])
		}
	}
}
