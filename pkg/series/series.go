// Package series discovers and loads a folder of CT slices into a volume.
package series

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jpfielding/ctlabels.go/pkg/dicom"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"github.com/jpfielding/ctlabels.go/pkg/window"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidFolder = errors.New("invalid folder (too many dicoms or no dicoms found)")
	ErrShapeMismatch = errors.New("invalid dicoms (wrong shape)")
)

// DefaultMaxFiles bounds how many files a folder may hold.
const DefaultMaxFiles = 1500

// Discover lists the slice files of dir. It prefers *.dcm files found
// recursively; when there are none, or more than maxFiles, every entry under
// dir is used instead. Both lists are sorted by path.
func Discover(dir string, maxFiles int) ([]string, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	var dcm, all []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		all = append(all, path)
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".dcm") {
			dcm = append(dcm, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFolder, err)
	}
	files := dcm
	if len(files) == 0 || len(files) > maxFiles {
		files = all
	}
	if len(files) == 0 || len(files) > maxFiles {
		return nil, fmt.Errorf("%w: %d entries in %s", ErrInvalidFolder, len(files), dir)
	}
	sort.Strings(files)
	return files, nil
}

// Slice is one decoded image of the series.
type Slice struct {
	Path   string
	Raw    []float32 // modality corrected values
	Bits   int
	Invert bool
}

// Series is a loaded study: decoded slices plus the windowed volume.
type Series struct {
	Dir       string
	PatientID string
	StudyID   string
	Rows      int
	Columns   int
	Bits      int
	Slices    []Slice
	Volume    *volume.Volume
}

// Key names the study in exported file names: the folder's base name.
func (s *Series) Key() string {
	return filepath.Base(s.Dir)
}

// Options tune Load.
type Options struct {
	MaxFiles int
	Window   window.Level
	Workers  int
}

// Load discovers, decodes and windows every slice of dir. Files are decoded
// in parallel; the first failing file in path order is reported.
func Load(ctx context.Context, dir string, opts Options) (*Series, error) {
	if opts.Window.Width == 0 {
		opts.Window = window.Default
	}
	if err := opts.Window.Validate(); err != nil {
		return nil, err
	}
	files, err := Discover(dir, opts.MaxFiles)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	decoded := make([]*dicom.Dataset, len(files))
	frames := make([][][]float32, len(files))
	errs := make([]error, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, fn := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds, err := dicom.ReadFile(fn)
			if err == nil {
				frames[i], err = ds.Frames()
			}
			if err != nil {
				errs[i] = err
				return err
			}
			decoded[i] = ds
			slog.DebugContext(ctx, "decoded slice", slog.String("file", fn), slog.Int("frames", len(frames[i])))
			return nil
		})
	}
	werr := g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if werr != nil {
		return nil, werr
	}

	s := &Series{Dir: dir}
	for i, ds := range decoded {
		if i == 0 {
			s.Rows, s.Columns, s.Bits = ds.Rows(), ds.Columns(), ds.BitsAllocated()
		}
		if ds.Rows() != s.Rows || ds.Columns() != s.Columns {
			return nil, fmt.Errorf("%w: %s is %dx%d, expected %dx%d", ErrShapeMismatch,
				files[i], ds.Columns(), ds.Rows(), s.Columns, s.Rows)
		}
		if id := ds.PatientID(); id != "" {
			s.PatientID = id
		}
		s.StudyID = ds.StudyID()
		for _, f := range frames[i] {
			s.Slices = append(s.Slices, Slice{Path: files[i], Raw: f, Bits: ds.BitsAllocated(), Invert: ds.Inverted()})
		}
	}
	if s.StudyID == "" {
		s.StudyID = "0"
	}
	if err := s.Rewindow(opts.Window); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "loaded series",
		slog.String("dir", dir),
		slog.Int("files", len(files)),
		slog.String("shape", s.Volume.Shape().String()),
		slog.String("memory", humanize.Bytes(uint64(len(s.Volume.Data)*2+len(s.Volume.Data)*4))))
	return s, nil
}

// Rewindow rebuilds Volume from the kept raw slices with a new window.
func (s *Series) Rewindow(l window.Level) error {
	vol := volume.NewVolume(s.Columns, s.Rows, len(s.Slices))
	for z, sl := range s.Slices {
		out, err := window.Apply(sl.Raw, l, sl.Bits, sl.Invert)
		if err != nil {
			return err
		}
		copy(vol.Axial(z), out)
	}
	s.Volume = vol
	return nil
}
