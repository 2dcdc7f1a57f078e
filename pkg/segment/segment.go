// Package segment runs ensembles of segmentation models over a volume and
// distributes the per-class predictions into label masks.
//
// Inference itself is delegated to an Inferer. Each weight file is loaded
// once and asked for a boolean prediction per slice and class; predictions
// of all weight files are averaged and thresholded at 0.5.
package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrDeviceUnavailable = errors.New("inference device not found")
	ErrModelMismatch     = errors.New("wrong model type")
	ErrClassMismatch     = errors.New("wrong number of classes")
	ErrInvalidTarget     = errors.New("invalid model type")
	ErrNoWeights         = errors.New("no model weights found")
)

// Device selects where inference runs.
type Device int

const (
	CUDA Device = iota
	CPU
)

func (d Device) String() string {
	if d == CPU {
		return "cpu"
	}
	return "cuda"
}

// ParseDevice accepts "cuda" or "cpu".
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(s) {
	case "cuda", "gpu":
		return CUDA, nil
	case "cpu":
		return CPU, nil
	}
	return 0, fmt.Errorf("unknown device %q", s)
}

// Predictor produces predictions for single slices.
type Predictor interface {
	// Predict returns classes*h*w booleans, class-major, for one normalized slice.
	Predict(ctx context.Context, img []float32, w, h int) ([]bool, error)
	Close() error
}

// Inferer loads model weights. Implementations report ErrDeviceUnavailable
// and ErrModelMismatch for missing accelerators and incompatible weights.
type Inferer interface {
	Load(ctx context.Context, weights string, dev Device, classes int) (Predictor, error)
}

// Request is one ensemble run.
type Request struct {
	Weights []string
	Volume  *volume.Volume
	Device  Device
	Slices  []int // restrict inference to these axial indexes, empty for all
	Classes int
}

// Result holds thresholded predictions shaped (slices, classes, rows, cols).
type Result struct {
	Depth, Classes, Height, Width int
	Data                          []bool
}

// Plane returns the prediction of class c on slice z.
func (r *Result) Plane(z, c int) []bool {
	n := r.Height * r.Width
	off := (z*r.Classes + c) * n
	return r.Data[off : off+n]
}

// Mask extracts class c as a 0/1 mask.
func (r *Result) Mask(c int) *volume.Mask {
	m := volume.NewMask(r.Width, r.Height, r.Depth)
	for z := 0; z < r.Depth; z++ {
		dst := m.Axial(z)
		for i, on := range r.Plane(z, c) {
			if on {
				dst[i] = 1
			}
		}
	}
	return m
}

// Normalize prepares the volume for the models: x/256, minus the volume
// mean, divided by the volume standard deviation, then /255.
func Normalize(v *volume.Volume) []float32 {
	x := make([]float64, len(v.Data))
	for i, d := range v.Data {
		x[i] = float64(d) / 256
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	out := make([]float32, len(x))
	for i, d := range x {
		n := d - mean
		if std > 0 {
			n /= std
		}
		out[i] = float32(n / 255)
	}
	return out
}

// Runner executes ensembles and tracks progress. Progress is informational
// and may be read from another goroutine while Run is blocked.
type Runner struct {
	Inferer Inferer

	done  atomic.Int64
	total atomic.Int64
}

// Progress reports completed slice predictions as a fraction.
func (r *Runner) Progress() float64 {
	t := r.total.Load()
	if t == 0 {
		return 0
	}
	return float64(r.done.Load()) / float64(t)
}

// Run predicts every requested slice with every weight file, averages the
// boolean predictions and keeps voxels whose mean exceeds 0.5. Nothing is
// returned unless every prediction succeeds.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Weights) == 0 {
		return nil, ErrNoWeights
	}
	if req.Volume == nil {
		return nil, errors.New("no volume to segment")
	}
	if req.Classes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrClassMismatch, req.Classes)
	}
	v := req.Volume
	want := make([]bool, v.Depth)
	for _, z := range req.Slices {
		if z >= 0 && z < v.Depth {
			want[z] = true
		}
	}
	if len(req.Slices) == 0 {
		for z := range want {
			want[z] = true
		}
	}

	n := v.Width * v.Height
	votes := make([]uint16, v.Depth*req.Classes*n)
	norm := Normalize(v)
	r.done.Store(0)
	r.total.Store(int64(len(req.Weights) * v.Depth))

	for _, w := range req.Weights {
		p, err := r.Inferer.Load(ctx, w, req.Device, req.Classes)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", w, err)
		}
		for z := 0; z < v.Depth; z++ {
			r.done.Add(1)
			if !want[z] {
				continue
			}
			pred, err := p.Predict(ctx, norm[z*n:(z+1)*n], v.Width, v.Height)
			if err != nil {
				p.Close()
				return nil, fmt.Errorf("predicting slice %d with %s: %w", z, w, err)
			}
			if len(pred) != req.Classes*n {
				p.Close()
				return nil, fmt.Errorf("%w: %d outputs for %d classes", ErrModelMismatch, len(pred), req.Classes)
			}
			off := z * req.Classes * n
			for i, on := range pred {
				if on {
					votes[off+i]++
				}
			}
		}
		if err := p.Close(); err != nil {
			slog.WarnContext(ctx, "closing predictor", slog.String("weights", w), slog.Any("error", err))
		}
		slog.DebugContext(ctx, "model done", slog.String("weights", w), slog.Float64("progress", r.Progress()))
	}

	res := &Result{Depth: v.Depth, Classes: req.Classes, Height: v.Height, Width: v.Width, Data: make([]bool, len(votes))}
	models := float64(len(req.Weights))
	for i, c := range votes {
		res.Data[i] = float64(c)/models > 0.5
	}
	return res, nil
}
