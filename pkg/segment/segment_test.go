package segment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInferer answers with a fixed pattern per weight file.
type fakeInferer struct {
	patterns map[string]func(c, i int) bool
	loadErr  error
	calls    map[string][]int
}

func (f *fakeInferer) Load(_ context.Context, weights string, _ Device, classes int) (Predictor, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.calls == nil {
		f.calls = map[string][]int{}
	}
	return &fakePredictor{f: f, weights: weights, classes: classes}, nil
}

type fakePredictor struct {
	f       *fakeInferer
	weights string
	classes int
	n       int
}

func (p *fakePredictor) Predict(_ context.Context, img []float32, w, h int) ([]bool, error) {
	p.f.calls[p.weights] = append(p.f.calls[p.weights], p.n)
	p.n++
	out := make([]bool, p.classes*w*h)
	pat := p.f.patterns[p.weights]
	for c := 0; c < p.classes; c++ {
		for i := 0; i < w*h; i++ {
			out[c*w*h+i] = pat(c, i)
		}
	}
	return out, nil
}

func (p *fakePredictor) Close() error { return nil }

func constant(v bool) func(int, int) bool {
	return func(int, int) bool { return v }
}

func testVolume(depth int) *volume.Volume {
	v := volume.NewVolume(4, 3, depth)
	for i := range v.Data {
		v.Data[i] = uint16(i * 100)
	}
	return v
}

func TestNormalize(t *testing.T) {
	v := volume.NewVolume(2, 1, 1)
	v.Data = []uint16{0, 512}
	n := Normalize(v)
	assert.InDelta(t, -1.0/255, n[0], 1e-6)
	assert.InDelta(t, 1.0/255, n[1], 1e-6)

	flat := volume.NewVolume(2, 2, 1)
	for _, x := range Normalize(flat) {
		assert.Zero(t, x)
	}
}

func TestRunMajority(t *testing.T) {
	f := &fakeInferer{patterns: map[string]func(int, int) bool{
		"a.pth": constant(true),
		"b.pth": constant(true),
		"c.pth": constant(false),
	}}
	r := &Runner{Inferer: f}
	res, err := r.Run(context.Background(), Request{Weights: []string{"a.pth", "b.pth", "c.pth"}, Volume: testVolume(2), Classes: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Depth)
	for _, on := range res.Data {
		assert.True(t, on)
	}
	assert.Equal(t, 1.0, r.Progress())
}

func TestRunTieIsBackground(t *testing.T) {
	f := &fakeInferer{patterns: map[string]func(int, int) bool{
		"a.pth": constant(true),
		"b.pth": constant(false),
	}}
	r := &Runner{Inferer: f}
	res, err := r.Run(context.Background(), Request{Weights: []string{"a.pth", "b.pth"}, Volume: testVolume(1), Classes: 2})
	require.NoError(t, err)
	for _, on := range res.Data {
		assert.False(t, on)
	}
}

func TestRunSubset(t *testing.T) {
	f := &fakeInferer{patterns: map[string]func(int, int) bool{"a.pth": constant(true)}}
	r := &Runner{Inferer: f}
	res, err := r.Run(context.Background(), Request{Weights: []string{"a.pth"}, Volume: testVolume(3), Slices: []int{1}, Classes: 1})
	require.NoError(t, err)
	assert.Len(t, f.calls["a.pth"], 1)
	assert.Equal(t, uint8(0), res.Mask(0).Get(0, 0, 0))
	assert.Equal(t, uint8(1), res.Mask(0).Get(0, 0, 1))
	assert.Equal(t, uint8(0), res.Mask(0).Get(0, 0, 2))
	assert.Equal(t, 1.0, r.Progress())
}

func TestRunErrors(t *testing.T) {
	r := &Runner{Inferer: &fakeInferer{loadErr: ErrDeviceUnavailable}}
	_, err := r.Run(context.Background(), Request{Weights: []string{"a.pth"}, Volume: testVolume(1), Classes: 1})
	assert.ErrorIs(t, err, ErrDeviceUnavailable)

	_, err = r.Run(context.Background(), Request{Volume: testVolume(1), Classes: 1})
	assert.ErrorIs(t, err, ErrNoWeights)

	_, err = r.Run(context.Background(), Request{Weights: []string{"a.pth"}, Volume: testVolume(1)})
	assert.ErrorIs(t, err, ErrClassMismatch)
}

func labelSet(t *testing.T, names ...string) *labels.Set {
	s := &labels.Set{}
	for _, n := range names {
		_, err := s.Add(n, 255, 0, 0)
		require.NoError(t, err)
	}
	return s
}

func TestDistributeMultiple(t *testing.T) {
	set := labelSet(t, "liver", "lung")
	require.NoError(t, set.SetClasses([]int{1, 0}))
	// class 0 lights pixel 0, class 1 lights pixel 1
	f := &fakeInferer{patterns: map[string]func(int, int) bool{
		"m.pth": func(c, i int) bool { return c == i },
	}}
	res, err := (&Runner{Inferer: f}).Run(context.Background(), Request{Weights: []string{"m.pth"}, Volume: testVolume(1), Classes: 2})
	require.NoError(t, err)

	masks, err := Distribute(res, set, Multiple, false)
	require.NoError(t, err)
	require.Len(t, masks, 2)
	assert.Equal(t, uint8(1), masks["lung"].Data[0])
	assert.Equal(t, uint8(0), masks["lung"].Data[1])
	assert.Equal(t, uint8(1), masks["liver"].Data[1])
	assert.Equal(t, uint8(0), masks["liver"].Data[0])
}

func TestDistributeErrors(t *testing.T) {
	res := &Result{Depth: 1, Classes: 3, Height: 1, Width: 1, Data: make([]bool, 3)}
	_, err := Distribute(res, labelSet(t, "a", "b"), Multiple, false)
	assert.ErrorIs(t, err, ErrClassMismatch)

	_, err = Distribute(res, labelSet(t, "a"), "kidney", false)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestDistributeSingleRemovesOutliers(t *testing.T) {
	res := &Result{Depth: 1, Classes: 1, Height: 1, Width: 5, Data: []bool{true, false, true, true, false}}
	masks, err := Distribute(res, labelSet(t, "liver", "lung"), "lung", true)
	require.NoError(t, err)
	require.Len(t, masks, 1)
	assert.Equal(t, []uint8{0, 0, 255, 255, 0}, masks["lung"].Data)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Lungs", "unet")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range []string{"b.pth", "a.pth"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	m, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, "lungs", m.Target)
	assert.Equal(t, "unet", m.Name)
	assert.Equal(t, []string{filepath.Join(dir, "a.pth"), filepath.Join(dir, "b.pth")}, m.Weights)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.p"), nil, 0o644))
	m, err = Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "z.p")}, m.Weights)

	_, err = Discover(t.TempDir())
	assert.ErrorIs(t, err, ErrNoWeights)
}

func TestModelClasses(t *testing.T) {
	set := labelSet(t, "liver", "lung")
	n, err := Model{Target: Multiple}.Classes(set)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = Model{Target: "lung"}.Classes(set)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Model{Target: "bone"}.Classes(set)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = Model{Target: Multiple}.Classes(&labels.Set{})
	assert.ErrorIs(t, err, ErrClassMismatch)

	require.NoError(t, set.SetClasses([]int{0, 1}))
	require.NoError(t, set.Remove("liver"))
	_, err = Model{Target: Multiple}.Classes(set)
	assert.True(t, errors.Is(err, ErrClassMismatch))
}

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice("CPU")
	require.NoError(t, err)
	assert.Equal(t, CPU, d)
	d, err = ParseDevice("cuda")
	require.NoError(t, err)
	assert.Equal(t, "cuda", d.String())
	_, err = ParseDevice("tpu")
	assert.Error(t, err)
}
