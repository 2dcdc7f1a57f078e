package render_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/jpfielding/ctlabels.go/pkg/render"
	"github.com/jpfielding/ctlabels.go/pkg/store"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scene(t *testing.T) (*render.Scene, *store.Store) {
	t.Helper()
	st := store.New()
	v := volume.NewVolume(4, 3, 2)
	for i := range v.Data {
		v.Data[i] = 255
	}
	st.SetVolume(v)
	_, err := st.AddLabel("a", 255, 0, 0)
	require.NoError(t, err)
	_, err = st.AddLabel("b", 0, 0, 255)
	require.NoError(t, err)
	ma, _ := st.EnsureMask("a")
	mb, _ := st.EnsureMask("b")
	ma.Set(1, 1, 0, 255)
	ma.Set(2, 1, 0, 1)
	mb.Set(2, 1, 0, 255)
	return &render.Scene{
		Volume:    v,
		Bits:      8,
		Layers:    render.Layers(st.Entries(), nil),
		Opacity:   255,
		ShowMasks: true,
	}, st
}

func TestComposite_LastWriterWins(t *testing.T) {
	sc, _ := scene(t)
	img, err := sc.Composite(volume.Axial, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(2, 1))
}

func TestComposite_Idempotent(t *testing.T) {
	sc, _ := scene(t)
	sc.Opacity = 128
	for _, p := range volume.Planes {
		a, err := sc.Composite(p, 1)
		require.NoError(t, err)
		b, err := sc.Composite(p, 1)
		require.NoError(t, err)
		assert.Equal(t, a.Pix, b.Pix, p.String())
	}
}

func TestComposite_HiddenAndDisabled(t *testing.T) {
	sc, st := scene(t)
	sc.Layers = render.Layers(st.Entries(), map[string]bool{"b": true})
	img, err := sc.Composite(volume.Axial, 0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(2, 1))

	sc.ShowMasks = false
	img, err = sc.Composite(volume.Axial, 0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(1, 1))
}

func TestComposite_OutOfRangeAndEmpty(t *testing.T) {
	sc, _ := scene(t)
	img, err := sc.Composite(volume.Axial, 99)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(1, 1))

	_, err = (&render.Scene{}).Composite(volume.Axial, 0)
	assert.ErrorIs(t, err, render.ErrNoVolume)
}

func TestComposite_OtherPlanes(t *testing.T) {
	sc, _ := scene(t)
	img, err := sc.Composite(volume.Coronal, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(1, 0))

	img, err = sc.Composite(volume.Sagittal, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(1, 0))
}

func TestComposite_Preview(t *testing.T) {
	sc, _ := scene(t)
	delta := make([]uint8, 12)
	delta[0] = 1
	delta[1*4+1] = 1
	sc.Preview = &render.Preview{Label: "a", Slice: 0, Delta: delta, Polarity: -1}
	img, err := sc.Composite(volume.Axial, 0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(1, 1))

	sc.Preview.Polarity = 1
	img, err = sc.Composite(volume.Axial, 0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(0, 0))

	sc.Preview.Slice = 1
	img, err = sc.Composite(volume.Axial, 0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
}

func TestZoom(t *testing.T) {
	assert.Equal(t, 1.5, render.ZoomIn(1))
	assert.Equal(t, 8.0, render.ZoomIn(8))
	assert.Equal(t, 4.0, render.ZoomOut(8))
	assert.Equal(t, 1.0, render.ZoomOut(1))

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(1, 1, color.RGBA{255, 0, 0, 255})
	out := render.Zoom(src, 2)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	r, _, _, _ := out.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	r, _, _, _ = out.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r)

	x, y := render.ToView(7, 3, 2)
	assert.Equal(t, [2]int{3, 1}, [2]int{x, y})
	assert.Same(t, src, render.Zoom(src, 1))
}

func TestGray(t *testing.T) {
	img := render.Gray([]uint16{0, 65535}, 2, 1, 16)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(1, 0))
}
