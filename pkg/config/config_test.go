package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelctl.yaml")
	data := []byte(`
window:
  preset: Lungs
display:
  opacity: 200
edit:
  brushSize: 3
  autoFillHoles: true
segmentation:
  device: cpu
  command: [python3, infer.py]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Lungs", cfg.Window.Preset)
	assert.Equal(t, 200, cfg.Display.Opacity)
	assert.True(t, cfg.Display.ShowMasks)
	assert.Equal(t, 3, cfg.Edit.BrushSize)
	assert.Equal(t, "circle", cfg.Edit.BrushShape)
	assert.True(t, cfg.Edit.AutoFillHoles)
	assert.Equal(t, []string{"python3", "infer.py"}, cfg.Segmentation.Command)
	assert.Equal(t, 1500, cfg.Limits.MaxFiles)
}

func TestLoadCenterWidthOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: {center: 40, width: 80}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Window{Center: 40, Width: 80}, cfg.Window)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display:\n  opacity: 300\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("display: [\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := Default()
	cfg.Export.SaveDir = "/data/out"
	cfg.Logging.File = "labelctl.log"
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, "labelctl.log", got.Logging.FileConfig().Filename)
	assert.Nil(t, got.Segmentation.Command)

	cfg.Segmentation.Command = []string{"python3", "infer.py"}
	require.NoError(t, Save(cfg, path))
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
