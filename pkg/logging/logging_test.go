package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jpfielding/ctlabels.go/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := logging.Logger(&buf, false, slog.LevelDebug)
	ctx := logging.AppendCtx(context.Background(), slog.String("study", "abc"))
	ctx = logging.AppendCtx(ctx, slog.Int("slices", 10))
	log.InfoContext(ctx, "loaded")

	out := buf.String()
	assert.Contains(t, out, "msg=loaded")
	assert.Contains(t, out, "study=abc")
	assert.Contains(t, out, "slices=10")
}

func TestLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.Logger(&buf, true, slog.LevelWarn)
	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestOutput_File(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "labelctl.log")
	w, c := logging.Output(logging.FileConfig{Filename: fn, MaxSizeMB: 1})
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.FileExists(t, fn)
}
