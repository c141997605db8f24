package cli

import (
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvasync/internal/engine"
)

func TestRenderCommandWritesPreview(t *testing.T) {
	out := filepath.Join(t.TempDir(), "preview.png")

	stdout, err := execute(t, "render", "-o", out, "testdata/scene.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "generation 1, 3 materialized, 1 skipped")
	assert.Contains(t, stdout, "skipped photo [MATERIALIZE_FAILED]")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 960, img.Bounds().Dx())
	assert.Equal(t, 540, img.Bounds().Dy())
	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, color.RGBA{0, 0, 128, 255}, color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)})
}

func TestRenderCommandJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "preview.png")

	stdout, err := execute(t, "render", "--format", "json", "--time", "2", "-o", out, "testdata/scene.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, out, resp.Data.Output)
	assert.Equal(t, 2.0, resp.Data.SampleTime)
	assert.Equal(t, 3, resp.Data.Materialized)
	assert.Equal(t, []string{"box", "dot", "title"}, resp.Data.Order)
	require.Len(t, resp.Data.Skipped, 1)
	assert.Equal(t, "photo", resp.Data.Skipped[0].ElementID)
	assert.Equal(t, engine.ErrCodeMaterializeFailed, resp.Data.Skipped[0].Code)
	assert.NotEmpty(t, resp.Data.Session)
}

func TestRenderCommandMediaDir(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "missing.png"))
	out := filepath.Join(dir, "preview.png")

	stdout, err := execute(t, "render", "--media-dir", dir, "-o", out, "testdata/scene.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "4 materialized, 0 skipped")
}

func TestRenderCommandInvalidFixture(t *testing.T) {
	_, err := execute(t, "render", "-o", filepath.Join(t.TempDir(), "p.png"), "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid fixture")
}

func TestRenderCommandUnwritableOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "no", "such", "dir", "p.png")
	_, err := execute(t, "render", "-o", out, "testdata/scene.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRenderCommandWatch(t *testing.T) {
	dir := t.TempDir()
	scene := filepath.Join(dir, "scene.yaml")
	copyFile(t, "testdata/scene.yaml", scene)
	out := filepath.Join(dir, "preview.png")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stdout := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- executeContext(ctx, stdout, "render", "--watch", "-o", out, scene)
	}()

	require.Eventually(t, func() bool {
		return countLines(stdout.String(), "✓ ") >= 1
	}, 5*time.Second, 20*time.Millisecond)

	// Rewrite until the watcher (which may still be starting) re-renders.
	data, err := os.ReadFile(scene)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_ = os.WriteFile(scene, data, 0644)
		return countLines(stdout.String(), "✓ ") >= 2
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("render --watch did not stop after cancel")
	}
}
