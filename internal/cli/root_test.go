package cli

import (
	"bytes"
	"encoding/json"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "canvasync", cmd.Use)
	assert.Contains(t, cmd.Long, "canvasync.yaml")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"validate", "render", "test", "trace", "serve"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	for _, name := range []string{"config", "log-file", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", "--format", "yaml", "testdata/scene.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "validate", "--log-level", "loud", "testdata/scene.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "testdata/scene.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func pngSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestConfigFileOverridesSurface(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "canvasync.yaml")
	writeFile(t, cfg, "surface:\n  width: 480\n  height: 270\n")
	out := filepath.Join(dir, "preview.png")

	_, err := execute(t, "render", "--config", cfg, "-o", out, "testdata/scene.yaml")
	require.NoError(t, err)

	w, h := pngSize(t, out)
	assert.Equal(t, 480, w)
	assert.Equal(t, 270, h)
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "canvasync.yaml")
	writeFile(t, cfg, "surface:\n  width: 480\n  height: 270\n")
	t.Setenv("CANVASYNC_SURFACE_WIDTH", "320")
	t.Setenv("CANVASYNC_SURFACE_HEIGHT", "180")
	out := filepath.Join(dir, "preview.png")

	_, err := execute(t, "render", "--config", cfg, "-o", out, "testdata/scene.yaml")
	require.NoError(t, err)

	w, h := pngSize(t, out)
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)
}

func TestFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("CANVASYNC_SURFACE_WIDTH", "320")
	t.Setenv("CANVASYNC_SURFACE_HEIGHT", "180")
	out := filepath.Join(t.TempDir(), "preview.png")

	_, err := execute(t, "render", "--width", "200", "--height", "100", "-o", out, "testdata/scene.yaml")
	require.NoError(t, err)

	w, h := pngSize(t, out)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)
}

func TestLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	logPath := filepath.Join(dir, "canvasync.log")

	_, err := execute(t, "render", "-v", "--log-file", logPath, "-o", filepath.Join(dir, "p.png"), "testdata/scene.yaml")
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session opened")
	assert.Contains(t, string(data), "level=DEBUG")
}

func TestRunSuccess(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"validate", "testdata/scene.yaml"}, &stdout, &stderr)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout.String(), "testdata/scene.yaml")
}

func TestRunReportsErrorText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"--format", "yaml", "validate", "testdata/scene.yaml"}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "Error [C000]: invalid format")
}

func TestRunReportsFixtureCodeJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := filepath.Join(t.TempDir(), "p.png")
	code := Run([]string{"render", "--format", "json", "-o", out, "testdata/invalid.yaml"}, &stdout, &stderr)
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "F104", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid fixture")
}

func TestRunSkipsReportedFailures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"validate", "testdata/invalid.yaml"}, &stdout, &stderr)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout.String(), "✗ testdata/invalid.yaml")
	assert.NotContains(t, stderr.String(), "Error [")
}
