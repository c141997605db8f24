package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioWorkspace copies the scenario testdata into a temp dir so golden
// files can be written.
func scenarioWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	copyFile(t, "testdata/fixtures/shapes.yaml", filepath.Join(dir, "fixtures", "shapes.yaml"))
	for _, name := range []string{"bring_front.yaml", "send_back.yaml"} {
		copyFile(t, filepath.Join("testdata", "scenarios", name), filepath.Join(dir, "scenarios", name))
	}
	return filepath.Join(dir, "scenarios")
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandPasses(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ bring_front")
	assert.Contains(t, out, "✓ send_back")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, "test", "--format", "json", "--filter", "send*", "testdata/scenarios")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "send_back", resp.Data.Scenarios[0].Name)
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := scenarioWorkspace(t)
	writeFile(t, filepath.Join(dir, "wrong_order.yaml"), `name: wrong_order
fixture: ../fixtures/shapes.yaml
steps:
  - rebuild: {}
assertions:
  - type: z_order
    ids: [c, b, a]
`)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_order")
	assert.Contains(t, out, "2 passed, 1 failed, 3 total")
}

func TestTestCommandUpdateAndCompareGolden(t *testing.T) {
	dir := scenarioWorkspace(t)

	out, err := execute(t, "test", "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 passed")

	golden := filepath.Join(dir, "golden", "bring_front.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "bring_front"`)
	assert.Contains(t, string(data), `"zOrderChanged"`)

	_, err = execute(t, "test", dir)
	require.NoError(t, err)

	writeFile(t, golden, "{}\n")
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}
