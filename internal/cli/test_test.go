package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const minimalScenario = `name: minimal-supply
description: Initializes the supply pool.
initializer: admin
genesis:
  - {name: pool, kind: supply_pool}
  - {name: admin, kind: wallet}
roles:
  supply_pool: pool
  recipient: admin
  payer: admin
steps:
  - operation: initialize_supply
    amount: 3
    signers: [admin]
assertions:
  - {type: record, slot: pool, value: 3000000000}
`

const minimalGolden = `scenario: minimal-supply
1 initialize_supply amount=3 -> applied
  write supply_pool pool=3000000000
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ purchase-lifecycle")
	assert.Contains(t, out, "✓ authorization")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommandGoldenMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "minimal.yaml", minimalScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "minimal-supply.golden", minimalGolden)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ minimal-supply")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "minimal.yaml", minimalScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "minimal-supply.golden", strings.Replace(minimalGolden, "amount=3", "amount=4", 1))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "trace does not match golden file")
}

func TestTestCommandUpdate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "minimal.yaml", minimalScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ minimal-supply (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "minimal-supply.golden"))
	require.NoError(t, err)
	assert.Equal(t, minimalGolden, string(golden))
}

func TestTestCommandAssertionFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "minimal.yaml", strings.Replace(minimalScenario, "value: 3000000000", "value: 1", 1))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ minimal-supply")
	assert.Contains(t, out, "expected 1, got 3000000000")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestHelpText(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "conformance")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "purchase-a.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "purchase-b.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "claim.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "purchase-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(filepath.Base(f), "purchase-"), f)
	}
}

func TestFindScenarioFilesSubdirectories(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "root.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "sub.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		file     string
		name     string
		expected string
	}{
		{"/path/to/scenario.yaml", "purchase", "/path/to/golden/purchase.golden"},
		{"scenarios/test.yml", "claim-flow", "scenarios/golden/claim-flow.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.file, tc.name))
	}
}
