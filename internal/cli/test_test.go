package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// writeScenario writes a scenario for mock_application.json into dir.
func writeScenario(t *testing.T, dir, name string) string {
	t.Helper()
	input, err := filepath.Abs(document("mock_application.json"))
	require.NoError(t, err)

	content := fmt.Sprintf(`name: %s
description: "Mock application loses its duplicates"
input: %s
run_id: run-%s
expect:
  removed: 4
  objects: [object_1, object_2, object_3]
`, name, input, name)

	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ mock_application")
	assert.Contains(t, out, "✓ wrong_shape_application")
	assert.Contains(t, out, "0 failed")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", harnessScenarios, "--filter", "m*")
	require.NoError(t, err, out)

	var response struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 3, response.Data.Total)
	assert.Equal(t, 3, response.Data.Passed)

	names := make([]string, 0, len(response.Data.Scenarios))
	for _, s := range response.Data.Scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"malformed_application", "missing_input", "mock_application"}, names)
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	scenarioFile := writeScenario(t, dir, "mock")
	goldenPath := goldenFilePath(scenarioFile)

	out, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")
	require.FileExists(t, goldenPath)

	out, err = runTestCommand(t, "text", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ mock")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}"), 0644))
	out, err = runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "wrong")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.Replace(data, []byte("removed: 4"), []byte("removed: 5"), 1)
	require.NoError(t, os.WriteFile(path, data, 0644))

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrCodeTestFailed, response.Error.Code)
	assert.Contains(t, out, "expect.removed: expected 5, got 4")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "description is required")
}

func TestTestHelpText(t *testing.T) {
	out, err := runTestCommand(t, "text", "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "regression scenarios")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rules"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules", "r.yaml"), []byte("collections: []\n"), 0644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, files)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mock_one.yaml", "mock_two.yaml", "clean.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0644))
	}

	files, err := findScenarioFiles(dir, "mock_*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"scenarios/mock.yaml", "scenarios/golden/mock.golden"},
		{"/abs/path/clean_application.yml", "/abs/path/golden/clean_application.golden"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, goldenFilePath(tt.input))
		})
	}
}
