package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newYearScenario = `name: new_year
description: "Midnight on the first of January"
calendar: gregorian
presentation: long
steps:
  - op: format
    tick: 0
    expect:
      text: "00:00 January 01, 2026"
  - op: parse
    tick: 0
    expect:
      values: {year: 0, month31: 0, day: 0}
`

const wrongTextScenario = `name: wrong_text
description: "Expects the wrong year"
calendar: gregorian
steps:
  - op: format
    tick: 0
    expect:
      text: "00:00 January 01, 1999"
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTest_HarnessScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := execute(t, NewTestCommand(textOpts()), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ clock_day")
	assert.Contains(t, out, "✓ gregorian_basics")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_JSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"new_year.yaml": newYearScenario})

	out, err := execute(t, NewTestCommand(jsonOpts()), dir)
	require.NoError(t, err)

	env := decode[TestResult](t, out)
	assert.Equal(t, "ok", env.Status)
	assert.Equal(t, 1, env.Data.Passed)
	assert.Equal(t, 1, env.Data.Total)
	assert.Nil(t, env.Error)
}

func TestTest_FailingScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"new_year.yaml":   newYearScenario,
		"wrong_text.yaml": wrongTextScenario,
	})

	out, err := execute(t, NewTestCommand(textOpts()), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ new_year")
	assert.Contains(t, out, "✗ wrong_text")
	assert.Contains(t, out, "steps[0] format: text mismatch")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_FailingScenarioJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"wrong_text.yaml": wrongTextScenario})

	out, err := execute(t, NewTestCommand(jsonOpts()), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env := decode[TestResult](t, out)
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "E_TEST_FAILED", env.Error.Code)
	require.Len(t, env.Data.Scenarios, 1)
	assert.False(t, env.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, env.Data.Scenarios[0].Errors)
}

func TestTest_LoadError(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: broken\nsteps: []\n"})

	out, err := execute(t, NewTestCommand(textOpts()), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_GoldenUpdateAndCompare(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"new_year.yaml": newYearScenario})
	goldenPath := filepath.Join(dir, "golden", "new_year.golden")

	out, err := execute(t, NewTestCommand(textOpts()), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ new_year (golden updated)")

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "new_year"`)
	assert.Contains(t, string(data), `"calendar": "Gregorian"`)

	out, err = execute(t, NewTestCommand(textOpts()), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ new_year\n")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	out, err = execute(t, NewTestCommand(textOpts()), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"new_year.yaml":   newYearScenario,
		"wrong_text.yaml": wrongTextScenario,
	})

	out, err := execute(t, NewTestCommand(textOpts()), dir, "--filter", "new_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "wrong_text")
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, NewTestCommand(textOpts()), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_BadFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"new_year.yaml": newYearScenario})
	_, err := execute(t, NewTestCommand(textOpts()), dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "clock_day.golden"),
		goldenFilePath(filepath.Join("scenarios", "clock_day.yaml")))
}
