package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/intervalindex/pkg/alg/interval"
	"github.com/Sumatoshi-tech/intervalindex/pkg/dataset"
	"github.com/Sumatoshi-tech/intervalindex/pkg/render"
)

const scenarioYAML = `intervals:
  - start: 0
    end: 10
    data: "0-10"
  - start: 10
    end: 20
    data: "10-20"
  - start: 20
    end: 30
    data: "20-30"
  - start: 30
    end: 40
    data: "30-40"
  - start: -20
    end: 0
    data: "-20 to 0"
  - start: 0
    end: 100
    data: "0-100"
`

const scenarioIntervals = 6

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the root command against an isolated config file.
func execute(t *testing.T, configYAML string, args ...string) (string, error) {
	t.Helper()

	cfgPath := writeFile(t, "intervalindex.yaml", configYAML)

	var stdout, stderr bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", cfgPath, "--no-color", "-q"}, args...))

	err := root.Execute()

	return stdout.String(), err
}

func scenarioFile(t *testing.T) string {
	t.Helper()

	return writeFile(t, "intervals.yaml", scenarioYAML)
}

// TestStab_Plain verifies payloads are printed in result order.
func TestStab_Plain(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "-f", scenarioFile(t), "-o", "plain", "stab", "35")
	require.NoError(t, err)
	assert.Equal(t, "0-100\n30-40\n", out)
}

// TestStab_NegativePoint verifies negative points after "--".
func TestStab_NegativePoint(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "-f", scenarioFile(t), "-o", "plain", "stab", "--", "-15")
	require.NoError(t, err)
	assert.Equal(t, "-20 to 0\n", out)
}

// TestStab_JSON verifies JSON output carries bounds and payloads.
func TestStab_JSON(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "-f", scenarioFile(t), "-o", "json", "stab", "5")
	require.NoError(t, err)

	var got []render.IntervalJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []render.IntervalJSON{
		{Start: 0, End: 100, Data: "0-100"},
		{Start: 0, End: 10, Data: "0-10"},
	}, got)
}

// TestStab_ConfigFile verifies index.file and output.format come from config.
func TestStab_ConfigFile(t *testing.T) {
	t.Parallel()

	cfg := "index:\n  file: " + scenarioFile(t) + "\noutput:\n  format: plain\n"

	out, err := execute(t, cfg, "stab", "500")
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestStab_Table verifies the default table output.
func TestStab_Table(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "-f", scenarioFile(t), "stab", "15")
	require.NoError(t, err)
	assert.Contains(t, out, "stab 15")
	assert.Contains(t, out, "10-20")
	assert.NotContains(t, out, "\x1b[")
}

// TestRange_Plain verifies range results.
func TestRange_Plain(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "-f", scenarioFile(t), "-o", "plain", "range", "15", "25")
	require.NoError(t, err)
	assert.Equal(t, "0-100\n10-20\n20-30\n", out)
}

// TestRange_Invalid verifies start >= end is rejected.
func TestRange_Invalid(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "-f", scenarioFile(t), "range", "25", "15")
	require.ErrorIs(t, err, interval.ErrInvalidRange)

	_, err = execute(t, "", "-f", scenarioFile(t), "range", "x", "15")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid start "x"`)

	_, err = execute(t, "", "-f", scenarioFile(t), "range", "0", "nan")
	require.ErrorIs(t, err, ErrNotANumber)
}

// TestQuery_MissingFile verifies an unset dataset path is reported.
func TestQuery_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "index:\n  file: \"\"\n", "stab", "1")
	require.ErrorIs(t, err, ErrMissingFile)

	_, err = execute(t, "", "-f", filepath.Join(t.TempDir(), "absent.yaml"), "stab", "1")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestQuery_BadOutputFormat verifies the output flag is checked.
func TestQuery_BadOutputFormat(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "-f", scenarioFile(t), "-o", "csv", "stab", "1")
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

// TestDump verifies the dump matches the tree's own formatting.
func TestDump(t *testing.T) {
	t.Parallel()

	path := scenarioFile(t)

	doc, err := dataset.LoadFile(path)
	require.NoError(t, err)

	tree, err := doc.Tree()
	require.NoError(t, err)

	out, err := execute(t, "", "-f", path, "dump")
	require.NoError(t, err)
	assert.Equal(t, tree.String(), out)
}

// TestDump_Zero verifies index.zero centers an empty dataset.
func TestDump_Zero(t *testing.T) {
	t.Parallel()

	empty := writeFile(t, "empty.yaml", "intervals: []\n")

	out, err := execute(t, "index:\n  zero: -3\n", "-f", empty, "dump")
	require.NoError(t, err)
	assert.Equal(t, "-3:\n", out)
}

// TestStats_JSON verifies statistics are reported after the build.
func TestStats_JSON(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "-f", scenarioFile(t), "-o", "json", "stats")
	require.NoError(t, err)

	var got render.StatsJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, scenarioIntervals, got.Intervals)
	assert.Positive(t, got.Nodes)
	assert.Positive(t, got.Depth)
	assert.False(t, got.PendingChanges)
}

// TestValidate verifies schema and bound checks.
func TestValidate(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "validate", scenarioFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset is valid")

	backwards := writeFile(t, "backwards.yaml", "intervals:\n  - start: 1\n    end: 2\n    data: a\n  - start: 9\n    end: 3\n    data: b\n")

	out, err = execute(t, "", "validate", backwards)
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, out, "intervals.1")
	assert.Contains(t, out, "beginning of range must be less than end")

	missing := writeFile(t, "missing.yaml", "intervals:\n  - start: 1\n    data: a\n")

	out, err = execute(t, "", "-o", "json", "validate", missing)
	require.ErrorIs(t, err, ErrValidationFailed)

	var report render.ValidationJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Description, "end")
}

// TestValidate_ConfiguredFile verifies the -f fallback.
func TestValidate_ConfiguredFile(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "-f", scenarioFile(t), "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset is valid")
}

// TestVersion verifies the version line.
func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "intervalindex ")
	assert.Contains(t, out, "commit:")
}
