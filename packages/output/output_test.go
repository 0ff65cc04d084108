package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
	"github.com/abdul-hamid-achik/chlorine/packages/metrics"
)

func sampleResult() *runner.RunResult {
	return &runner.RunResult{
		ID:       uuid.MustParse("8a1f0c4e-1b2d-4c3e-9f00-112233445566"),
		Name:     "layout",
		Workers:  4,
		Started:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration: 42 * time.Millisecond,
		Total:    3,
		Passed:   1,
		Failed:   2,
		ExitCode: 2,
		Stats:    metrics.Summary{Executed: 3, Failed: 2, P50: 2 * time.Millisecond, Max: 5 * time.Millisecond},
		Specs: []*runner.SpecResult{
			{Index: 0, Name: "struct", Passed: true, AssertsPassed: 4, Duration: 1500 * time.Microsecond},
			{
				Index: 1, Name: "union", Options: spec.Serial, AssertsPassed: 1, AssertsFailed: 1,
				Duration: 2 * time.Millisecond,
				Output: "[INFO] Executing SPEC => union\n\n" +
					"        \x1b[1;33m[ERROR]\x1b[0m Assertion Failed: \x1b[31mu.Size == 8\x1b[0m\n" +
					"                in layout_test.go:12\n\n" +
					"        \x1b[1;31m[FAIL] \x1b[0m Failed SPEC in 0.0020 s -> 1/2 fail, 1/2 pass\n\n",
			},
			{
				Index: 2, Name: "aborts", Aborted: true, Duration: 5 * time.Millisecond,
				Output: "[INFO] Executing SPEC => aborts\n\n        [FAIL]  Aborted\n\n",
			},
		},
	}
}

func TestNew(t *testing.T) {
	for _, format := range append(Formats, "", "JSON") {
		f, err := New(format, &bytes.Buffer{}, false)
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := New("html", &bytes.Buffer{}, false)
	assert.ErrorContains(t, err, `unknown output format "html"`)
}

func TestFailureLines(t *testing.T) {
	lines := failureLines(sampleResult().Specs[1].Output)
	assert.Equal(t, []string{"[ERROR] Assertion Failed: u.Size == 8"}, lines)

	lines = failureLines(sampleResult().Specs[2].Output)
	assert.Equal(t, []string{"[FAIL]  Aborted"}, lines)
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	f := NewJSONFormatter(JSONWithWriter(buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(50*time.Millisecond))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, JSONSummary{Total: 3, Passed: 1, Failed: 2}, out.Summary)
	assert.Equal(t, 50.0, out.Duration)
	require.Len(t, out.Runs, 1)

	run := out.Runs[0]
	assert.Equal(t, "8a1f0c4e-1b2d-4c3e-9f00-112233445566", run.ID)
	assert.Equal(t, "layout", run.Bundle)
	assert.Equal(t, 2, run.ExitCode)
	assert.Equal(t, 2.0, run.Stats.P50)
	require.Len(t, run.Specs, 3)

	assert.Equal(t, 1.5, run.Specs[0].Duration)
	assert.Empty(t, run.Specs[0].Output)
	assert.Equal(t, "serial", run.Specs[1].Options)
	assert.Equal(t, []string{"[ERROR] Assertion Failed: u.Size == 8"}, run.Specs[1].Failures)
	assert.NotContains(t, run.Specs[1].Output, "\x1b[")
	assert.True(t, run.Specs[2].Aborted)
}

func TestJUnitFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	f := NewJUnitFormatter(JUnitWithWriter(buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal([]byte(strings.SplitN(out, "\n", 2)[1]), &suites))
	assert.Equal(t, "chlorine", suites.Name)
	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)

	require.Len(t, suites.TestSuites, 1)
	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 3)
	assert.Nil(t, cases[0].Failure)
	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "1 of 2 assertions failed", cases[1].Failure.Message)
	require.NotNil(t, cases[2].Error)
	assert.Equal(t, "Abort", cases[2].Error.Type)
}

func TestTAPFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	f := NewTAPFormatter(TAPWithWriter(buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(250*time.Millisecond))

	assert.Equal(t, "TAP version 13\n"+
		"1..3\n"+
		"ok 1 - struct\n"+
		"not ok 2 - union\n"+
		"  ---\n"+
		"  failures:\n"+
		"    - \"[ERROR] Assertion Failed: u.Size == 8\"\n"+
		"  ...\n"+
		"not ok 3 - aborts\n"+
		"  ---\n"+
		"  severity: abort\n"+
		"  failures:\n"+
		"    - \"[FAIL]  Aborted\"\n"+
		"  ...\n"+
		"# time 0.2500s\n", buf.String())
}

func TestConsoleFormatter(t *testing.T) {
	color.NoColor = true
	buf := &bytes.Buffer{}
	f := NewConsoleFormatter(WithWriter(buf), WithVerbose(true))
	f.FormatHeader("1.0.0")
	f.FormatResult(sampleResult())

	out := buf.String()
	assert.Contains(t, out, "chlorine 1.0.0\n")
	assert.Contains(t, out, "Bundle: layout")
	assert.Contains(t, out, "  ✓ struct (1.500ms)\n")
	assert.Contains(t, out, "  ✗ union (2.000ms) [serial]\n")
	assert.Contains(t, out, "    → [ERROR] Assertion Failed: u.Size == 8\n")
	assert.Contains(t, out, "    Assertions: 4 passed, 0 failed\n")
	assert.Contains(t, out, "Specs: 1 passed, 2 failed, 3 total\n")
	assert.Contains(t, out, "Timing: p50 2.000ms")
	assert.Contains(t, out, "Time:  42ms\n")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: \"b\""`, escapeYAML(`a: "b"`))
}
