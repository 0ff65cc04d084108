package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/chlorine/packages/core/config"
	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
	"github.com/abdul-hamid-achik/chlorine/packages/history"
	"github.com/abdul-hamid-achik/chlorine/packages/logging"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestLayoutBundlePasses(t *testing.T) {
	for _, workers := range []int{1, 4, 16} {
		diag := &bytes.Buffer{}
		r := runner.NewRunner(&runner.Config{Workers: workers, Diagnostics: diag})

		result, err := r.RunBundle(layoutBundle(0))
		require.NoError(t, err)
		assert.Zero(t, result.Failed, diag.String())
		assert.Equal(t, len(layoutBundle(0).Specs), result.Passed)
		assert.Contains(t, diag.String(), "[INFO] Running BUNDLE: layout\n")
		assert.Contains(t, diag.String(), "[SUCCESS] 0/")
	}
}

func TestLayoutBundleShape(t *testing.T) {
	b := layoutBundle(0)
	require.NoError(t, b.Validate())
	assert.Equal(t, bundleName, b.Name)
	assert.Equal(t, spec.DefaultJobs, b.Jobs)
	assert.Equal(t, 1, b.Serial())
	assert.NotNil(t, b.Hooks.Setup)
	assert.NotNil(t, b.Hooks.Teardown)

	assert.Equal(t, 8, layoutBundle(8).Jobs)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		failed int
		want   int
	}{
		{-1, ExitSuccess},
		{0, ExitSuccess},
		{1, 1},
		{125, 125},
		{400, ExitMaxFailures},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.failed), "failed=%d", tt.failed)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CHLORINE_TEST_STRING", "value")
	t.Setenv("CHLORINE_TEST_BOOL", "yes")
	t.Setenv("CHLORINE_TEST_INT", "12")
	t.Setenv("CHLORINE_TEST_BAD_INT", "twelve")
	t.Setenv("CHLORINE_TEST_FLOAT", "2.5")

	assert.Equal(t, "value", getEnvString("CHLORINE_TEST_STRING", "default"))
	assert.Equal(t, "default", getEnvString("CHLORINE_TEST_MISSING", "default"))
	assert.True(t, getEnvBool("CHLORINE_TEST_BOOL", false))
	assert.True(t, getEnvBool("CHLORINE_TEST_MISSING", true))
	assert.Equal(t, 12, getEnvInt("CHLORINE_TEST_INT", 0))
	assert.Equal(t, 3, getEnvInt("CHLORINE_TEST_BAD_INT", 3))
	assert.Equal(t, 2.5, getEnvFloat("CHLORINE_TEST_FLOAT", 0))
	assert.Equal(t, 1.0, getEnvFloat("CHLORINE_TEST_MISSING", 1))
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}

	logger, err := newLogger(buf, "json", false)
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = newLogger(buf, "xml", false)
	assert.ErrorContains(t, err, "unknown log format")
}

func TestListBundle(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, listBundle(out, layoutBundle(0)))

	// footers are upper-cased by the table style
	text := strings.ToLower(out.String())
	assert.Contains(t, text, "bundle: layout")
	assert.Contains(t, text, "basic")
	assert.Contains(t, text, "skip-setup|skip-teardown|serial")
	assert.Contains(t, text, "1 serial")

	b := spec.NewBundle("broken", spec.New("", nil))
	assert.ErrorIs(t, listBundle(out, b), spec.ErrInvalidSpec)
}

func TestSessionExecute(t *testing.T) {
	dir := t.TempDir()
	report := &bytes.Buffer{}
	diag := &bytes.Buffer{}

	cfg := config.DefaultConfig()
	cfg.Output = "json"
	cfg.Jobs = 2
	cfg.History = filepath.Join(dir, "runs.db")
	cfg.MetricsFile = filepath.Join(dir, "chlorine.prom")

	s := &session{cfg: cfg, report: report, diagnostics: diag, logger: logging.Discard()}
	failed, err := s.execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, failed, diag.String())

	assert.Contains(t, report.String(), `"bundle": "layout"`)

	prom, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(prom), "chlorine_specs_executed"))

	store, err := history.Open(cfg.History)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "layout", runs[0].Bundle)
	assert.Equal(t, 2, runs[0].Workers)

	out := &bytes.Buffer{}
	require.NoError(t, showRecent(context.Background(), out, store, 5))
	assert.Contains(t, out.String(), runs[0].ID)

	out.Reset()
	require.NoError(t, showRun(context.Background(), out, store, runs[0].ID))
	assert.Contains(t, out.String(), "shared-scalars")
	assert.Contains(t, strings.ToLower(out.String()), "0 failed")

	assert.Error(t, showRun(context.Background(), out, store, "missing"))
}

func TestSessionExecuteUnknownFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output = "html"
	s := &session{cfg: cfg, report: &bytes.Buffer{}, diagnostics: &bytes.Buffer{}, logger: logging.Discard()}

	_, err := s.execute(context.Background())
	assert.ErrorContains(t, err, "unknown output format")
}
