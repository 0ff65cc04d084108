package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, DefaultJobs, c.Jobs)
	assert.Equal(t, "console", c.Output)
	assert.False(t, c.GetVerbose())
	assert.False(t, c.GetNoColor())
	assert.True(t, c.IsDefault())

	c.Jobs = 8
	assert.False(t, c.IsDefault())
}

func TestGetBoolDefaults(t *testing.T) {
	c := &Config{}
	assert.False(t, c.GetVerbose())
	assert.False(t, c.GetNoColor())

	c.Verbose = BoolPtr(true)
	assert.True(t, c.GetVerbose())
}

func TestLoadConfig(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, ".chlorine.yaml", `
jobs: 8
verbose: true
output: junit
outputFile: report.xml
history: runs.db
watch:
  - ./bundle
`)
		c, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 8, c.Jobs)
		assert.True(t, c.GetVerbose())
		assert.False(t, c.GetNoColor(), "unset keys keep their defaults")
		assert.Equal(t, "junit", c.Output)
		assert.Equal(t, "report.xml", c.OutputFile)
		assert.Equal(t, "runs.db", c.History)
		assert.Equal(t, []string{"./bundle"}, c.Watch)
	})

	t.Run("json", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "chlorine.config.json", `{"jobs": 2, "noColor": true, "startRate": 12.5}`)
		c, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 2, c.Jobs)
		assert.True(t, c.GetNoColor())
		assert.Equal(t, 12.5, c.StartRate)
		assert.Equal(t, "console", c.Output)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "chlorine.yaml", "")
		c, err := LoadConfig(path)
		require.NoError(t, err)
		assert.True(t, c.IsDefault())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: "jobz: 3\n", want: "jobz"},
		{name: "zero jobs", content: "jobs: 0\n", want: "jobs"},
		{name: "wrong type", content: "verbose: \"yes\"\n", want: "verbose"},
		{name: "unknown output", content: "output: html\n", want: "output"},
		{name: "negative rate", content: "startRate: -1\n", want: "startRate"},
		{name: "malformed", content: "jobs: [1,\n", want: "invalid config"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), ".chlorine.yaml", tt.content)
			_, err := LoadConfig(path)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindAndLoadConfig(t *testing.T) {
	t.Run("no config file", func(t *testing.T) {
		c, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.True(t, c.IsDefault())
	})

	t.Run("search order", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "chlorine.config.json", `{"jobs": 3}`)
		writeFile(t, dir, "chlorine.yaml", "jobs: 5\n")

		c, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 5, c.Jobs)
	})
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Watch = []string{"a"}

	merged := base.Merge(&Config{
		Jobs:       16,
		NoColor:    BoolPtr(true),
		OutputFile: "out.json",
		Watch:      []string{"b", "c"},
	})

	assert.Equal(t, 16, merged.Jobs)
	assert.True(t, merged.GetNoColor())
	assert.False(t, merged.GetVerbose())
	assert.Equal(t, "console", merged.Output)
	assert.Equal(t, "out.json", merged.OutputFile)
	assert.Equal(t, []string{"b", "c"}, merged.Watch)

	assert.Equal(t, DefaultJobs, base.Jobs, "merge does not modify the receiver")
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig(t *testing.T) {
	c := DefaultConfig()
	c.Jobs = 6
	c.Watch = []string{"./specs"}

	for _, name := range []string{"chlorine.yaml", "chlorine.config.json"} {
		name := name
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, c.SaveConfig(path))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, c, loaded)
		})
	}
}
