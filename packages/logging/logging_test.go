package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, false)
	logger.Debug("hidden")
	logger.Info("run finished", "failed", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=\"run finished\" failed=2")
}

func TestNewVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf, true).Debug("worker finished", "worker", 3)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "worker=3")
}

func TestNewJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	NewJSON(buf, false).Info("parallel pass started", "specs", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "parallel pass started", record["msg"])
	assert.Equal(t, float64(7), record["specs"])
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("dropped")
	})
}
