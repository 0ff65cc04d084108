package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func runResult(started time.Time, failed bool) *runner.RunResult {
	result := &runner.RunResult{
		ID:       uuid.New(),
		Name:     "layout",
		Workers:  4,
		Started:  started,
		Duration: 1500 * time.Microsecond,
		Total:    2,
		Passed:   2,
		Specs: []*runner.SpecResult{
			{Index: 0, Name: "struct", Passed: true, AssertsPassed: 3, Duration: 700 * time.Microsecond, Output: "[INFO] Executing SPEC => struct\n"},
			{Index: 1, Name: "union", Options: spec.Serial | spec.SkipSetup, Passed: true, AssertsPassed: 1, Duration: 300 * time.Microsecond},
		},
	}
	if failed {
		result.Passed, result.Failed, result.ExitCode = 1, 1, 1
		result.Specs[1].Passed = false
		result.Specs[1].Aborted = true
		result.Specs[1].AssertsFailed = 1
		result.Specs[1].Output = "        \x1b[1;31m[FAIL] \x1b[0m Aborted\n"
	}
	return result
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("plain path", func(t *testing.T) {
		store, err := Open(filepath.Join(dir, "a.db"))
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})

	t.Run("sqlite prefixes", func(t *testing.T) {
		for _, prefix := range []string{"sqlite://", "sqlite:"} {
			store, err := Open(prefix + filepath.Join(dir, "b.db"))
			require.NoError(t, err, prefix)
			require.NoError(t, store.Close())
		}
	})

	t.Run("reopen keeps schema", func(t *testing.T) {
		path := filepath.Join(dir, "c.db")
		store, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, store.Record(context.Background(), runResult(time.Now(), false)))
		require.NoError(t, store.Close())

		store, err = Open(path)
		require.NoError(t, err)
		defer store.Close()
		runs, err := store.Recent(context.Background(), 0)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Open("sqlite:")
		assert.Error(t, err)
	})
}

func TestDataSource(t *testing.T) {
	assert.Equal(t, "runs.db?_foreign_keys=on", dataSource("sqlite://runs.db"))
	assert.Equal(t, "file:runs.db?cache=shared&_foreign_keys=on", dataSource("file:runs.db?cache=shared"))
	assert.Equal(t, "", dataSource("  "))
}

func TestRecordAndQuery(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first := runResult(base, false)
	second := runResult(base.Add(time.Minute), true)
	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, second))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest := runs[0]
	assert.Equal(t, second.ID.String(), latest.ID)
	assert.Equal(t, "layout", latest.Bundle)
	assert.Equal(t, 4, latest.Workers)
	assert.True(t, latest.Started.Equal(base.Add(time.Minute)))
	assert.Equal(t, 1500*time.Microsecond, latest.Duration)
	assert.Equal(t, 1, latest.Failed)
	assert.Equal(t, 1, latest.ExitCode)
	assert.Equal(t, first.ID.String(), runs[1].ID)

	specs, err := store.Specs(ctx, second.ID.String())
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "struct", specs[0].Name)
	assert.True(t, specs[0].Passed)
	assert.Empty(t, specs[0].Output, "passing output is not stored")
	assert.Equal(t, 700*time.Microsecond, specs[0].Duration)

	assert.Equal(t, "skip-setup|serial", specs[1].Options)
	assert.False(t, specs[1].Passed)
	assert.True(t, specs[1].Aborted)
	assert.Equal(t, 1, specs[1].AssertsFailed)
	assert.Equal(t, "        [FAIL]  Aborted\n", specs[1].Output)
}

func TestRecordDuplicateRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	result := runResult(time.Now(), false)

	require.NoError(t, store.Record(ctx, result))
	err := store.Record(ctx, result)
	assert.ErrorContains(t, err, "insert run")

	specs, err := store.Specs(ctx, result.ID.String())
	require.NoError(t, err)
	assert.Len(t, specs, 2, "failed transaction leaves no partial rows")
}

func TestRecentLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultLimit+5; i++ {
		require.NoError(t, store.Record(ctx, runResult(base.Add(time.Duration(i)*time.Second), false)))
	}

	runs, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, DefaultLimit)

	runs, err = store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].Started.After(runs[1].Started))
}

func TestPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var oldest *runner.RunResult
	for i := 0; i < 5; i++ {
		r := runResult(base.Add(time.Duration(i)*time.Hour), false)
		if i == 0 {
			oldest = r
		}
		require.NoError(t, store.Record(ctx, r))
	}

	removed, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	specs, err := store.Specs(ctx, oldest.ID.String())
	require.NoError(t, err)
	assert.Empty(t, specs, "spec rows cascade with their run")
}
