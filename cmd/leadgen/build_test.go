package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepa-leadgen/internal/model"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestResolveAsOfFlag(t *testing.T) {
	got, err := resolveAsOf("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = resolveAsOf("2025-03-01T09:30:00-05:00", "ignored.csv")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC), got)

	_, err = resolveAsOf("March 1st")
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestResolveAsOfNewestInput(t *testing.T) {
	dir := t.TempDir()
	older := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 2, 20, 17, 45, 12, 0, time.UTC)

	tanks := filepath.Join(dir, "tanks.csv")
	touch(t, tanks, older)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "places"), 0o755))
	touch(t, filepath.Join(dir, "places", "a.csv"), older)
	touch(t, filepath.Join(dir, "places", "b.csv"), newer)

	got, err := resolveAsOf("", tanks, "", filepath.Join(dir, "places", "*.csv"))
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	again, err := resolveAsOf("", tanks, "", filepath.Join(dir, "places", "*.csv"))
	require.NoError(t, err)
	assert.Equal(t, got, again, "unchanged inputs give the same as_of")

	_, err = resolveAsOf("", filepath.Join(dir, "missing-*.csv"))
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}
