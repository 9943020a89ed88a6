package buildlog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luapack/luapack/internal/buildlog"
)

func newStore(t *testing.T) *buildlog.Store {
	t.Helper()

	return buildlog.Open(filepath.Join(t.TempDir(), "luapack.log"))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"info", "success", "warning", "error"} {
		level, err := buildlog.ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, buildlog.Level(name), level)
	}

	_, err := buildlog.ParseLevel("debug")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"debug"`)
}

func TestStoreAppendAndEntries(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	require.NoError(t, store.Log(buildlog.LevelInfo, "cli", "analyze", "started"))
	require.NoError(t, store.Log(buildlog.LevelSuccess, "cli", "analyze", "found 3 dependencies"))
	require.NoError(t, store.Log(buildlog.LevelError, "api", "build", "luastatic not found"))

	entries, err := store.Entries(buildlog.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "started", entries[0].Message, "entries are stored oldest first")
	assert.False(t, entries[0].Time.IsZero(), "append stamps the time")
}

func TestStoreFilters(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Log(buildlog.LevelInfo, "cli", "analyze", "a"))
	require.NoError(t, store.Log(buildlog.LevelError, "cli", "build", "b"))
	require.NoError(t, store.Log(buildlog.LevelError, "api", "build", "c"))

	byLevel, err := store.Entries(buildlog.Filter{Level: buildlog.LevelError})
	require.NoError(t, err)
	assert.Len(t, byLevel, 2)

	bySource, err := store.Entries(buildlog.Filter{Source: "api"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "c", bySource[0].Message)

	byAction, err := store.Entries(buildlog.Filter{Action: "analyze"})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "a", byAction[0].Message)
}

func TestStoreLimitAndOrder(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, store.Log(buildlog.LevelInfo, "cli", "analyze", msg))
	}

	newest, err := store.Entries(buildlog.Filter{Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "third", newest[0].Message)
	assert.Equal(t, "second", newest[1].Message)
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	entries, err := newStore(t).Entries(buildlog.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "luapack.log")
	store := buildlog.Open(path)
	require.NoError(t, store.Log(buildlog.LevelInfo, "cli", "analyze", "good"))

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, store.Log(buildlog.LevelInfo, "cli", "analyze", "after"))

	entries, readErr := store.Entries(buildlog.Filter{})
	require.NoError(t, readErr)
	require.Len(t, entries, 2)
	assert.Equal(t, "good", entries[0].Message)
	assert.Equal(t, "after", entries[1].Message)
}

func TestStoreClear(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Log(buildlog.LevelInfo, "cli", "analyze", "x"))
	require.NoError(t, store.Clear())

	entries, err := store.Entries(buildlog.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Clear(), "clearing an empty store is not an error")
}

func TestStoreRotation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "luapack.log")
	store := buildlog.OpenWithMaxSize(path, 256)

	long := strings.Repeat("x", 64)
	for range 16 {
		require.NoError(t, store.Log(buildlog.LevelInfo, "cli", "analyze", long))
	}

	_, err := os.Stat(path + ".1.lz4")
	require.NoError(t, err, "rotation produces a compressed archive")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(512), "live log restarts after rotation")
}
