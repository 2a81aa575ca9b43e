package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	store := OpenFile(path)
	seen, err := store.Has("a")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, store.Add("a"))
	require.NoError(t, store.Add("b"))

	seen, err = store.Has("a")
	require.NoError(t, err)
	require.True(t, seen)

	// A fresh open sees the committed state.
	reopened := OpenFile(path)
	for _, id := range []string{"a", "b"} {
		seen, err := reopened.Has(id)
		require.NoError(t, err)
		require.True(t, seen, "id %s lost across reopen", id)
	}
}

func TestFileStoreWritesPrettyJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := OpenFile(path)
	require.NoError(t, store.Add("post-1"))
	require.NoError(t, store.Add("post-2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	require.Equal(t, []string{"post-1", "post-2"}, ids)
	require.True(t, strings.Contains(string(data), "\n"), "ledger file should be pretty-printed")
}

func TestFileStoreDuplicateAddIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := OpenFile(path)
	require.NoError(t, store.Add("a"))
	require.NoError(t, store.Add("a"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	require.Len(t, ids, 1)
}

func TestFileStoreCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json at all"), 0o644))

	store := OpenFile(path)
	seen, err := store.Has("anything")
	require.NoError(t, err)
	require.False(t, seen)

	// Committing afterwards replaces the corrupt file with a valid one.
	require.NoError(t, store.Add("fresh"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	require.Equal(t, []string{"fresh"}, ids)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := OpenFile(filepath.Join(t.TempDir(), "never-written.json"))
	seen, err := store.Has("a")
	require.NoError(t, err)
	require.False(t, seen)
}
