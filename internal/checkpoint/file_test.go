package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "last_block.txt")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	return store, path
}

func TestFileStoreAbsentOnFirstRun(t *testing.T) {
	store, _ := newTestFileStore(t)

	_, ok, err := store.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreWriteRead(t *testing.T) {
	store, _ := newTestFileStore(t)

	require.NoError(t, store.Write(1095))

	block, ok, err := store.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1095), block)
}

func TestFileStoreRefusesBackwardsWrite(t *testing.T) {
	store, _ := newTestFileStore(t)

	require.NoError(t, store.Write(1000))
	err := store.Write(900)
	require.Error(t, err)

	block, ok, readErr := store.Read()
	require.NoError(t, readErr)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), block)
}

func TestFileStoreMonotonicAcrossRuns(t *testing.T) {
	store, _ := newTestFileStore(t)

	previous := int64(-1)
	for _, block := range []int64{100, 100, 250, 251} {
		require.NoError(t, store.Write(block))
		current, ok, err := store.Read()
		require.NoError(t, err)
		require.True(t, ok)
		assert.GreaterOrEqual(t, current, previous)
		previous = current
	}
}

func TestFileStoreIgnoresWhitespace(t *testing.T) {
	store, path := newTestFileStore(t)

	require.NoError(t, os.WriteFile(path, []byte("  1234\n"), 0o644))

	block, ok, err := store.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1234), block)
}

func TestFileStoreEmptyFileMeansAbsent(t *testing.T) {
	store, path := newTestFileStore(t)

	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	_, ok, err := store.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreCorruptValueErrors(t *testing.T) {
	store, path := newTestFileStore(t)

	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))

	_, _, err := store.Read()
	assert.Error(t, err)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	store, path := newTestFileStore(t)

	require.NoError(t, store.Write(42))
	require.NoError(t, store.Write(43))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
