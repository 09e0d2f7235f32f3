package badger

import (
	"testing"
	"time"

	"github.com/poiesic/docstore/storage"
	"github.com/poiesic/docstore/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	// Second close is a no-op.
	assert.NoError(t, backend.Close())
}

func TestWithTx_Closed(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	err = backend.WithTx(nil, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestRecordRepository_Memory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordRepository {
		repo, err := NewMemoryRepository("metadata")
		require.NoError(t, err)
		return repo
	})
}

func TestRecordRepository_Disk(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordRepository {
		repo, err := NewRepository(t.TempDir(), "metadata")
		require.NoError(t, err)
		return repo
	})
}

func TestRecordRepository_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	docs, err := NewRecordRepository(backend, "docs")
	require.NoError(t, err)
	notes, err := NewRecordRepository(backend, "notes")
	require.NoError(t, err)

	_, err = docs.EnsureCollection(t.Context(), 8)
	require.NoError(t, err)

	// Collections on the same backend are independent.
	_, err = notes.GetCollection(t.Context())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, docs.Close())
	assert.False(t, backend.IsClosed())
}

func TestNewRepository_InvalidCollection(t *testing.T) {
	_, err := NewRepository(t.TempDir(), "bad name!")
	assert.Error(t, err)
}

func TestRecordOrderKey_SortsByTime(t *testing.T) {
	a := makeRecordOrderKey("metadata", mustTime(t, "2025-01-01T00:00:00Z"), "zzz")
	b := makeRecordOrderKey("metadata", mustTime(t, "2025-01-01T00:00:01Z"), "aaa")
	assert.Less(t, string(a), string(b))
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
