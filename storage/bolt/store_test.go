package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage"
	"github.com/poiesic/docstore/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordRepository {
		repo, err := NewRepository(filepath.Join(t.TempDir(), "docstore.bolt"), "metadata")
		require.NoError(t, err)
		return repo
	})
}

func TestRecordRepository_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docstore.bolt")
	clock := core.NewMonotonicClock()

	repo, err := NewRepository(path, "metadata")
	require.NoError(t, err)
	_, err = repo.EnsureCollection(ctx, 16)
	require.NoError(t, err)
	record := storagetest.NewRecord(clock, 0, "persisted")
	require.NoError(t, repo.InsertRecord(ctx, record))
	require.NoError(t, repo.Close())

	repo, err = NewRepository(path, "metadata")
	require.NoError(t, err)
	defer repo.Close()

	assert.NoError(t, repo.Preflight(ctx, 16))
	listed, err := repo.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, record.Id, listed[0].Id)
}
