package sqlite

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

func openTestRepo(t *testing.T) storage.RecordRepository {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "docstore.db"), "metadata")
	require.NoError(t, err)
	return repo
}

func TestRecordRepository(t *testing.T) {
	storagetest.Run(t, openTestRepo)
}

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docstore.db")

	db, err := Open(path)
	require.NoError(t, err)
	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
	require.NoError(t, db.Close())

	// Reopening an existing file is a no-op migration.
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	version, err = db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestPreflight_MissingVectorColumn(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docstore.db")

	repo, err := NewRepository(path, "metadata")
	require.NoError(t, err)
	defer repo.Close()
	_, err = repo.EnsureCollection(ctx, 768)
	require.NoError(t, err)

	sqlRepo := repo.(*RecordRepository)
	_, err = sqlRepo.db.sqlDB.Exec("ALTER TABLE records DROP COLUMN vector")
	require.NoError(t, err)

	err = repo.Preflight(ctx, 768)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPrecondition)
	assert.Contains(t, err.Error(), "vector column")
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docstore.db")

	docs, err := NewRepository(path, "docs")
	require.NoError(t, err)
	defer docs.Close()
	_, err = docs.EnsureCollection(ctx, 4)
	require.NoError(t, err)
	clock := core.NewMonotonicClock()
	require.NoError(t, docs.InsertRecord(ctx, storagetest.NewRecord(clock, 0, "in docs")))
	require.NoError(t, docs.Close())

	notes, err := NewRepository(path, "notes")
	require.NoError(t, err)
	defer notes.Close()

	count, err := notes.CountRecords(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVectorBlobRoundTrip(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, 3.4028235e38}

	decoded, err := blobToVector(vectorToBlob(vector))
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)

	_, err = blobToVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, storage.ErrTruncatedData)
}
