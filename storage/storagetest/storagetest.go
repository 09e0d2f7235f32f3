// Package storagetest holds behavioral tests shared by every
// storage.RecordRepository backend.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty repository bound to the "metadata" collection.
// The suite closes it.
type Factory func(t *testing.T) storage.RecordRepository

// NewRecord builds a valid record with the given text and clock.
func NewRecord(clock *core.MonotonicClock, index int, text string) *core.Record {
	return &core.Record{
		Id:         core.NewRecordID(),
		Text:       text,
		Vector:     []float32{float32(index), 0.5, -0.25},
		ChunkIndex: index,
		DocumentID: core.DocumentIDFromContent("suite"),
		CreatedAt:  clock.Now(),
		Metadata:   map[string]string{core.MetadataSource: "suite.txt"},
	}
}

// SuiteDimensions is the width of the collection the suite creates before
// inserting records.
const SuiteDimensions = 8

// Run exercises the RecordRepository contract against repositories from open.
func Run(t *testing.T, open Factory) {
	ctx := context.Background()

	// openReady returns a repository whose collection already exists.
	openReady := func(t *testing.T) storage.RecordRepository {
		repo := open(t)
		_, err := repo.EnsureCollection(ctx, SuiteDimensions)
		require.NoError(t, err)
		return repo
	}

	t.Run("preflight fails before the collection exists", func(t *testing.T) {
		repo := open(t)
		defer repo.Close()

		err := repo.Preflight(ctx, 768)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrPrecondition)
	})

	t.Run("ensure collection is idempotent", func(t *testing.T) {
		repo := open(t)
		defer repo.Close()

		first, err := repo.EnsureCollection(ctx, 768)
		require.NoError(t, err)
		assert.Equal(t, "metadata", first.Name)
		assert.Equal(t, 768, first.Dimensions)

		second, err := repo.EnsureCollection(ctx, 1536)
		require.NoError(t, err)
		assert.Equal(t, 768, second.Dimensions, "existing collection must not be altered")

		got, err := repo.GetCollection(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.Dimensions, got.Dimensions)
	})

	t.Run("preflight checks dimensions", func(t *testing.T) {
		repo := open(t)
		defer repo.Close()

		_, err := repo.EnsureCollection(ctx, 768)
		require.NoError(t, err)

		assert.NoError(t, repo.Preflight(ctx, 768))
		assert.NoError(t, repo.Preflight(ctx, 256))
		assert.ErrorIs(t, repo.Preflight(ctx, 1536), core.ErrPrecondition)
	})

	t.Run("insert and get round trip", func(t *testing.T) {
		repo := openReady(t)
		defer repo.Close()
		clock := core.NewMonotonicClock()

		record := NewRecord(clock, 0, "The cat sat")
		require.NoError(t, repo.InsertRecord(ctx, record))

		got, err := repo.GetRecord(ctx, record.Id)
		require.NoError(t, err)
		assert.Equal(t, record.Text, got.Text)
		assert.Equal(t, record.Vector, got.Vector)
		assert.Equal(t, record.ChunkIndex, got.ChunkIndex)
		assert.Equal(t, record.DocumentID, got.DocumentID)
		assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, record.Metadata, got.Metadata)
	})

	t.Run("get missing record", func(t *testing.T) {
		repo := openReady(t)
		defer repo.Close()

		_, err := repo.GetRecord(ctx, "does-not-exist")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		repo := openReady(t)
		defer repo.Close()
		clock := core.NewMonotonicClock()

		record := NewRecord(clock, 0, "first")
		require.NoError(t, repo.InsertRecord(ctx, record))

		dup := NewRecord(clock, 1, "second")
		dup.Id = record.Id
		err := repo.InsertRecord(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		count, err := repo.CountRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("invalid record rejected", func(t *testing.T) {
		repo := open(t)
		defer repo.Close()

		err := repo.InsertRecord(ctx, &core.Record{Id: "x", Text: "no vector"})
		assert.ErrorIs(t, err, core.ErrInvalidRecord)
	})

	t.Run("insert requires the collection", func(t *testing.T) {
		repo := open(t)
		defer repo.Close()

		err := repo.InsertRecord(ctx, NewRecord(core.NewMonotonicClock(), 0, "orphan"))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrPrecondition)

		count, err := repo.CountRecords(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("insert rejects vectors wider than the collection", func(t *testing.T) {
		repo := open(t)
		defer repo.Close()
		_, err := repo.EnsureCollection(ctx, 2)
		require.NoError(t, err)

		record := NewRecord(core.NewMonotonicClock(), 0, "too wide")
		err = repo.InsertRecord(ctx, record)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidRecord)

		_, err = repo.GetRecord(ctx, record.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		record.Vector = record.Vector[:2]
		assert.NoError(t, repo.InsertRecord(ctx, record))
	})

	t.Run("list returns stored order", func(t *testing.T) {
		repo := openReady(t)
		defer repo.Close()
		clock := core.NewMonotonicClock()

		var records []*core.Record
		for i := 0; i < 5; i++ {
			records = append(records, NewRecord(clock, i, fmt.Sprintf("chunk %d", i)))
		}
		// Insert out of order; listing follows CreatedAt.
		for _, i := range []int{3, 0, 4, 1, 2} {
			require.NoError(t, repo.InsertRecord(ctx, records[i]))
		}

		listed, err := repo.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 5)
		for i, r := range listed {
			assert.Equal(t, records[i].Id, r.Id)
		}

		count, err := repo.CountRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("empty collection lists nothing", func(t *testing.T) {
		repo := open(t)
		defer repo.Close()

		listed, err := repo.ListRecords(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)

		count, err := repo.CountRecords(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("concurrent inserts", func(t *testing.T) {
		repo := openReady(t)
		defer repo.Close()
		clock := core.NewMonotonicClock()

		const n = 50
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			record := NewRecord(clock, i, fmt.Sprintf("concurrent %d", i))
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.InsertRecord(ctx, record)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		count, err := repo.CountRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, n, count)
	})

	t.Run("closed repository rejects writes", func(t *testing.T) {
		repo := open(t)
		require.NoError(t, repo.Close())

		clock := core.NewMonotonicClock()
		err := repo.InsertRecord(ctx, NewRecord(clock, 0, "late"))
		assert.Error(t, err)
	})
}
