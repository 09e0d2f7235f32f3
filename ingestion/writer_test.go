package ingestion

import (
	"context"
	"fmt"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWriter_Write(t *testing.T) {
	clock := core.NewMonotonicClock()
	build := func(n int) []*core.Record {
		records := make([]*core.Record, n)
		for i := range records {
			records[i] = storagetest.NewRecord(clock, i, fmt.Sprintf("record %d", i))
		}
		return records
	}

	t.Run("sequential", func(t *testing.T) {
		repo := setupRepository(t, 768)
		writer := NewStoreWriter(repo, nil, nil, nil)

		assert.Equal(t, 3, writer.Write(context.Background(), build(3)))
	})

	t.Run("pooled", func(t *testing.T) {
		repo := setupRepository(t, 768)
		pool, err := ants.NewPool(4)
		require.NoError(t, err)
		defer pool.Release()
		writer := NewStoreWriter(repo, pool, nil, nil)

		assert.Equal(t, 20, writer.Write(context.Background(), build(20)))
		count, err := repo.CountRecords(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 20, count)
	})

	t.Run("vector wider than the collection is a miss", func(t *testing.T) {
		repo := setupRepository(t, 2)
		monitor := &recordingMonitor{}
		writer := NewStoreWriter(repo, nil, monitor, nil)

		assert.Zero(t, writer.Write(context.Background(), build(1)))
		require.Len(t, monitor.failed, 1)
		assert.ErrorIs(t, monitor.failed[0], core.ErrStoreWrite)
		assert.ErrorIs(t, monitor.failed[0], core.ErrInvalidRecord)
	})

	t.Run("duplicate and invalid records are misses", func(t *testing.T) {
		repo := setupRepository(t, 768)
		monitor := &recordingMonitor{}
		writer := NewStoreWriter(repo, nil, monitor, nil)

		records := build(3)
		records[2].Id = records[0].Id
		invalid := &core.Record{Id: "no-vector", Text: "x", CreatedAt: clock.Now()}

		stored := writer.Write(context.Background(), append(records, invalid))
		assert.Equal(t, 2, stored)
		require.Len(t, monitor.failed, 2)
		for _, err := range monitor.failed {
			assert.ErrorIs(t, err, core.ErrStoreWrite)
		}
	})

	t.Run("closed store misses everything", func(t *testing.T) {
		repo := setupRepository(t, 768)
		require.NoError(t, repo.Close())
		writer := NewStoreWriter(repo, nil, nil, nil)

		assert.Zero(t, writer.Write(context.Background(), build(2)))
	})

	t.Run("empty input", func(t *testing.T) {
		repo := setupRepository(t, 768)
		writer := NewStoreWriter(repo, nil, nil, nil)

		assert.Zero(t, writer.Write(context.Background(), nil))
	})
}
