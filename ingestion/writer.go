package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage"
)

// StoreWriter inserts records one at a time, isolating failures.
type StoreWriter struct {
	repo    storage.RecordRepository
	pool    *ants.Pool
	monitor Monitor
	logger  *slog.Logger
}

// NewStoreWriter creates a writer. With a nil pool records are written
// sequentially on the calling goroutine; a nil monitor is a no-op.
func NewStoreWriter(repo storage.RecordRepository, pool *ants.Pool, monitor Monitor, logger *slog.Logger) *StoreWriter {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreWriter{
		repo:    repo,
		pool:    pool,
		monitor: monitor,
		logger:  logger.With("stage", "store"),
	}
}

// Write inserts every record and returns how many were stored. Failed
// records are logged and reported to the monitor; none is retried.
func (w *StoreWriter) Write(ctx context.Context, records []*core.Record) int {
	var stored atomic.Int64

	if w.pool == nil {
		for _, record := range records {
			if w.writeOne(ctx, record) {
				stored.Add(1)
			}
		}
		return int(stored.Load())
	}

	var wg sync.WaitGroup
	for _, record := range records {
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			if w.writeOne(ctx, record) {
				stored.Add(1)
			}
		})
		if err != nil {
			wg.Done()
			w.fail(record, err)
		}
	}
	wg.Wait()

	return int(stored.Load())
}

func (w *StoreWriter) writeOne(ctx context.Context, record *core.Record) bool {
	if err := w.repo.InsertRecord(ctx, record); err != nil {
		w.fail(record, err)
		return false
	}
	w.monitor.RecordStored(record)
	return true
}

func (w *StoreWriter) fail(record *core.Record, err error) {
	writeErr := &core.StoreWriteError{RecordID: record.Id, ChunkIndex: record.ChunkIndex, Err: err}
	w.logger.Warn("failed to store record", "id", record.Id, "chunk", record.ChunkIndex, "err", err)
	w.monitor.RecordFailed(record, writeErr)
}
