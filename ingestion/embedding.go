package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docstore/ai"
	"github.com/poiesic/docstore/chunking"
	"github.com/poiesic/docstore/core"
)

// embeddingStage embeds chunks one by one on a worker pool.
type embeddingStage struct {
	embedder ai.Embedder
	pool     *ants.Pool
	logger   *slog.Logger
}

func newEmbeddingStage(embedder ai.Embedder, pool *ants.Pool, logger *slog.Logger) *embeddingStage {
	return &embeddingStage{
		embedder: embedder,
		pool:     pool,
		logger:   logger.With("stage", "embeddings"),
	}
}

// process returns one slot per chunk, indexed like chunks. A nil slot marks
// a chunk that failed to embed. The second value counts filled slots.
func (s *embeddingStage) process(ctx context.Context, chunks []chunking.Chunk, monitor Monitor) ([][]float32, int) {
	s.logger.Info("embedding chunks", "chunks", len(chunks))

	vectors := make([][]float32, len(chunks))
	var (
		embedded atomic.Int64
		wg       sync.WaitGroup
	)

	for _, chunk := range chunks {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()

			vector, err := s.embedder.EmbedText(ctx, chunk.Text)
			if err == nil && len(vector) == 0 {
				err = core.NewEmbeddingError(errors.New("empty vector"), false)
			}
			if err != nil {
				s.drop(chunk.Index, err, monitor)
				return
			}
			vectors[chunk.Index] = vector
			embedded.Add(1)
			monitor.ChunkEmbedded(chunk.Index)
		})
		if err != nil {
			wg.Done()
			s.drop(chunk.Index, err, monitor)
		}
	}
	wg.Wait()

	return vectors, int(embedded.Load())
}

func (s *embeddingStage) drop(index int, err error, monitor Monitor) {
	var embedErr *core.EmbeddingError
	if errors.As(err, &embedErr) {
		// Attach the chunk position without mutating the embedder's error.
		tagged := *embedErr
		tagged.ChunkIndex = index
		err = &tagged
	} else {
		err = &core.EmbeddingError{ChunkIndex: index, Err: err}
	}
	s.logger.Warn("dropping chunk", "chunk", index, "err", err)
	monitor.ChunkDropped(index, err)
}
