package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docstore/ai"
	"github.com/poiesic/docstore/chunking"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/extract"
	"github.com/poiesic/docstore/storage"
	"github.com/poiesic/docstore/vector"
)

// Defaults applied by NewPipeline.
const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
	DefaultMaxDimensions = 768
)

// processClock is shared by every pipeline so CreatedAt stays strictly
// increasing across pipelines in one process.
var processClock = core.NewMonotonicClock()

// Pipeline chunks, embeds, truncates and stores documents.
// A Pipeline is safe for concurrent Run calls.
type Pipeline struct {
	repository    storage.RecordRepository
	embedder      ai.Embedder
	embeddingPool *ants.Pool
	writePool     *ants.Pool
	chunkSize     int
	chunkOverlap  int
	maxDimensions int
	normalize     bool
	modelName     string
	clock         *core.MonotonicClock
	monitor       Monitor
	logger        *slog.Logger
	preflightOK   atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the chunk size and overlap, in characters.
// Default is 1000 / 200.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if err := chunking.Validate(size, overlap); err != nil {
			return err
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithMaxDimensions sets the width vectors are truncated to. Default is 768.
func WithMaxDimensions(n int) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return fmt.Errorf("%w: max dimensions must be positive, got %d", core.ErrInvalidConfig, n)
		}
		p.maxDimensions = n
		return nil
	}
}

// WithNormalize rescales vectors to unit length after truncation.
func WithNormalize(normalize bool) Option {
	return func(p *Pipeline) error {
		p.normalize = normalize
		return nil
	}
}

// WithPoolSize sets the worker pool size for embedding and writing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pools
		p.releasePools()

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		writePool, err := ants.NewPool(size)
		if err != nil {
			embeddingPool.Release()
			return err
		}

		p.embeddingPool = embeddingPool
		p.writePool = writePool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMonitor installs hooks that observe each run.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithModelName records the embedding model in record metadata.
func WithModelName(name string) Option {
	return func(p *Pipeline) error {
		p.modelName = name
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing to repository.
func NewPipeline(repository storage.RecordRepository, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		repository:    repository,
		embedder:      embedder,
		chunkSize:     DefaultChunkSize,
		chunkOverlap:  DefaultChunkOverlap,
		maxDimensions: DefaultMaxDimensions,
		clock:         processClock,
		monitor:       &noopMonitor{},
		logger:        slog.Default(),
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	if err := WithPoolSize(poolSize)(p); err != nil {
		return nil, err
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.logger = p.logger.With("component", "ingestion", "collection", repository.Collection())
	return p, nil
}

// MaxDimensions returns the width vectors are truncated to.
func (p *Pipeline) MaxDimensions() int {
	return p.maxDimensions
}

// Preflight checks the target collection once; a successful check is cached
// for the lifetime of the pipeline.
func (p *Pipeline) Preflight(ctx context.Context) error {
	if p.preflightOK.Load() {
		return nil
	}
	if err := p.repository.Preflight(ctx, p.maxDimensions); err != nil {
		return err
	}
	p.preflightOK.Store(true)
	return nil
}

// Run ingests one document. Per-chunk embedding failures and per-record
// write failures are reflected only in the Result counts; the returned
// error is reserved for preflight failures and cancellation.
func (p *Pipeline) Run(ctx context.Context, doc Document) (*Result, error) {
	if p.released() {
		return nil, ErrPipelineReleased
	}
	logger := p.logger.With("source", doc.Source)

	if err := p.Preflight(ctx); err != nil {
		logger.Error("preflight failed", "err", err)
		return nil, err
	}

	chunks, err := chunking.SplitChunks(doc.Text, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return nil, err
	}

	builder := NewRecordBuilder(p.clock, doc, p.modelName)
	result := &Result{
		Source:     doc.Source,
		DocumentID: builder.DocumentID(),
		Attempted:  len(chunks),
	}
	p.monitor.Start(doc.Source, len(chunks))

	stage := newEmbeddingStage(p.embedder, p.embeddingPool, p.logger)
	vectors, embedded := stage.process(ctx, chunks, p.monitor)
	result.Embedded = embedded

	if err := ctx.Err(); err != nil {
		p.monitor.Finish(result)
		return result, err
	}

	records := make([]*core.Record, 0, embedded)
	for i, v := range vectors {
		if v == nil {
			continue
		}
		v, err = vector.Truncate(v, p.maxDimensions)
		if err != nil {
			return nil, err
		}
		if p.normalize {
			v = vector.Normalize(v)
		}
		records = append(records, builder.Build(chunks[i], v))
	}

	writer := NewStoreWriter(p.repository, p.writePool, p.monitor, p.logger)
	result.Stored = writer.Write(ctx, records)

	logger.Info("ingested document",
		"attempted", result.Attempted,
		"embedded", result.Embedded,
		"stored", result.Stored)
	p.monitor.Finish(result)
	return result, nil
}

// IngestFile extracts the text of path and runs it through the pipeline.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Result, error) {
	if p.released() {
		return nil, ErrPipelineReleased
	}
	text, err := extract.File(ctx, path)
	if err != nil {
		p.logger.Error("extraction failed", "source", path, "err", err)
		return nil, err
	}
	return p.Run(ctx, Document{Source: path, Text: text})
}

// Release releases resources including worker pools. Later Run and
// IngestFile calls fail with ErrPipelineReleased. Release is idempotent.
func (p *Pipeline) Release() {
	for _, pool := range []*ants.Pool{p.embeddingPool, p.writePool} {
		if pool != nil {
			pool.Release()
		}
	}
}

func (p *Pipeline) released() bool {
	return p.embeddingPool == nil || p.embeddingPool.IsClosed() ||
		p.writePool == nil || p.writePool.IsClosed()
}

func (p *Pipeline) releasePools() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
		p.embeddingPool = nil
	}
	if p.writePool != nil {
		p.writePool.Release()
		p.writePool = nil
	}
}
