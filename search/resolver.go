package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/storage"
)

// Resolve returns the first record whose text contains query, ignoring
// case, or nil when none does. An empty query matches the first record.
func Resolve(query string, records []*core.Record) *core.Record {
	needle := strings.ToLower(query)
	for _, record := range records {
		if record == nil {
			continue
		}
		if strings.Contains(strings.ToLower(record.Text), needle) {
			return record
		}
	}
	return nil
}

// Resolver answers queries against one collection.
type Resolver struct {
	repository storage.RecordRepository
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResolver creates a resolver reading from repository.
func NewResolver(repository storage.RecordRepository, opts ...Option) (*Resolver, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	r := &Resolver{
		repository: repository,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "resolver", "collection", repository.Collection())
	return r, nil
}

// Find loads the collection in stored order and returns the first record
// matching query. A nil record with a nil error means nothing matched.
func (r *Resolver) Find(ctx context.Context, query string) (*core.Record, error) {
	records, err := r.repository.ListRecords(ctx)
	if err != nil {
		r.logger.Error("failed to list records", "err", err)
		return nil, err
	}

	match := Resolve(query, records)
	if match == nil {
		r.logger.Debug("no matching record", "query", query, "scanned", len(records))
		return nil, nil
	}
	r.logger.Debug("resolved query", "query", query, "id", match.Id, "chunk", match.ChunkIndex)
	return match, nil
}
