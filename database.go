// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docstore/ai"
	"github.com/poiesic/docstore/ai/openai"
	"github.com/poiesic/docstore/config"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/ingestion"
	"github.com/poiesic/docstore/search"
	"github.com/poiesic/docstore/storage"
	"github.com/poiesic/docstore/storage/badger"
	"github.com/poiesic/docstore/storage/bolt"
	"github.com/poiesic/docstore/storage/sqlite"
)

// Database owns one record repository and one embedding provider, and
// hands them to the pipelines and resolvers it creates.
type Database struct {
	config     *config.Config
	repository storage.RecordRepository
	provider   ai.AIProvider
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider supplies the embedding provider instead of building an
// OpenAI-compatible one from the configuration.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger handed to pipelines and resolvers.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// OpenRepository opens the record store selected by cfg.
func OpenRepository(cfg config.StorageConfig) (storage.RecordRepository, error) {
	switch cfg.Backend {
	case config.BackendBadger, "":
		return badger.NewRepository(cfg.Path, cfg.Collection)
	case config.BackendSQLite:
		return sqlite.NewRepository(cfg.Path, cfg.Collection)
	case config.BackendBolt:
		return bolt.NewRepository(cfg.Path, cfg.Collection)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", core.ErrInvalidConfig, cfg.Backend)
	}
}

// Open validates cfg, opens its record store and creates the embedding
// provider.
func Open(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repository, err := OpenRepository(cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			repository.Close()
			return nil, err
		}
	}

	return &Database{
		config:     cfg,
		repository: repository,
		provider:   provider,
		logger:     options.logger,
	}, nil
}

// Close releases the provider and the record store.
func (db *Database) Close() error {
	var errs []error
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := db.repository.Close(); err != nil {
		db.logger.Error("error closing record repository", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Config returns the configuration the database was opened with.
func (db *Database) Config() *config.Config {
	return db.config
}

// Repository returns the underlying record store.
func (db *Database) Repository() storage.RecordRepository {
	return db.repository
}

// Provider returns the embedding provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// EnsureCollection creates the configured collection sized for the
// configured max dimensions. An existing collection is returned as is.
func (db *Database) EnsureCollection(ctx context.Context) (*core.Collection, error) {
	return db.repository.EnsureCollection(ctx, db.config.Pipeline.MaxDimensions)
}

// NewIngestionPipeline builds a pipeline from the configuration. opts are
// applied after the configured ones and take precedence.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	all := append(db.config.PipelineOptions(),
		ingestion.WithModelName(db.provider.ModelName()),
		ingestion.WithLogger(db.logger),
	)
	all = append(all, opts...)
	return ingestion.NewPipeline(db.repository, db.provider.Embedder(), all...)
}

// NewResolver returns a query resolver over the configured collection.
func (db *Database) NewResolver(opts ...search.Option) (*search.Resolver, error) {
	all := append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewResolver(db.repository, all...)
}
