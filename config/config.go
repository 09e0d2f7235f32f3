// Package config loads the docstore YAML configuration and its environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/docstore/ai"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/ingestion"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

const (
	// DefaultCollection is the collection records are written to.
	DefaultCollection = "metadata"

	// DefaultStoragePath is the on-disk location of the default badger store.
	DefaultStoragePath = "docstore.db"
)

// ChunkingConfig controls how documents are split.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig points at an OpenAI-compatible embedding endpoint.
type EmbeddingConfig struct {
	Host    string        `yaml:"host"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// PipelineConfig tunes the ingestion pipeline.
type PipelineConfig struct {
	MaxDimensions int  `yaml:"max_dimensions"`
	Normalize     bool `yaml:"normalize"`
	Workers       int  `yaml:"workers"` // zero picks a size from the CPU count
}

// Config is the root configuration document.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    ingestion.DefaultChunkSize,
			Overlap: ingestion.DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Host:    ai.DefaultEmbeddingHost,
			Model:   ai.DefaultEmbeddingModel,
			Timeout: ai.DefaultTimeout,
		},
		Storage: StorageConfig{
			Backend:    BackendBadger,
			Path:       DefaultStoragePath,
			Collection: DefaultCollection,
		},
		Pipeline: PipelineConfig{
			MaxDimensions: ingestion.DefaultMaxDimensions,
		},
	}
}

// Load reads a config from path. A missing file yields the defaults;
// fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", core.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from DOCSTORE_* variables. OPENAI_API_KEY
// supplies the API key when DOCSTORE_API_KEY is unset.
func (c *Config) ApplyEnv() error {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) error {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", core.ErrInvalidConfig, name, err)
		}
		*dst = n
		return nil
	}

	setString("OPENAI_API_KEY", &c.Embedding.APIKey)
	setString("DOCSTORE_API_KEY", &c.Embedding.APIKey)
	setString("DOCSTORE_EMBEDDING_HOST", &c.Embedding.Host)
	setString("DOCSTORE_EMBEDDING_MODEL", &c.Embedding.Model)
	setString("DOCSTORE_BACKEND", &c.Storage.Backend)
	setString("DOCSTORE_PATH", &c.Storage.Path)
	setString("DOCSTORE_COLLECTION", &c.Storage.Collection)

	for name, dst := range map[string]*int{
		"DOCSTORE_CHUNK_SIZE":     &c.Chunking.Size,
		"DOCSTORE_CHUNK_OVERLAP":  &c.Chunking.Overlap,
		"DOCSTORE_MAX_DIMENSIONS": &c.Pipeline.MaxDimensions,
		"DOCSTORE_WORKERS":        &c.Pipeline.Workers,
	} {
		if err := setInt(name, dst); err != nil {
			return err
		}
	}

	if v, ok := os.LookupEnv("DOCSTORE_EMBEDDING_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: DOCSTORE_EMBEDDING_TIMEOUT: %w", core.ErrInvalidConfig, err)
		}
		c.Embedding.Timeout = d
	}
	return nil
}

// Validate checks every section. Failures wrap core.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive, got %d", core.ErrInvalidConfig, c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, %d), got %d",
			core.ErrInvalidConfig, c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Pipeline.MaxDimensions <= 0 {
		return fmt.Errorf("%w: pipeline.max_dimensions must be positive, got %d",
			core.ErrInvalidConfig, c.Pipeline.MaxDimensions)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: pipeline.workers must not be negative", core.ErrInvalidConfig)
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite, BackendBolt:
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", core.ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required", core.ErrInvalidConfig)
	}
	if err := core.ValidateCollectionName(c.Storage.Collection); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}

	return c.AIConfig().Validate()
}

// AIConfig returns the embedding settings as an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithTimeout(c.Embedding.Timeout),
	)
}

// PipelineOptions translates the chunking and pipeline sections into
// ingestion options.
func (c *Config) PipelineOptions() []ingestion.Option {
	opts := []ingestion.Option{
		ingestion.WithChunking(c.Chunking.Size, c.Chunking.Overlap),
		ingestion.WithMaxDimensions(c.Pipeline.MaxDimensions),
		ingestion.WithNormalize(c.Pipeline.Normalize),
	}
	if c.Pipeline.Workers > 0 {
		opts = append(opts, ingestion.WithPoolSize(c.Pipeline.Workers))
	}
	return opts
}
