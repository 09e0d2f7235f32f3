package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a record repository is not provided.
	ErrRepositoryRequired = errors.New("record repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrPipelineReleased is returned by Run and IngestFile after Release.
	ErrPipelineReleased = errors.New("pipeline released")
)
