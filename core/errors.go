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


package core

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy
var (
	// ErrInvalidConfig indicates bad chunking, dimension or connection settings.
	// It is always fatal and raised before a run starts.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrExtraction indicates the source document could not be turned into text.
	// It aborts the run before any embedding or storage happens.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbeddingService indicates a single chunk could not be embedded.
	// The chunk is skipped; the run continues.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrStoreWrite indicates a single record could not be persisted.
	// The record is skipped; the run continues.
	ErrStoreWrite = errors.New("store write failed")

	// ErrPrecondition indicates the target collection cannot accept records.
	// It is fatal and raised before the first write.
	ErrPrecondition = errors.New("store precondition failed")
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyID indicates the record Id field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyText indicates the record Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyVector indicates the record Vector field is empty.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrMissingTimestamp indicates CreatedAt was never assigned.
	ErrMissingTimestamp = errors.New("created_at must be set")

	// ErrInvalidCollectionName indicates a collection name outside [A-Za-z0-9_-]{1,64}.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// EmbeddingError reports a failed embedding call for one chunk.
type EmbeddingError struct {
	// ChunkIndex is the position of the chunk in its document, or -1 when unknown.
	ChunkIndex int

	// Retriable is true for transient failures (timeouts, rate limits, 5xx).
	// Nothing in this module retries; the flag is informational for callers.
	Retriable bool

	Err error
}

// NewEmbeddingError wraps err as an embedding failure not yet tied to a chunk.
func NewEmbeddingError(err error, retriable bool) *EmbeddingError {
	return &EmbeddingError{ChunkIndex: -1, Retriable: retriable, Err: err}
}

func (e *EmbeddingError) Error() string {
	kind := "permanent"
	if e.Retriable {
		kind = "retriable"
	}
	if e.ChunkIndex < 0 {
		return fmt.Sprintf("%s (%s): %v", ErrEmbeddingService, kind, e.Err)
	}
	return fmt.Sprintf("%s (%s) on chunk %d: %v", ErrEmbeddingService, kind, e.ChunkIndex, e.Err)
}

func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbeddingService, e.Err}
}

// StoreWriteError reports a failed insert for one record.
type StoreWriteError struct {
	RecordID   string
	ChunkIndex int
	Err        error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%s: record %s (chunk %d): %v", ErrStoreWrite, e.RecordID, e.ChunkIndex, e.Err)
}

func (e *StoreWriteError) Unwrap() []error {
	return []error{ErrStoreWrite, e.Err}
}
