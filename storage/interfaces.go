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


package storage

import (
	"context"

	"github.com/poiesic/docstore/core"
)

// RecordRepository persists records into a single named collection.
// Implementations must be thread-safe and support concurrent access.
type RecordRepository interface {
	// Collection returns the name of the collection this repository is bound to.
	Collection() string

	// EnsureCollection creates the collection if it does not exist yet.
	// An existing collection is returned unchanged, whatever its dimensions.
	EnsureCollection(ctx context.Context, dimensions int) (*core.Collection, error)

	// GetCollection returns the collection descriptor.
	// Returns ErrNotFound if the collection doesn't exist.
	GetCollection(ctx context.Context) (*core.Collection, error)

	// Preflight verifies the collection exists and accepts vectors of
	// maxDimensions components. Failures wrap core.ErrPrecondition.
	Preflight(ctx context.Context, maxDimensions int) error

	// InsertRecord writes a single record.
	// Returns ErrDuplicateKey if a record with the same Id exists and
	// core.ErrInvalidRecord if the record fails validation.
	InsertRecord(ctx context.Context, record *core.Record) error

	// GetRecord retrieves a single record by Id.
	// Returns ErrNotFound if the record doesn't exist.
	GetRecord(ctx context.Context, id string) (*core.Record, error)

	// ListRecords returns every record of the collection in stored order
	// (CreatedAt ascending).
	ListRecords(ctx context.Context) ([]*core.Record, error)

	// CountRecords returns the number of records in the collection.
	CountRecords(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
