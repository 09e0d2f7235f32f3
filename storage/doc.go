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


// Package storage provides the storage abstraction layer for docstore.
//
// This package defines the RecordRepository interface that decouples the
// ingestion pipeline and query resolver from the concrete vector store.
// Three backends implement it:
//
//   - badger: embedded BadgerDB, the default
//   - sqlite: a single SQLite file accessed through database/sql
//   - bolt: an embedded bbolt file
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.RecordRepository interface:
//
//	repo, err := badger.NewRepository(path, "metadata")
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Serialization
//
// Key/value backends store records MUS-encoded (see RecordMUS). The encoding
// keeps CreatedAt at microsecond resolution, which is also the resolution the
// record clock hands out.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository("metadata")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
