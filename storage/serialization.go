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
	"fmt"

	"github.com/poiesic/docstore/core"
)

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, RecordMUS.Size(*record))
	RecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	record, _, err := RecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalCollection serializes a Collection to bytes.
func MarshalCollection(collection *core.Collection) []byte {
	buf := make([]byte, CollectionMUS.Size(*collection))
	CollectionMUS.Marshal(*collection, buf)
	return buf
}

// UnmarshalCollection deserializes a Collection from bytes.
func UnmarshalCollection(data []byte) (*core.Collection, error) {
	collection, _, err := CollectionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: collection: %w", ErrSerializationFailed, err)
	}
	return &collection, nil
}

// PreflightCollection applies the shared precondition rules to a collection
// looked up by a backend. lookupErr is the error returned by that lookup.
func PreflightCollection(name string, collection *core.Collection, lookupErr error, maxDimensions int) error {
	if lookupErr != nil {
		return fmt.Errorf("%w: collection %q: %w", core.ErrPrecondition, name, lookupErr)
	}
	if !collection.Accepts(maxDimensions) {
		return fmt.Errorf("%w: collection %q holds %d dimensions, pipeline produces up to %d",
			core.ErrPrecondition, name, collection.Dimensions, maxDimensions)
	}
	return nil
}

// CheckRecordFits rejects a record for a missing collection or one whose
// vector is wider than the collection holds.
func CheckRecordFits(name string, collection *core.Collection, lookupErr error, record *core.Record) error {
	if lookupErr != nil {
		return fmt.Errorf("%w: collection %q: %w", core.ErrPrecondition, name, lookupErr)
	}
	if len(record.Vector) > collection.Dimensions {
		return fmt.Errorf("%w: record %s has %d dimensions, collection %q holds %d",
			core.ErrInvalidRecord, record.Id, len(record.Vector), name, collection.Dimensions)
	}
	return nil
}
