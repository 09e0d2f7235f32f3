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
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docstore/core"
)

// RecordMUS encodes core.Record values in MUS format.
//
// Field order: Id, Text, Vector, ChunkIndex, DocumentID, CreatedAt (Unix
// micros), Metadata (sorted by key so equal records encode identically).
var RecordMUS = recordMUS{}

// CollectionMUS encodes core.Collection values in MUS format.
var CollectionMUS = collectionMUS{}

type recordMUS struct{}

func (s recordMUS) Marshal(v core.Record, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += varint.Int.Marshal(v.ChunkIndex, bs[n:])
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	n += marshalMetadata(v.Metadata, bs[n:])
	return
}

func (s recordMUS) Unmarshal(bs []byte) (v core.Record, n int, err error) {
	var n1 int
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.DocumentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.CreatedAt = time.UnixMicro(micros).UTC()
	v.Metadata, n1, err = unmarshalMetadata(bs[n:])
	n += n1
	return
}

func (s recordMUS) Size(v core.Record) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.Text)
	size += sizeVector(v.Vector)
	size += varint.Int.Size(v.ChunkIndex)
	size += ord.String.Size(v.DocumentID)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	return size + sizeMetadata(v.Metadata)
}

type collectionMUS struct{}

func (s collectionMUS) Marshal(v core.Collection, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int.Marshal(v.Dimensions, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return
}

func (s collectionMUS) Unmarshal(bs []byte) (v core.Collection, n int, err error) {
	var n1 int
	if v.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Dimensions, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	v.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

func (s collectionMUS) Size(v core.Collection) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int.Size(v.Dimensions)
	return size + varint.Int64.Size(v.CreatedAt.UnixMicro())
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	// Each component occupies 4 bytes; reject lengths the buffer cannot hold.
	if length < 0 || length > (len(bs)-n)/4 {
		err = fmt.Errorf("%w: vector of %d components", ErrTruncatedData, length)
		return
	}
	if length == 0 {
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		if v[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}
	return
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

func marshalMetadata(m map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(m), bs)
	for _, k := range sortedKeys(m) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return
}

func unmarshalMetadata(bs []byte) (m map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	// Every entry needs at least two length bytes.
	if length < 0 || length > (len(bs)-n)/2 {
		err = fmt.Errorf("%w: metadata of %d entries", ErrTruncatedData, length)
		return
	}
	if length == 0 {
		return
	}
	m = make(map[string]string, length)
	var (
		k, val string
		n1     int
	)
	for range length {
		if k, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		if val, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		m[k] = val
	}
	return
}

func sizeMetadata(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
