package ingestion

import (
	"maps"
	"strconv"

	"github.com/poiesic/docstore/chunking"
	"github.com/poiesic/docstore/core"
)

// RecordBuilder pairs chunks with their vectors for one document.
type RecordBuilder struct {
	clock      *core.MonotonicClock
	documentID string
	metadata   map[string]string
}

// NewRecordBuilder creates a builder for records of doc. model is recorded
// in metadata when non-empty.
func NewRecordBuilder(clock *core.MonotonicClock, doc Document, model string) *RecordBuilder {
	metadata := make(map[string]string, 3)
	if doc.Source != "" {
		metadata[core.MetadataSource] = doc.Source
	}
	if model != "" {
		metadata[core.MetadataModel] = model
	}
	return &RecordBuilder{
		clock:      clock,
		documentID: core.DocumentIDFromContent(doc.Text),
		metadata:   metadata,
	}
}

// DocumentID returns the content hash shared by every record of the document.
func (b *RecordBuilder) DocumentID() string {
	return b.documentID
}

// Build creates a record with a fresh id and the next clock timestamp.
// vector is used as given; callers truncate beforehand.
func (b *RecordBuilder) Build(chunk chunking.Chunk, vector []float32) *core.Record {
	metadata := maps.Clone(b.metadata)
	metadata[core.MetadataOffset] = strconv.Itoa(chunk.Offset)

	return &core.Record{
		Id:         core.NewRecordID(),
		Text:       chunk.Text,
		Vector:     vector,
		ChunkIndex: chunk.Index,
		DocumentID: b.documentID,
		CreatedAt:  b.clock.Now(),
		Metadata:   metadata,
	}
}
