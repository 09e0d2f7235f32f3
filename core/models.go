package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// Metadata keys attached to every record by the ingestion pipeline.
const (
	MetadataSource = "source"
	MetadataModel  = "model"
	MetadataOffset = "offset"
)

// NewRecordID returns a random (version 4) UUID string.
// 122 random bits make collisions negligible for the lifetime of a process.
func NewRecordID() string {
	return uuid.NewString()
}

// DocumentIDFromContent generates a deterministic document ID from the extracted
// text using BLAKE2b hashing, so re-ingesting the same text yields the same ID.
func DocumentIDFromContent(text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Record is the persisted unit: one chunk of source text and its embedding.
// Records are inserted once and never updated in place.
type Record struct {
	Id         string
	Text       string
	Vector     []float32         // Possibly truncated embedding
	ChunkIndex int               // Position of the chunk within its document
	DocumentID string            // Content hash of the source document
	CreatedAt  time.Time         // Strictly increasing within a process
	Metadata   map[string]string // Optional metadata (e.g., "source", "model")
}

// Collection is the named target that records are written to.
type Collection struct {
	Name       string
	Dimensions int // Widest vector the collection accepts
	CreatedAt  time.Time
}

// Accepts reports whether the collection can hold vectors of the given length.
func (c *Collection) Accepts(dimensions int) bool {
	return dimensions > 0 && dimensions <= c.Dimensions
}
