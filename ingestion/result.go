package ingestion

// Document is the unit of ingestion: extracted text and where it came from.
type Document struct {
	Source string // File path or other label, stored as record metadata
	Text   string
}

// Result summarizes one pipeline run.
// Stored <= Embedded <= Attempted always holds.
type Result struct {
	Source     string `json:"source"`
	DocumentID string `json:"document_id,omitempty"`
	Attempted  int    `json:"attempted"` // Chunks produced by the chunker
	Embedded   int    `json:"embedded"`  // Chunks that received a vector
	Stored     int    `json:"stored"`    // Records persisted
}

// Dropped is the number of chunks that failed to embed.
func (r *Result) Dropped() int {
	return r.Attempted - r.Embedded
}

// Missed is the number of embedded chunks whose record failed to store.
func (r *Result) Missed() int {
	return r.Embedded - r.Stored
}
