package chunking

import (
	"fmt"

	"github.com/poiesic/docstore/core"
)

// Chunk is a contiguous span of the source text.
type Chunk struct {
	Index  int    // Position in the chunk sequence, starting at 0
	Offset int    // Rune offset of the first character in the source
	Text   string // Chunk contents
}

// Validate checks a chunk size / overlap pair.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", core.ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			core.ErrInvalidConfig, overlap, size)
	}
	return nil
}

// SplitChunks splits text into chunks of at most size runes. Chunk i+1 starts
// overlap runes before the end of chunk i; the last chunk may be shorter.
// Empty text yields no chunks.
func SplitChunks(text string, size, overlap int) ([]Chunk, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []Chunk{}, nil
	}

	stride := size - overlap
	chunks := make([]Chunk, 0, (n+stride-1)/stride)
	for start := 0; ; start += stride {
		end := min(start+size, n)
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Offset: start,
			Text:   string(runes[start:end]),
		})
		if end == n {
			break
		}
	}
	return chunks, nil
}

// Split is SplitChunks without the positional bookkeeping.
func Split(text string, size, overlap int) ([]string, error) {
	chunks, err := SplitChunks(text, size, overlap)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out, nil
}
