// Package chunking splits document text into fixed-size overlapping chunks.
//
// Sizes and offsets are counted in Unicode code points, never bytes, so a
// chunk boundary never falls inside a multi-byte character. Consecutive
// chunks share exactly overlap characters, which means every character of
// the source appears in at least one chunk.
package chunking
