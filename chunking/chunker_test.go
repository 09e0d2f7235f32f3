package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks_Offsets(t *testing.T) {
	text := strings.Repeat("a", 2500)

	chunks, err := SplitChunks(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	wantOffsets := []int{0, 800, 1600}
	wantLens := []int{1000, 1000, 900}
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, wantOffsets[i], c.Offset, "chunk %d offset", i)
		assert.Equal(t, wantLens[i], utf8.RuneCountInString(c.Text), "chunk %d length", i)
	}
}

func TestSplitChunks_OffsetsCoverText(t *testing.T) {
	text := strings.Repeat("b", 2500)

	chunks, err := SplitChunks(text, 1000, 200)
	require.NoError(t, err)

	last := chunks[len(chunks)-1]
	assert.Equal(t, 2500, last.Offset+utf8.RuneCountInString(last.Text))
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].Offset + utf8.RuneCountInString(chunks[i-1].Text)
		assert.Equal(t, prevEnd-200, chunks[i].Offset)
	}
}

func TestSplit_NoGaps(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{name: "shorter than one chunk", text: "hello", size: 10, overlap: 2},
		{name: "exact multiple of stride", text: strings.Repeat("xyz", 40), size: 20, overlap: 5},
		{name: "zero overlap", text: "The quick brown fox jumps over the lazy dog", size: 7, overlap: 0},
		{name: "maximal overlap", text: "abcdefghij", size: 4, overlap: 3},
		{name: "multi-byte runes", text: "日本語のテキストを分割します。絵文字🙂も含む", size: 5, overlap: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := SplitChunks(tt.text, tt.size, tt.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			// Rebuild the source by appending each chunk minus its overlap.
			var rebuilt []rune
			for i, c := range chunks {
				runes := []rune(c.Text)
				assert.LessOrEqual(t, len(runes), tt.size)
				assert.True(t, utf8.ValidString(c.Text))
				if i == 0 {
					rebuilt = append(rebuilt, runes...)
					continue
				}
				assert.Equal(t, len(rebuilt)-tt.overlap, c.Offset, "chunk %d must start overlap chars before previous end", i)
				rebuilt = append(rebuilt, runes[len(rebuilt)-c.Offset:]...)
			}
			assert.Equal(t, tt.text, string(rebuilt))
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("", 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "zero size", size: 0, overlap: 0},
		{name: "negative size", size: -5, overlap: 0},
		{name: "negative overlap", size: 10, overlap: -1},
		{name: "overlap equals size", size: 10, overlap: 10},
		{name: "overlap exceeds size", size: 10, overlap: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}

func TestSplit_MatchesSplitChunks(t *testing.T) {
	text := "one two three four five six seven eight nine ten"

	texts, err := Split(text, 12, 4)
	require.NoError(t, err)
	chunks, err := SplitChunks(text, 12, 4)
	require.NoError(t, err)

	require.Len(t, texts, len(chunks))
	for i := range chunks {
		assert.Equal(t, chunks[i].Text, texts[i])
	}
}
