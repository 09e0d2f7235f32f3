package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("The cat sat.\nThe Dog ran."), 0644))

	text, err := File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.\nThe Dog ran.", text)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestFile_Directory(t *testing.T) {
	_, err := File(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestFile_PDF(t *testing.T) {
	text, err := File(context.Background(), filepath.Join("testdata", "two-pages.pdf"))
	require.NoError(t, err)

	pages := strings.Split(text, "\n")
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Hello from page one")
	assert.Contains(t, pages[1], "The Dog ran on page two")
}

func TestFile_CorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	_, err := File(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("report.pdf"))
	assert.True(t, IsPDF("REPORT.PDF"))
	assert.False(t, IsPDF("report.txt"))
	assert.False(t, IsPDF("pdf"))
}
