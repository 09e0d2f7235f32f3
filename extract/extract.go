// Package extract turns source files into plain text for ingestion.
//
// PDFs are read with langchaingo's PDF loader, one document per page,
// joined with newlines. Everything else is read as UTF-8 text.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docstore/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// File extracts the text of the file at path.
// Every failure wraps core.ErrExtraction.
func File(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", core.ErrExtraction, path)
	}

	var docs []schema.Document
	if IsPDF(path) {
		docs, err = documentloaders.NewPDF(f, info.Size()).Load(ctx)
	} else {
		docs, err = documentloaders.NewText(f).Load(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrExtraction, path, err)
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		pages = append(pages, doc.PageContent)
	}
	return strings.Join(pages, "\n"), nil
}

// IsPDF reports whether path names a PDF by extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
