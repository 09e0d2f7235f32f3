package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docstore"
	"github.com/poiesic/docstore/ai/mock"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/ingestion"
)

type harness struct {
	t       *testing.T
	dir     string
	db      string
	backend string
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{t: t, dir: dir, db: filepath.Join(dir, "store"), backend: backend}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	app := newApp(&out, docstore.WithProvider(mock.NewMockProvider()))
	base := []string{
		"docstore",
		"--log-level", "error",
		"--config", filepath.Join(h.dir, "missing.yaml"),
		"--env-file", filepath.Join(h.dir, "missing.env"),
		"--backend", h.backend,
		"--db", h.db,
	}
	err := app.Run(append(base, args...))
	return out.String(), err
}

func (h *harness) writeFile(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()
	var values []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var v T
		require.NoError(t, json.Unmarshal([]byte(line), &v), line)
		values = append(values, v)
	}
	return values
}

func TestSetupLogger(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)

	t.Run("rejects unknown level", func(t *testing.T) {
		err := app.Run([]string{"docstore", "--log-level", "loud", "count"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestEndToEnd(t *testing.T) {
	for _, backend := range []string{"badger", "sqlite", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			h := newHarness(t, backend)
			cat := h.writeFile("docs/cat.txt", "The cat sat on the mat.")
			h.writeFile("docs/nested/dog.txt", "The Dog ran home.")

			t.Run("ingest before init fails preflight", func(t *testing.T) {
				out, err := h.run("ingest", cat)
				assert.ErrorIs(t, err, errReported)
				payloads := decodeLines[errorView](t, out)
				require.Len(t, payloads, 1)
				assert.Equal(t, cat, payloads[0].Source)
				assert.NotEmpty(t, payloads[0].Error)
			})

			t.Run("check fails before init", func(t *testing.T) {
				_, err := h.run("check")
				assert.ErrorIs(t, err, errReported)
			})

			t.Run("init creates the collection", func(t *testing.T) {
				out, err := h.run("init")
				require.NoError(t, err)
				views := decodeLines[collectionView](t, out)
				require.Len(t, views, 1)
				assert.Equal(t, "metadata", views[0].Name)
				assert.Equal(t, ingestion.DefaultMaxDimensions, views[0].Dimensions)
			})

			t.Run("check passes after init", func(t *testing.T) {
				out, err := h.run("check")
				require.NoError(t, err)
				assert.Contains(t, out, "metadata")
			})

			t.Run("ingest expands globs", func(t *testing.T) {
				out, err := h.run("ingest", "--progress=false", filepath.Join(h.dir, "docs", "**", "*.txt"))
				require.NoError(t, err)
				results := decodeLines[summaryView](t, out)
				require.Len(t, results, 2)
				for _, r := range results {
					assert.Equal(t, 1, r.Attempted)
					assert.Equal(t, 1, r.Embedded)
					assert.Equal(t, 1, r.Stored)
					assert.Zero(t, r.Dropped)
					assert.Zero(t, r.Missed)
					assert.Equal(t, core.DocumentIDFromContent(mustRead(t, r.Source)), r.DocumentID)
				}
			})

			t.Run("count reports stored records", func(t *testing.T) {
				out, err := h.run("count")
				require.NoError(t, err)
				assert.Equal(t, "2", strings.TrimSpace(out))
			})

			t.Run("query finds the dog", func(t *testing.T) {
				out, err := h.run("query", "DOG")
				require.NoError(t, err)
				views := decodeLines[recordView](t, out)
				require.Len(t, views, 1)
				assert.Equal(t, "The Dog ran home.", views[0].Text)
				assert.Equal(t, 0, views[0].ChunkIndex)
				assert.Equal(t, mock.DefaultDimensions, views[0].Dimensions)
			})

			t.Run("query without a match prints the not-found payload", func(t *testing.T) {
				out, err := h.run("query", "bird")
				require.NoError(t, err)
				views := decodeLines[errorView](t, out)
				require.Len(t, views, 1)
				assert.Equal(t, notFoundMessage, views[0].Error)
			})

			t.Run("missing file is reported and other files still ingest", func(t *testing.T) {
				out, err := h.run("ingest", filepath.Join(h.dir, "nope.txt"), cat)
				assert.ErrorIs(t, err, errReported)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				require.Len(t, lines, 2)
				assert.Contains(t, lines[0], "error")
				assert.Contains(t, lines[1], `"stored":1`)
			})
		})
	}
}

func TestIngestCreateFlag(t *testing.T) {
	h := newHarness(t, "badger")
	doc := h.writeFile("a.txt", strings.Repeat("word ", 100))

	out, err := h.run("ingest", "--create", "--chunk-size", "100", "--chunk-overlap", "10", "--max-dimensions", "32", doc)
	require.NoError(t, err)
	results := decodeLines[summaryView](t, out)
	require.Len(t, results, 1)
	assert.Equal(t, results[0].Attempted, results[0].Stored)
	assert.Greater(t, results[0].Attempted, 1)

	t.Run("invalid chunking flags are rejected", func(t *testing.T) {
		_, err := h.run("ingest", "--chunk-size", "10", "--chunk-overlap", "10", doc)
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})
}

func TestIngestReportsDroppedChunks(t *testing.T) {
	h := newHarness(t, "badger")
	doc := h.writeFile("a.txt", "aaaaaaaaaabbbbbbbbbbcccccccccc")

	embedder := mock.NewMockEmbedder().FailOn("bbbbbbbbbb", core.NewEmbeddingError(assert.AnError, false))
	var out bytes.Buffer
	app := newApp(&out, docstore.WithProvider(mock.NewMockProviderWithEmbedder(embedder)))
	err := app.Run([]string{
		"docstore", "--log-level", "error",
		"--config", filepath.Join(h.dir, "missing.yaml"),
		"--env-file", filepath.Join(h.dir, "missing.env"),
		"--db", h.db,
		"ingest", "--create", "--chunk-size", "10", "--chunk-overlap", "0", doc,
	})
	require.NoError(t, err)

	results := decodeLines[summaryView](t, out.String())
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Attempted)
	assert.Equal(t, 2, results[0].Embedded)
	assert.Equal(t, 2, results[0].Stored)
	assert.Equal(t, 1, results[0].Dropped)
	assert.Zero(t, results[0].Missed)
	assert.Contains(t, out.String(), `"dropped":1`)
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.pdf", "sub/c.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	t.Run("recursive glob", func(t *testing.T) {
		paths, err := expandPaths([]string{filepath.Join(dir, "**", "*.txt")})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(dir, "a.txt"),
			filepath.Join(dir, "sub", "c.txt"),
		}, paths)
	})

	t.Run("literal paths are kept and deduplicated", func(t *testing.T) {
		literal := filepath.Join(dir, "missing.txt")
		paths, err := expandPaths([]string{literal, literal, filepath.Join(dir, "*.pdf")})
		require.NoError(t, err)
		assert.Equal(t, []string{literal, filepath.Join(dir, "b.pdf")}, paths)
	})

	t.Run("unmatched glob yields nothing", func(t *testing.T) {
		paths, err := expandPaths([]string{filepath.Join(dir, "*.md")})
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestProgressMonitor(t *testing.T) {
	var out bytes.Buffer
	m := newProgressMonitor(&out)

	m.Start("docs/a.txt", 3)
	m.ChunkEmbedded(0)
	m.ChunkDropped(1, assert.AnError)
	m.ChunkEmbedded(2)
	m.Finish(&ingestion.Result{Attempted: 3, Embedded: 2, Stored: 2})

	assert.Nil(t, m.bar)

	t.Run("zero chunks draws nothing", func(t *testing.T) {
		var quiet bytes.Buffer
		m := newProgressMonitor(&quiet)
		m.Start("empty.txt", 0)
		m.ChunkEmbedded(0)
		m.Finish(&ingestion.Result{})
		assert.Empty(t, quiet.String())
	})
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
