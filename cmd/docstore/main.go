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


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docstore"
	"github.com/poiesic/docstore/config"
	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/ingestion"
)

const notFoundMessage = "No relevant document found"

// errReported is returned after a failure has already been written to
// stdout as a JSON error payload.
var errReported = errors.New("docstore: command failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(os.Stdout)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// commands carries what every subcommand needs to open the store.
type commands struct {
	dbOpts []docstore.DatabaseOption
}

func newApp(out io.Writer, dbOpts ...docstore.DatabaseOption) *cli.App {
	cmds := &commands{dbOpts: dbOpts}
	return &cli.App{
		Name:      "docstore",
		Usage:     "Chunk, embed and store documents, then look them up by text",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "docstore.yaml",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Dotenv files to load before reading the environment",
				Value: cli.NewStringSlice(".env"),
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend (badger, sqlite, bolt)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the record store",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Collection to read and write",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the collection sized for the configured max dimensions",
				Action: cmds.initCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-dimensions",
						Usage: "Widest vector the collection accepts",
					},
				},
			},
			{
				Name:   "check",
				Usage:  "Verify the collection can accept records",
				Action: cmds.checkCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest files matching the given paths or glob patterns",
				ArgsUsage: "PATH|GLOB...",
				Action:    cmds.ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum characters per chunk",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared between adjacent chunks",
					},
					&cli.IntFlag{
						Name:  "max-dimensions",
						Usage: "Truncate embeddings to this many components",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Worker pool size for embedding and writes",
					},
					&cli.BoolFlag{
						Name:  "create",
						Usage: "Create the collection if it does not exist",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar (default: when stderr is a terminal)",
						Value: progressEnabled(),
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Print the first stored chunk containing TEXT",
				ArgsUsage: "TEXT",
				Action:    cmds.queryCommand,
			},
			{
				Name:   "count",
				Usage:  "Print the number of stored records",
				Action: cmds.countCommand,
			},
		},
	}
}

// loadConfig layers the config file, dotenv files, environment and flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadEnv(c.StringSlice("env-file")...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.IsSet("backend") {
		cfg.Storage.Backend = c.String("backend")
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("collection") {
		cfg.Storage.Collection = c.String("collection")
	}
	if c.IsSet("chunk-size") {
		cfg.Chunking.Size = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		cfg.Chunking.Overlap = c.Int("chunk-overlap")
	}
	if c.IsSet("max-dimensions") {
		cfg.Pipeline.MaxDimensions = c.Int("max-dimensions")
	}
	if c.IsSet("workers") {
		cfg.Pipeline.Workers = c.Int("workers")
	}
	return cfg, nil
}

func (cmds *commands) open(c *cli.Context) (*docstore.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := docstore.Open(cfg, cmds.dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (cmds *commands) initCommand(c *cli.Context) error {
	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	coll, err := db.EnsureCollection(c.Context)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return writeJSON(c.App.Writer, collectionView{
		Name:       coll.Name,
		Dimensions: coll.Dimensions,
		CreatedAt:  coll.CreatedAt,
	})
}

func (cmds *commands) checkCommand(c *cli.Context) error {
	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	maxDims := db.Config().Pipeline.MaxDimensions
	if err := db.Repository().Preflight(c.Context, maxDims); err != nil {
		_ = writeJSON(c.App.Writer, errorView{Error: err.Error()})
		return errReported
	}
	fmt.Fprintf(c.App.Writer, "collection %q accepts %d-dimensional vectors\n",
		db.Repository().Collection(), maxDims)
	return nil
}

func (cmds *commands) ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one path or glob is required")
	}
	paths, err := expandPaths(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		_ = writeJSON(c.App.Writer, errorView{Error: "no files matched"})
		return errReported
	}

	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Bool("create") {
		if _, err := db.EnsureCollection(c.Context); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	var opts []ingestion.Option
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithMonitor(newProgressMonitor(c.App.ErrWriter)))
	}
	pipeline, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	failed := 0
	for _, path := range paths {
		result, err := pipeline.IngestFile(c.Context, path)
		if err != nil {
			failed++
			_ = writeJSON(c.App.Writer, errorView{Source: path, Error: err.Error()})
			// Preflight and cancellation apply to every remaining file.
			if errors.Is(err, core.ErrPrecondition) || c.Context.Err() != nil {
				return errReported
			}
			continue
		}
		if err := writeJSON(c.App.Writer, newSummaryView(result)); err != nil {
			return err
		}
	}

	if failed > 0 {
		return errReported
	}
	return nil
}

func (cmds *commands) queryCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	resolver, err := db.NewResolver()
	if err != nil {
		return err
	}
	record, err := resolver.Find(c.Context, query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if record == nil {
		return writeJSON(c.App.Writer, errorView{Error: notFoundMessage})
	}
	return writeJSON(c.App.Writer, newRecordView(record))
}

func (cmds *commands) countCommand(c *cli.Context) error {
	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Repository().CountRecords(c.Context)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}

// expandPaths resolves glob patterns. Arguments without glob syntax are
// kept even when missing so extraction can report them.
func expandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

type errorView struct {
	Source string `json:"source,omitempty"`
	Error  string `json:"error"`
}

// summaryView is the per-document ingest report.
type summaryView struct {
	Source     string `json:"source"`
	DocumentID string `json:"document_id,omitempty"`
	Attempted  int    `json:"attempted"`
	Embedded   int    `json:"embedded"`
	Stored     int    `json:"stored"`
	Dropped    int    `json:"dropped"`
	Missed     int    `json:"missed"`
}

func newSummaryView(r *ingestion.Result) summaryView {
	return summaryView{
		Source:     r.Source,
		DocumentID: r.DocumentID,
		Attempted:  r.Attempted,
		Embedded:   r.Embedded,
		Stored:     r.Stored,
		Dropped:    r.Dropped(),
		Missed:     r.Missed(),
	}
}

type collectionView struct {
	Name       string    `json:"name"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
}

type recordView struct {
	Id         string            `json:"id"`
	Text       string            `json:"text"`
	ChunkIndex int               `json:"chunk_index"`
	DocumentID string            `json:"document_id,omitempty"`
	Dimensions int               `json:"dimensions"`
	CreatedAt  time.Time         `json:"created_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func newRecordView(r *core.Record) recordView {
	return recordView{
		Id:         r.Id,
		Text:       r.Text,
		ChunkIndex: r.ChunkIndex,
		DocumentID: r.DocumentID,
		Dimensions: len(r.Vector),
		CreatedAt:  r.CreatedAt,
		Metadata:   r.Metadata,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
