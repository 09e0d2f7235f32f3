package main

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/ingestion"
)

// progressMonitor draws one bar per document, advanced once per chunk
// embedded or dropped.
type progressMonitor struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

var _ ingestion.Monitor = (*progressMonitor)(nil)

func newProgressMonitor(out io.Writer) *progressMonitor {
	return &progressMonitor{out: out}
}

// progressEnabled reports whether stderr is a terminal.
func progressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (p *progressMonitor) Start(source string, chunks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if chunks <= 0 {
		p.bar = nil
		return
	}
	p.bar = progressbar.NewOptions(chunks,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(filepath.Base(source)),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *progressMonitor) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progressMonitor) ChunkEmbedded(_ int)                  { p.advance() }
func (p *progressMonitor) ChunkDropped(_ int, _ error)          { p.advance() }
func (p *progressMonitor) RecordStored(_ *core.Record)          {}
func (p *progressMonitor) RecordFailed(_ *core.Record, _ error) {}

func (p *progressMonitor) Finish(_ *ingestion.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
