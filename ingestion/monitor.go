package ingestion

import "github.com/poiesic/docstore/core"

// Monitor provides hooks to observe a pipeline run.
// Chunk and record hooks are called from worker goroutines, so
// implementations must be safe for concurrent use.
type Monitor interface {
	Start(source string, chunks int)
	ChunkEmbedded(index int)
	ChunkDropped(index int, err error)
	RecordStored(record *core.Record)
	RecordFailed(record *core.Record, err error)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                {}
func (n *noopMonitor) ChunkEmbedded(_ int)                  {}
func (n *noopMonitor) ChunkDropped(_ int, _ error)          {}
func (n *noopMonitor) RecordStored(_ *core.Record)          {}
func (n *noopMonitor) RecordFailed(_ *core.Record, _ error) {}
func (n *noopMonitor) Finish(_ *Result)                     {}
