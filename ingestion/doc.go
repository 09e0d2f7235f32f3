// Package ingestion turns documents into stored records.
//
// A Pipeline run goes through these stages:
//   - preflight: the target collection must exist and accept the configured width
//   - chunking: the text is split into overlapping chunks
//   - embedding: every chunk is embedded independently on a worker pool
//   - building: vectors are truncated and paired with their chunk as records
//   - writing: every record is inserted independently
//
// A chunk that fails to embed or a record that fails to store is logged,
// reported to the Monitor and skipped; the run carries on with the rest.
// Only configuration, extraction and preflight failures abort a run.
package ingestion
