// Package mock provides test doubles for the ai package.
//
// The mocks remove the dependency on a running embedding service and give
// deterministic, controllable behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder().WithDimensions(1536)
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Failure injection for one chunk
//	embedder.FailOn("chunk three", errors.New("boom"))
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
// MockEmbedder returns unit-length vectors derived from an FNV hash of the
// text, so equal texts always produce equal vectors.
package mock
