package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/docstore/core"
	"github.com/poiesic/docstore/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	c, err := m.EmbedText(ctx, "goodbye")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, DefaultDimensions)
	assert.InDelta(t, 1.0, vector.Magnitude(a), 1e-5)
	assert.Equal(t, 3, m.CallCount())
}

func TestMockEmbedder_Dimensions(t *testing.T) {
	m := NewMockEmbedder().WithDimensions(1536)

	v, err := m.EmbedText(context.Background(), "wide")
	require.NoError(t, err)
	assert.Len(t, v, 1536)
}

func TestMockEmbedder_FailOn(t *testing.T) {
	m := NewMockEmbedder().FailOn("bad chunk", errors.New("boom"))

	_, err := m.EmbedText(context.Background(), "bad chunk")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingService)

	_, err = m.EmbedTexts(context.Background(), []string{"fine", "bad chunk"})
	assert.ErrorIs(t, err, core.ErrEmbeddingService)

	_, err = m.EmbedText(context.Background(), "good chunk")
	assert.NoError(t, err)
}

func TestMockEmbedder_Reset(t *testing.T) {
	m := NewMockEmbedder().FailOn("x", errors.New("boom"))
	_, _ = m.EmbedText(context.Background(), "x")

	m.Reset()

	assert.Zero(t, m.CallCount())
	_, err := m.EmbedText(context.Background(), "x")
	assert.NoError(t, err)
}

func TestMockEmbedder_Concurrent(t *testing.T) {
	m := NewMockEmbedder().WithDimensions(8)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedText(context.Background(), "same")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	defer p.Close()

	assert.Equal(t, MockModelName, p.ModelName())
	assert.NotNil(t, p.(*MockProvider).GetMockEmbedder())
}
