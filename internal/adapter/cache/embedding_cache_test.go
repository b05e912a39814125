package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail {
		return nil, errors.New("quota exceeded")
	}
	return []float32{float32(len(text))}, nil
}

func (e *countingEmbedder) Dimension() int    { return 1 }
func (e *countingEmbedder) ModelName() string { return "counting" }

func TestEmbeddingCache_LRUEviction(t *testing.T) {
	c := NewEmbeddingCache(2, time.Minute)

	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})
	_, ok := c.Get("m", "a") // a becomes most recent
	require.True(t, ok)

	c.Put("m", "c", []float32{3})

	_, ok = c.Get("m", "b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("m", "a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestEmbeddingCache_TTL(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("m", "beaches", []float32{1})
	now = now.Add(30 * time.Second)
	_, ok := c.Get("m", "beaches")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("m", "beaches")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestEmbeddingCache_KeyNormalization(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	c.Put("m", "Best  Beaches", []float32{1})

	_, ok := c.Get("m", "best beaches")
	assert.True(t, ok)
	_, ok = c.Get("other-model", "best beaches")
	assert.False(t, ok)
}

func TestEmbeddingCache_ReturnsCopies(t *testing.T) {
	c := NewEmbeddingCache(4, time.Minute)

	in := []float32{1, 2, 3}
	c.Put("m", "q", in)
	in[0] = 99

	got, ok := c.Get("m", "q")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)

	got[1] = -1
	again, ok := c.Get("m", "q")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, again)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Minute))
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hiking trails")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "Hiking trails")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting", e.ModelName())

	hits, misses := e.cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestCachedEmbedder_ErrorsNotCached(t *testing.T) {
	inner := &countingEmbedder{fail: true}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Minute))

	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_Concurrent(t *testing.T) {
	e := NewCachedEmbedder(&countingEmbedder{}, NewEmbeddingCache(4, time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = e.Embed(context.Background(), string(rune('a'+i%8)))
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, e.cache.Size(), 4)
}
