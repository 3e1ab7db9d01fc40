package embed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider wraps StaticProvider and counts Embed calls.
type countingProvider struct {
	*StaticProvider
	calls atomic.Int64
}

func (c *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.StaticProvider.Embed(ctx, text)
}

func TestCachedProvider_HitsSkipInner(t *testing.T) {
	inner := &countingProvider{StaticProvider: NewStaticProvider(64)}
	cached := NewCachedProvider(inner, 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load(), "second call must be served from cache")
}

func TestCachedProvider_DistinctTextsMiss(t *testing.T) {
	inner := &countingProvider{StaticProvider: NewStaticProvider(64)}
	cached := NewCachedProvider(inner, 10)
	ctx := context.Background()

	_, _ = cached.Embed(ctx, "alpha")
	_, _ = cached.Embed(ctx, "beta")

	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestLazyProvider_InitializesOnce(t *testing.T) {
	var constructed atomic.Int64
	lazy := NewLazyProvider(64, "static-hash", func() (Provider, error) {
		constructed.Add(1)
		return NewStaticProvider(64), nil
	})

	// Dimensions must not trigger construction — the index is sized from it
	// before the first query arrives.
	assert.Equal(t, 64, lazy.Dimensions())
	assert.Equal(t, int64(0), constructed.Load())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.Embed(context.Background(), "concurrent first use")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), constructed.Load(), "concurrent first use must not double-initialize")
}

func TestLazyProvider_StickyInitFailure(t *testing.T) {
	var attempts atomic.Int64
	lazy := NewLazyProvider(64, "broken", func() (Provider, error) {
		attempts.Add(1)
		return nil, assert.AnError
	})

	_, err1 := lazy.Embed(context.Background(), "x")
	_, err2 := lazy.Embed(context.Background(), "y")

	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, int64(1), attempts.Load(), "failed init must not be retried")
}
