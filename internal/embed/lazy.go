package embed

import (
	"context"
	"fmt"
	"sync"
)

// LazyProvider defers construction of an expensive provider until first use,
// guaranteeing exactly one initialization even under concurrent first calls.
// A failed initialization is sticky: every subsequent call returns the same
// error rather than retrying, so smart search degrades deterministically
// while lexical search keeps running.
type LazyProvider struct {
	construct func() (Provider, error)
	dims      int
	name      string

	once    sync.Once
	inner   Provider
	initErr error
}

// NewLazyProvider wraps a constructor. dims and name must describe the
// provider that construct will build; they are needed before first use
// (the vector index is sized from Dimensions at startup).
func NewLazyProvider(dims int, name string, construct func() (Provider, error)) *LazyProvider {
	return &LazyProvider{construct: construct, dims: dims, name: name}
}

func (l *LazyProvider) init() {
	l.once.Do(func() {
		l.inner, l.initErr = l.construct()
	})
}

// Embed initializes the underlying provider on first call and delegates.
func (l *LazyProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	l.init()
	if l.initErr != nil {
		return nil, fmt.Errorf("embed: provider init: %w", l.initErr)
	}
	return l.inner.Embed(ctx, text)
}

// Dimensions returns the declared embedding dimension without initializing.
func (l *LazyProvider) Dimensions() int { return l.dims }

// ModelName returns the declared model identifier without initializing.
func (l *LazyProvider) ModelName() string { return l.name }

var _ Provider = (*LazyProvider)(nil)
