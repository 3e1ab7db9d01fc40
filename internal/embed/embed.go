// Package embed provides the embedding provider used for semantic snippet
// search: an opaque text→vector function plus caching and lazy-init wrappers.
package embed

import "context"

// DefaultDimensions is the embedding width used by the default provider.
const DefaultDimensions = 384

// Provider maps free text to a fixed-length vector. Implementations must be
// deterministic (same text, same vector) and safe for concurrent use.
type Provider interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string
}
