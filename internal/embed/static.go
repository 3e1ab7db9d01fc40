package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// StaticProvider generates embeddings with a hash-based bag-of-tokens plus
// character n-grams approach. It needs no network and no model files, and is
// fully deterministic, which makes search results reproducible. Semantic
// quality is coarser than a learned model; the engine treats it as an opaque
// text→vector function either way.
type StaticProvider struct {
	dims int
}

// stopWords are common English/code filler terms excluded from the token
// pass. Descriptions of code snippets are full of them.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "from": true,
	"in": true, "is": true, "it": true, "of": true, "or": true,
	"that": true, "the": true, "this": true, "to": true, "with": true,
	"func": true, "function": true, "def": true, "class": true,
	"return": true, "var": true, "const": true,
}

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewStaticProvider creates a provider emitting vectors of the given width.
// A non-positive dims falls back to DefaultDimensions.
func NewStaticProvider(dims int) *StaticProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticProvider{dims: dims}
}

// Embed generates the embedding for a single text. Empty or whitespace-only
// input yields the zero vector.
func (p *StaticProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, p.dims)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vector, nil
	}

	for _, token := range tokenize(trimmed) {
		if stopWords[token] {
			continue
		}
		vector[hashToIndex(token, p.dims)] += tokenWeight
	}

	compact := normalizeForNgrams(trimmed)
	for _, ngram := range extractNgrams(compact, ngramSize) {
		vector[hashToIndex(ngram, p.dims)] += ngramWeight
	}

	normalizeInPlace(vector)
	return vector, nil
}

// Dimensions returns the embedding dimension.
func (p *StaticProvider) Dimensions() int { return p.dims }

// ModelName returns the model identifier.
func (p *StaticProvider) ModelName() string { return "static-hash" }

// tokenize lowercases and splits text on non-alphanumerics, then splits
// camelCase and snake_case identifiers so "BinarySearchTree" contributes
// "binary", "search" and "tree".
func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, part := range splitIdentifier(word) {
			if part != "" {
				tokens = append(tokens, strings.ToLower(part))
			}
		}
	}
	return tokens
}

func splitIdentifier(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// Split when the previous or next rune is lowercase; keeps
			// acronyms like "HTTPServer" as "HTTP" + "Server".
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
