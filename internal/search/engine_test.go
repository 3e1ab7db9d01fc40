package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/embed"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
	"github.com/snippet-oracle/snippet-oracle/internal/vector"
)

// fakeStore implements the engine's Store interface in memory.
type fakeStore struct {
	summaries  map[int64]model.SnippetSummary
	users      map[int64]bool
	lexicalErr error
	joinErr    error

	lastQuery repository.LexicalQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		summaries: make(map[int64]model.SnippetSummary),
		users:     make(map[int64]bool),
	}
}

func (f *fakeStore) SearchLexical(_ context.Context, q repository.LexicalQuery) ([]model.SnippetSummary, error) {
	f.lastQuery = q
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	// Crude name-contains matcher; the real tier logic is exercised against
	// the sqlite implementation.
	var out []model.SnippetSummary
	for _, s := range f.summaries {
		for _, term := range q.Terms {
			if containsFold(s.Name, term) {
				s.NamePriority = 1
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) SummariesByIDs(_ context.Context, ids []int64, _ model.Viewer, _ model.AccessMode) ([]model.SnippetSummary, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	var out []model.SnippetSummary
	for _, id := range ids {
		if s, ok := f.summaries[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) UserExists(_ context.Context, id int64) (bool, error) {
	return f.users[id], nil
}

func containsFold(haystack, needle string) bool {
	h := []rune(haystack)
	n := []rune(needle)
	if len(n) == 0 || len(n) > len(h) {
		return false
	}
	lower := func(rs []rune) string {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if 'A' <= r && r <= 'Z' {
				r += 'a' - 'A'
			}
			out[i] = r
		}
		return string(out)
	}
	hs, ns := lower(h), lower(n)
	for i := 0; i+len(ns) <= len(hs); i++ {
		if hs[i:i+len(ns)] == ns {
			return true
		}
	}
	return false
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model not loaded")
}
func (failingEmbedder) Dimensions() int   { return 64 }
func (failingEmbedder) ModelName() string { return "broken" }

func newTestEngine(t *testing.T, store *fakeStore, provider embed.Provider) (*Engine, *vector.Index) {
	t.Helper()
	if provider == nil {
		provider = embed.NewStaticProvider(64)
	}
	ix, err := vector.New(vector.Config{Dimensions: provider.Dimensions()})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewEngine(store, provider, ix, logger), ix
}

func addSnippet(t *testing.T, store *fakeStore, ix *vector.Index, provider embed.Provider, id int64, name, description string, likes int) {
	t.Helper()
	store.summaries[id] = model.SnippetSummary{
		ID:          id,
		Name:        name,
		Description: description,
		IsPublic:    true,
		LikeCount:   likes,
		CreatedAt:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
	}
	if description != "" && ix != nil {
		vec, err := provider.Embed(context.Background(), description)
		require.NoError(t, err)
		require.NoError(t, ix.Upsert(id, vec))
	}
}

func TestSmartSearch_BlendsNameAndVectorHits(t *testing.T) {
	store := newFakeStore()
	provider := embed.NewStaticProvider(64)
	engine, ix := newTestEngine(t, store, provider)

	addSnippet(t, store, ix, provider, 1, "Binary Search Tree", "balanced tree lookups", 3)
	addSnippet(t, store, ix, provider, 2, "CSV parser", "binary search over sorted rows", 0)
	addSnippet(t, store, ix, provider, 3, "YAML loader", "reads configuration files", 0)

	results, err := engine.SmartSearch(context.Background(), "binary search", model.Viewer{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The name match leads; the semantically-similar description follows.
	assert.Equal(t, int64(1), results[0].ID)
	found := map[int64]bool{}
	for _, r := range results {
		found[r.ID] = true
	}
	assert.True(t, found[2], "vector hit for a description mentioning the query should appear")
}

func TestSmartSearch_DeduplicatesPreferringLexical(t *testing.T) {
	store := newFakeStore()
	provider := embed.NewStaticProvider(64)
	engine, ix := newTestEngine(t, store, provider)

	// Name and description both match: one entry, lexical priority.
	addSnippet(t, store, ix, provider, 1, "quicksort", "quicksort with random pivot", 0)

	results, err := engine.SmartSearch(context.Background(), "quicksort", model.Viewer{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].NamePriority)
}

func TestSmartSearch_EmbedderDownIsSearchUnavailable(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(t, store, failingEmbedder{})
	addSnippet(t, store, nil, nil, 1, "quicksort", "", 0)

	_, err := engine.SmartSearch(context.Background(), "quicksort", model.Viewer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrSearchUnavailable)
}

func TestSearch_SurvivesEmbedderFailure(t *testing.T) {
	// Lexical search is an independent failure domain: a dead embedder must
	// not affect it.
	store := newFakeStore()
	engine, _ := newTestEngine(t, store, failingEmbedder{})
	addSnippet(t, store, nil, nil, 1, "quicksort", "", 0)

	results, err := engine.Search(context.Background(), Parse("quicksort"), model.Viewer{}, model.AccessPublicAndPermitted)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearch_StoreErrorIsSearchFailed(t *testing.T) {
	store := newFakeStore()
	store.lexicalErr = errors.New("disk I/O error")
	engine, _ := newTestEngine(t, store, nil)

	_, err := engine.Search(context.Background(), Parse("x"), model.Viewer{}, model.AccessPublicAndPermitted)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrSearchFailed)
}

func TestSmartSearch_JoinErrorIsSearchFailed(t *testing.T) {
	store := newFakeStore()
	provider := embed.NewStaticProvider(64)
	engine, ix := newTestEngine(t, store, provider)
	addSnippet(t, store, ix, provider, 1, "quicksort", "sorting things", 0)
	store.joinErr = errors.New("database is locked")

	_, err := engine.SmartSearch(context.Background(), "sorting", model.Viewer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrSearchFailed)
}

func TestSearch_DeletedViewerFailsClosed(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(t, store, nil)
	// user 42 is NOT in store.users

	_, err := engine.Search(context.Background(), Parse("x"), model.ViewerFor(42), model.AccessPublicAndPermitted)
	require.NoError(t, err)
	assert.True(t, store.lastQuery.Viewer.Anonymous(), "unknown viewer must be demoted to anonymous")
}

func TestSearch_OwnerOnlyAnonymousIsEmpty(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(t, store, nil)
	addSnippet(t, store, nil, nil, 1, "mine", "", 0)

	results, err := engine.Search(context.Background(), Query{}, model.Viewer{}, model.AccessOwnerOnly)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSmartSearch_EmptyQuery(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(t, store, nil)

	results, err := engine.SmartSearch(context.Background(), "   ", model.Viewer{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSmartSearch_Idempotent(t *testing.T) {
	store := newFakeStore()
	provider := embed.NewStaticProvider(64)
	engine, ix := newTestEngine(t, store, provider)
	for i := int64(1); i <= 10; i++ {
		addSnippet(t, store, ix, provider, i, "sorting helper", "sorts slices of things", int(i%3))
	}

	first, err := engine.SmartSearch(context.Background(), "sorting", model.Viewer{})
	require.NoError(t, err)
	second, err := engine.SmartSearch(context.Background(), "sorting", model.Viewer{})
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical calls with no writes in between must match")
}
