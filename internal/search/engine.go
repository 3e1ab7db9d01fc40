package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/embed"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
	"github.com/snippet-oracle/snippet-oracle/internal/vector"
)

// Store is what the engine needs from the datastore: the lexical search,
// the id-join for vector hits, and the account-existence check backing the
// fail-closed viewer rule.
type Store interface {
	repository.SearchRepository
	UserExists(ctx context.Context, id int64) (bool, error)
}

// Engine merges lexical and semantic snippet search behind the two public
// operations, Search and SmartSearch. The lexical path and the embedding
// path are independent failure domains: the embedder going away breaks only
// SmartSearch.
type Engine struct {
	store    Store
	embedder embed.Provider
	index    *vector.Index
	logger   *slog.Logger
}

// NewEngine wires the engine. The embedder is expected to be a lazily
// initialized provider; the engine never constructs one itself.
func NewEngine(store Store, embedder embed.Provider, index *vector.Index, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Search runs the structured lexical search. An empty query is "no filter":
// all accessible snippets, capped. The viewer resolves fail-closed: an id
// that no longer exists searches as anonymous.
func (e *Engine) Search(ctx context.Context, q Query, viewer model.Viewer, mode model.AccessMode) ([]model.SnippetSummary, error) {
	viewer, err := e.resolveViewer(ctx, viewer)
	if err != nil {
		return nil, apperror.SearchFailed(err)
	}

	// Owner-only mode without an identity can match nothing.
	if mode == model.AccessOwnerOnly && viewer.Anonymous() {
		return nil, nil
	}

	results, err := e.store.SearchLexical(ctx, repository.LexicalQuery{
		Terms:       q.Terms,
		IncludeTags: q.IncludeTags,
		ExcludeTags: q.ExcludeTags,
		Usernames:   q.Usernames,
		Viewer:      viewer,
		Mode:        mode,
		Limit:       MaxResults,
	})
	if err != nil {
		e.logger.Error("lexical search failed", slog.String("error", err.Error()))
		return nil, apperror.SearchFailed(err)
	}

	Order(results)
	return Cap(results, MaxResults), nil
}

// SmartSearch blends name matches with embedding-vector similarity over
// descriptions: up to SmartMaxResults hits, name matches taking priority for
// up to SmartNameSlots of them.
//
// The raw query is used twice: its general terms feed the lexical name
// matcher, and the full string is embedded for the k-NN lookup. Tag and
// author sigils are honored as lexical filters if present.
func (e *Engine) SmartSearch(ctx context.Context, raw string, viewer model.Viewer) ([]model.SnippetSummary, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	viewer, err := e.resolveViewer(ctx, viewer)
	if err != nil {
		return nil, apperror.SearchFailed(err)
	}

	q := Parse(raw)

	var lexical []model.SnippetSummary
	if !q.Empty() {
		lexical, err = e.store.SearchLexical(ctx, repository.LexicalQuery{
			Terms:       q.Terms,
			IncludeTags: q.IncludeTags,
			ExcludeTags: q.ExcludeTags,
			Usernames:   q.Usernames,
			Viewer:      viewer,
			Mode:        model.AccessPublicAndPermitted,
			Limit:       SmartMaxResults,
		})
		if err != nil {
			e.logger.Error("lexical sub-query failed", slog.String("error", err.Error()))
			return nil, apperror.SearchFailed(err)
		}
	}

	queryVec, err := e.embedder.Embed(ctx, raw)
	if err != nil {
		// Embedding failure must never take down lexical search; but a
		// smart search without its semantic half is a different operation,
		// so the call fails as a whole.
		e.logger.Warn("embedding provider unavailable", slog.String("error", err.Error()))
		return nil, apperror.SearchUnavailable(err)
	}

	hits, err := e.index.Search(queryVec, SmartMaxResults)
	if err != nil {
		return nil, apperror.SearchFailed(fmt.Errorf("vector lookup: %w", err))
	}

	semantic, err := e.joinHits(ctx, hits, viewer)
	if err != nil {
		e.logger.Error("vector sub-query join failed", slog.String("error", err.Error()))
		return nil, apperror.SearchFailed(err)
	}

	merged := Merge(lexical, semantic)
	Order(merged)
	return BudgetedCap(merged, SmartMaxResults, SmartNameSlots), nil
}

// joinHits resolves vector hits to full summaries through the repository,
// which applies the visibility predicate. Hits whose snippet has vanished
// (index momentarily ahead of the store) are dropped silently.
func (e *Engine) joinHits(ctx context.Context, hits []vector.Hit, viewer model.Viewer) ([]model.SnippetSummary, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.SnippetID
	}
	return e.store.SummariesByIDs(ctx, ids, viewer, model.AccessPublicAndPermitted)
}

// resolveViewer fails closed: when the claimed user id does not exist (the
// account was deleted between login and query), the search runs anonymous.
func (e *Engine) resolveViewer(ctx context.Context, viewer model.Viewer) (model.Viewer, error) {
	if viewer.Anonymous() {
		return viewer, nil
	}
	exists, err := e.store.UserExists(ctx, viewer.UserID)
	if err != nil {
		return model.Viewer{}, fmt.Errorf("resolving viewer %d: %w", viewer.UserID, err)
	}
	if !exists {
		e.logger.Warn("viewer no longer exists, searching as anonymous",
			slog.Int64("user_id", viewer.UserID))
		return model.Viewer{}, nil
	}
	return viewer, nil
}
