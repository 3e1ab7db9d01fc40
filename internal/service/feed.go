package service

import (
	"context"
	"strings"

	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

// Feed sizes for the default discovery view.
const (
	feedSnippetLimit = 10
	feedTagLimit     = 12
	feedUserLimit    = 5
)

// presetTags is the curated suggestion list offered alongside stored tags in
// autocomplete. It is advisory only; tags remain free-form.
var presetTags = []string{
	"Python", "JavaScript", "TypeScript", "Go", "Rust", "Java", "C", "C++",
	"SQL", "HTML", "CSS", "Shell",
	"Algorithm", "DataStructures", "Web", "CLI", "Testing", "Regex",
	"Database", "Networking", "Concurrency", "Utility",
}

// FeedStore is what the feed service needs from storage.
type FeedStore interface {
	repository.FeedRepository
	repository.TagRepository
}

// DefaultView is the landing-page payload shown before any search.
type DefaultView struct {
	Popular     []model.SnippetSummary `json:"popular"`
	SharedWith  []model.SnippetSummary `json:"sharedWithYou"`
	PopularTags []string               `json:"popularTags"`
	TopAuthors  []model.AuthorSummary  `json:"topAuthors"`
}

// FeedService assembles the discovery feeds.
type FeedService struct {
	store FeedStore
}

func NewFeedService(store FeedStore) *FeedService {
	return &FeedService{store: store}
}

// DefaultView builds the landing page for the viewer. The shared-with-you
// rail is empty for anonymous viewers.
func (s *FeedService) DefaultView(ctx context.Context, viewer model.Viewer) (*DefaultView, error) {
	popular, err := s.store.PopularPublicSnippets(ctx, viewer, feedSnippetLimit)
	if err != nil {
		return nil, err
	}
	shared, err := s.store.RecentShared(ctx, viewer, feedSnippetLimit)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.PopularPublicTags(ctx, feedTagLimit)
	if err != nil {
		return nil, err
	}
	authors, err := s.store.PopularUsers(ctx, feedUserLimit)
	if err != nil {
		return nil, err
	}

	return &DefaultView{
		Popular:     popular,
		SharedWith:  shared,
		PopularTags: tags,
		TopAuthors:  authors,
	}, nil
}

// SearchTags serves tag autocomplete: stored tags matching the prefix,
// usage-ranked, with curated preset suggestions filling the remaining slots.
func (s *FeedService) SearchTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}
	stored, err := s.store.SearchTags(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(stored))
	for _, tag := range stored {
		seen[strings.ToLower(tag)] = true
	}
	out := stored
	for _, tag := range presetTags {
		if len(out) == limit {
			break
		}
		if !strings.HasPrefix(strings.ToLower(tag), strings.ToLower(prefix)) {
			continue
		}
		if seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		out = append(out, tag)
	}
	return out, nil
}
