// Package repository defines the storage interfaces consumed by the service
// and search layers. The sqlite subpackage provides the implementation.
package repository

import (
	"context"

	"github.com/snippet-oracle/snippet-oracle/internal/model"
)

// LexicalQuery carries the parsed structured-search components plus the
// viewer context. Empty slices mean "no filter of that kind".
type LexicalQuery struct {
	Terms       []string // general terms: substring match on name/description
	IncludeTags []string // exact-then-prefix tag filter
	ExcludeTags []string // hard exclusion on exact tag match
	Usernames   []string // exact-then-contains author filter
	Viewer      model.Viewer
	Mode        model.AccessMode
	Limit       int
}

// SearchRepository is the lexical half of the search engine plus the id-join
// used by the vector half. Both paths apply the same visibility predicate —
// it is the sole privacy boundary.
type SearchRepository interface {
	// SearchLexical runs the tiered lexical query inside one read
	// transaction and returns access-filtered summaries, ranked by the
	// canonical key (name priority, likes, recency, id) so a Limit keeps the
	// top candidates. The engine re-ranks after merging result sets.
	SearchLexical(ctx context.Context, q LexicalQuery) ([]model.SnippetSummary, error)

	// SummariesByIDs joins snippet ids (from the vector index) back to full
	// summaries, dropping ids the viewer may not see. Order follows ids.
	SummariesByIDs(ctx context.Context, ids []int64, viewer model.Viewer, mode model.AccessMode) ([]model.SnippetSummary, error)
}

// SnippetRepository persists snippets together with their tag set and
// permission grant list. Tags and grants are replaced wholesale on update.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet, permitted []int64) error
	// GetByID applies the visibility predicate: an existing snippet the
	// viewer may not see yields ErrNotFound, never a leak.
	GetByID(ctx context.Context, id int64, viewer model.Viewer) (*model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet, permitted []int64) error
	// Delete cascades to tags, grants, likes, comments and the stored
	// embedding, and nulls parent pointers on remixes of this snippet.
	Delete(ctx context.Context, id int64) error
	ListByOwner(ctx context.Context, ownerID int64, viewer model.Viewer) ([]model.SnippetSummary, error)
	Grantees(ctx context.Context, snippetID int64) ([]int64, error)
}

// EmbeddingRepository stores description embeddings. By invariant only
// public snippets with non-empty descriptions have rows here.
type EmbeddingRepository interface {
	UpsertEmbedding(ctx context.Context, snippetID int64, modelName string, vec []float32) error
	DeleteEmbedding(ctx context.Context, snippetID int64) error
	// AllEmbeddings streams every stored vector, used to warm the in-memory
	// index at startup.
	AllEmbeddings(ctx context.Context) (map[int64][]float32, error)
}

// UserRepository persists accounts and profiles.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	// UserExists backs the fail-closed viewer check: a deleted account
	// searches as anonymous.
	UserExists(ctx context.Context, id int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, bio, avatarURL string, links []string) error
	SearchUsers(ctx context.Context, query string, limit int) ([]model.AuthorSummary, error)
}

// LikeRepository persists likes. AddLike reports false when the like already
// existed (idempotent double-like).
type LikeRepository interface {
	AddLike(ctx context.Context, snippetID, userID int64) (bool, error)
	RemoveLike(ctx context.Context, snippetID, userID int64) error
	LikeCount(ctx context.Context, snippetID int64) (int, error)
	IsLiked(ctx context.Context, snippetID, userID int64) (bool, error)
}

// CommentRepository persists threaded comments.
type CommentRepository interface {
	AddComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id int64) (*model.Comment, error)
	ListComments(ctx context.Context, snippetID int64) ([]model.Comment, error)
	// DeleteCommentTree removes a comment and all transitive replies.
	DeleteCommentTree(ctx context.Context, id int64) error
}

// TagRepository serves tag autocomplete and the default discovery view.
type TagRepository interface {
	SearchTags(ctx context.Context, prefix string, limit int) ([]string, error)
	PopularPublicTags(ctx context.Context, limit int) ([]string, error)
}

// FeedRepository serves the landing-page discovery feeds.
type FeedRepository interface {
	PopularPublicSnippets(ctx context.Context, viewer model.Viewer, limit int) ([]model.SnippetSummary, error)
	// RecentShared lists private snippets recently shared with the viewer
	// through permission grants.
	RecentShared(ctx context.Context, viewer model.Viewer, limit int) ([]model.SnippetSummary, error)
	PopularUsers(ctx context.Context, limit int) ([]model.AuthorSummary, error)
}

// Store aggregates every repository the application uses. *sqlite.DB
// implements all of them.
type Store interface {
	SearchRepository
	SnippetRepository
	EmbeddingRepository
	UserRepository
	LikeRepository
	CommentRepository
	TagRepository
	FeedRepository
}
