// Package service contains the business logic layer: validation, ownership
// rules, and the embedding lifecycle. Handlers translate HTTP to these calls;
// repositories do the storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/embed"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
	"github.com/snippet-oracle/snippet-oracle/internal/vector"
)

// SnippetStore is everything the snippet service needs from storage.
type SnippetStore interface {
	repository.SnippetRepository
	repository.EmbeddingRepository
	repository.LikeRepository
	repository.CommentRepository
	repository.UserRepository
}

// SnippetInput carries the user-editable snippet fields. Permitted holds the
// usernames the snippet is shared with; it replaces the previous grant list
// on every save.
type SnippetInput struct {
	Name            string
	Code            string
	Description     string
	Tags            []string
	IsPublic        bool
	ParentSnippetID *int64
	Permitted       []string
}

// SnippetService owns the snippet lifecycle, including the invariant that a
// description embedding exists iff the snippet is public with a non-empty
// description.
type SnippetService struct {
	store    SnippetStore
	embedder embed.Provider
	index    *vector.Index
	logger   *slog.Logger
}

func NewSnippetService(store SnippetStore, embedder embed.Provider, index *vector.Index, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		store:    store,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Create validates and saves a new snippet for the owner. A remix must name
// a parent the owner can see.
func (s *SnippetService) Create(ctx context.Context, ownerID int64, in SnippetInput) (*model.Snippet, error) {
	if err := validateSnippetInput(&in); err != nil {
		return nil, err
	}

	if in.ParentSnippetID != nil {
		if _, err := s.store.GetByID(ctx, *in.ParentSnippetID, model.ViewerFor(ownerID)); err != nil {
			return nil, fmt.Errorf("resolving remix parent: %w", err)
		}
	}

	permitted, err := s.resolvePermitted(ctx, in.Permitted)
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Name:            in.Name,
		Code:            in.Code,
		Description:     in.Description,
		OwnerID:         ownerID,
		ParentSnippetID: in.ParentSnippetID,
		IsPublic:        in.IsPublic,
		Tags:            in.Tags,
	}
	if err := s.store.Create(ctx, snippet, permitted); err != nil {
		return nil, err
	}

	s.syncEmbedding(ctx, snippet, true)

	s.logger.Info("snippet created",
		slog.Int64("snippet_id", snippet.ID),
		slog.Int64("owner_id", ownerID),
		slog.Bool("public", snippet.IsPublic))
	return snippet, nil
}

// Get returns the snippet when the viewer may see it.
func (s *SnippetService) Get(ctx context.Context, id int64, viewer model.Viewer) (*model.Snippet, error) {
	return s.store.GetByID(ctx, id, viewer)
}

// Update rewrites a snippet. Only the owner may edit; anyone else gets
// ErrForbidden, except viewers who could not see the snippet at all, who get
// the same ErrNotFound a stranger would.
func (s *SnippetService) Update(ctx context.Context, id, actorID int64, in SnippetInput) (*model.Snippet, error) {
	if err := validateSnippetInput(&in); err != nil {
		return nil, err
	}

	current, err := s.store.GetByID(ctx, id, model.ViewerFor(actorID))
	if err != nil {
		return nil, err
	}
	if current.OwnerID != actorID {
		return nil, apperror.Forbidden("only the owner may edit a snippet")
	}

	permitted, err := s.resolvePermitted(ctx, in.Permitted)
	if err != nil {
		return nil, err
	}

	descriptionChanged := current.Description != in.Description
	wasIndexed := current.IsPublic && current.Description != ""

	current.Name = in.Name
	current.Code = in.Code
	current.Description = in.Description
	current.IsPublic = in.IsPublic
	current.Tags = in.Tags

	if err := s.store.Update(ctx, current, permitted); err != nil {
		return nil, err
	}

	s.syncEmbedding(ctx, current, descriptionChanged || !wasIndexed)
	return current, nil
}

// Delete removes a snippet and its vector, owner only.
func (s *SnippetService) Delete(ctx context.Context, id, actorID int64) error {
	current, err := s.store.GetByID(ctx, id, model.ViewerFor(actorID))
	if err != nil {
		return err
	}
	if current.OwnerID != actorID {
		return apperror.Forbidden("only the owner may delete a snippet")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.index.Delete(id)

	s.logger.Info("snippet deleted", slog.Int64("snippet_id", id))
	return nil
}

// ListByOwner returns a user's snippets as the viewer may see them.
func (s *SnippetService) ListByOwner(ctx context.Context, ownerID int64, viewer model.Viewer) ([]model.SnippetSummary, error) {
	return s.store.ListByOwner(ctx, ownerID, viewer)
}

// Grantees lists who a snippet is shared with, owner only.
func (s *SnippetService) Grantees(ctx context.Context, id, actorID int64) ([]string, error) {
	current, err := s.store.GetByID(ctx, id, model.ViewerFor(actorID))
	if err != nil {
		return nil, err
	}
	if current.OwnerID != actorID {
		return nil, apperror.Forbidden("only the owner may list grants")
	}

	ids, err := s.store.Grantees(ctx, id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, userID := range ids {
		u, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			return nil, err
		}
		names = append(names, u.Name)
	}
	return names, nil
}

// Like records a like; liking twice is a no-op. The snippet must be visible
// to the user.
func (s *SnippetService) Like(ctx context.Context, snippetID, userID int64) error {
	if _, err := s.store.GetByID(ctx, snippetID, model.ViewerFor(userID)); err != nil {
		return err
	}
	_, err := s.store.AddLike(ctx, snippetID, userID)
	return err
}

// Unlike removes a like; removing an absent like is a no-op.
func (s *SnippetService) Unlike(ctx context.Context, snippetID, userID int64) error {
	if _, err := s.store.GetByID(ctx, snippetID, model.ViewerFor(userID)); err != nil {
		return err
	}
	return s.store.RemoveLike(ctx, snippetID, userID)
}

// Comment adds a comment or reply on a snippet the user can see.
func (s *SnippetService) Comment(ctx context.Context, snippetID, userID int64, parentID *int64, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "comment must not be empty")
	}
	if len(content) > model.MaxCommentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("comment must be at most %d characters", model.MaxCommentLength))
	}

	if _, err := s.store.GetByID(ctx, snippetID, model.ViewerFor(userID)); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.store.GetComment(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.SnippetID != snippetID {
			return nil, apperror.ValidationFailed("parentId", "parent comment belongs to another snippet")
		}
	}

	comment := &model.Comment{
		SnippetID: snippetID,
		UserID:    userID,
		ParentID:  parentID,
		Content:   content,
	}
	if err := s.store.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Comments lists a visible snippet's comments, oldest first.
func (s *SnippetService) Comments(ctx context.Context, snippetID int64, viewer model.Viewer) ([]model.Comment, error) {
	if _, err := s.store.GetByID(ctx, snippetID, viewer); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, snippetID)
}

// DeleteComment removes a comment and its replies. The comment's author and
// the snippet's owner may both delete it.
func (s *SnippetService) DeleteComment(ctx context.Context, commentID, actorID int64) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		snippet, err := s.store.GetByID(ctx, comment.SnippetID, model.ViewerFor(actorID))
		if err != nil {
			return err
		}
		if snippet.OwnerID != actorID {
			return apperror.Forbidden("only the author or the snippet owner may delete a comment")
		}
	}
	return s.store.DeleteCommentTree(ctx, commentID)
}

// WarmIndex loads every stored embedding into the in-memory vector index.
// Called once at startup, before the server accepts traffic.
func (s *SnippetService) WarmIndex(ctx context.Context) error {
	vecs, err := s.store.AllEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("loading embeddings: %w", err)
	}
	for id, vec := range vecs {
		if err := s.index.Upsert(id, vec); err != nil {
			return fmt.Errorf("indexing snippet %d: %w", id, err)
		}
	}
	s.logger.Info("vector index warmed", slog.Int("vectors", len(vecs)))
	return nil
}

// syncEmbedding enforces the embedding invariant after a write. Failures are
// logged, not returned: a missing vector degrades smart search for one
// snippet, it does not fail the save.
func (s *SnippetService) syncEmbedding(ctx context.Context, snippet *model.Snippet, regenerate bool) {
	shouldIndex := snippet.IsPublic && snippet.Description != ""

	if !shouldIndex {
		if err := s.store.DeleteEmbedding(ctx, snippet.ID); err != nil {
			s.logger.Error("deleting embedding", slog.Int64("snippet_id", snippet.ID),
				slog.String("error", err.Error()))
		}
		s.index.Delete(snippet.ID)
		return
	}
	if !regenerate && s.index.Contains(snippet.ID) {
		return
	}

	vec, err := s.embedder.Embed(ctx, snippet.Description)
	if err != nil {
		s.logger.Warn("embedding unavailable, snippet not semantically indexed",
			slog.Int64("snippet_id", snippet.ID), slog.String("error", err.Error()))
		return
	}
	if err := s.store.UpsertEmbedding(ctx, snippet.ID, s.embedder.ModelName(), vec); err != nil {
		s.logger.Error("storing embedding", slog.Int64("snippet_id", snippet.ID),
			slog.String("error", err.Error()))
		return
	}
	if err := s.index.Upsert(snippet.ID, vec); err != nil {
		s.logger.Error("indexing embedding", slog.Int64("snippet_id", snippet.ID),
			slog.String("error", err.Error()))
	}
}

// resolvePermitted maps grantee usernames to user ids. Unknown names are a
// validation error so a typo does not silently drop a grant.
func (s *SnippetService) resolvePermitted(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		u, err := s.store.GetUserByName(ctx, name)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("permitted",
					fmt.Sprintf("no user named %q", name))
			}
			return nil, err
		}
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func validateSnippetInput(in *SnippetInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(in.Name) > model.MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be at most %d characters", model.MaxSnippetNameLength))
	}
	if len(in.Code) > model.MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be at most %d characters", model.MaxCodeLength))
	}
	if len(in.Description) > model.MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be at most %d characters", model.MaxDescriptionLength))
	}
	if len(in.Tags) > model.MaxTagCount {
		return apperror.ValidationFailed("tags",
			fmt.Sprintf("at most %d tags allowed", model.MaxTagCount))
	}
	cleaned := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > model.MaxTagLength {
			return apperror.ValidationFailed("tags",
				fmt.Sprintf("tag %q exceeds %d characters", tag, model.MaxTagLength))
		}
		cleaned = append(cleaned, tag)
	}
	in.Tags = cleaned
	return nil
}
