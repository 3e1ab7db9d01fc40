// Package model defines the data structures used throughout the application.
package model

import "time"

// Field limits enforced at the service layer. Inputs beyond these are
// rejected, not truncated.
const (
	MaxSnippetNameLength = 100
	MaxCodeLength        = 5000
	MaxDescriptionLength = 1000
	MaxTagLength         = 20
	MaxTagCount          = 15
	MaxCommentLength     = 500
)

// Snippet represents a user-authored code snippet.
//
// ParentSnippetID records remix lineage: a snippet created as a remix points
// at its original. The pointer is informational only — deleting the parent
// nulls it on the children rather than cascading.
//
// A description embedding is stored iff the snippet is public and its
// description is non-empty. The service layer owns that invariant; the model
// only carries the fields it derives from.
type Snippet struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Description     string    `json:"description"`
	OwnerID         int64     `json:"ownerId"`
	ParentSnippetID *int64    `json:"parentSnippetId,omitempty"`
	IsPublic        bool      `json:"isPublic"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// VisibleTo reports whether the snippet may be shown to the given viewer:
// public, owned by the viewer, or explicitly granted. The granted flag must
// be resolved by the caller (the repository joins the grant table).
func (s *Snippet) VisibleTo(viewer Viewer, granted bool) bool {
	if s.IsPublic {
		return true
	}
	if viewer.Anonymous() {
		return false
	}
	return s.OwnerID == viewer.UserID || granted
}

// AuthorSummary is the public slice of a user profile attached to search
// results and snippet views.
type AuthorSummary struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// SnippetSummary is the search-result shape: the snippet plus derived fields
// (like count, viewer's liked flag, author profile) and the ranking inputs.
type SnippetSummary struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Code            string        `json:"code"`
	Description     string        `json:"description"`
	OwnerID         int64         `json:"ownerId"`
	ParentSnippetID *int64        `json:"parentSnippetId,omitempty"`
	IsPublic        bool          `json:"isPublic"`
	Tags            []string      `json:"tags"`
	LikeCount       int           `json:"likeCount"`
	LikedByViewer   bool          `json:"likedByViewer"`
	Author          AuthorSummary `json:"author"`
	CreatedAt       time.Time     `json:"createdAt"`

	// NamePriority is 1 when the snippet's name itself contained a general
	// term, 0 for description-only and vector matches. It dominates the
	// like-count and recency sort keys.
	NamePriority int `json:"-"`
}

// Comment is a threaded comment on a snippet. ParentID is nil for top-level
// comments.
type Comment struct {
	ID        int64     `json:"id"`
	SnippetID int64     `json:"snippetId"`
	UserID    int64     `json:"userId"`
	ParentID  *int64    `json:"parentId,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
