package sqlite

import (
	"context"
	"fmt"

	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

var _ repository.FeedRepository = (*DB)(nil)

// PopularPublicSnippets is the landing-page feed: public snippets by like
// count, recency breaking ties.
func (db *DB) PopularPublicSnippets(ctx context.Context, viewer model.Viewer, limit int) ([]model.SnippetSummary, error) {
	liked, likedArgs := likedExpr(viewer)

	query := `
		SELECT s.id, s.name, s.code, s.description, s.owner_id,
		       s.parent_snippet_id, s.is_public, s.created_at,
		       (SELECT COUNT(*) FROM likes l WHERE l.snippet_id = s.id) AS like_count,
		       ` + liked + `,
		       u.name, u.bio, u.avatar_url,
		       0
		FROM snippets s
		JOIN users u ON u.id = s.owner_id
		WHERE s.is_public = 1
		ORDER BY like_count DESC, s.created_at DESC, s.id DESC
		LIMIT ?`

	args := append(append([]any{}, likedArgs...), limit)
	summaries, err := querySummaries(ctx, db.conn, query, args)
	if err != nil {
		return nil, err
	}
	if err := fillTags(ctx, db.conn, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// RecentShared lists private snippets recently shared with the viewer
// through permission grants, newest grant first.
func (db *DB) RecentShared(ctx context.Context, viewer model.Viewer, limit int) ([]model.SnippetSummary, error) {
	if viewer.Anonymous() {
		return nil, nil
	}
	liked, likedArgs := likedExpr(viewer)

	query := `
		SELECT s.id, s.name, s.code, s.description, s.owner_id,
		       s.parent_snippet_id, s.is_public, s.created_at,
		       (SELECT COUNT(*) FROM likes l WHERE l.snippet_id = s.id),
		       ` + liked + `,
		       u.name, u.bio, u.avatar_url,
		       0
		FROM permission_grants g
		JOIN snippets s ON s.id = g.snippet_id
		JOIN users u ON u.id = s.owner_id
		WHERE g.user_id = ? AND s.is_public = 0
		ORDER BY g.granted_at DESC, s.id DESC
		LIMIT ?`

	args := append(append([]any{}, likedArgs...), viewer.UserID, limit)
	summaries, err := querySummaries(ctx, db.conn, query, args)
	if err != nil {
		return nil, err
	}
	if err := fillTags(ctx, db.conn, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// PopularUsers ranks authors by total likes across their public snippets.
func (db *DB) PopularUsers(ctx context.Context, limit int) ([]model.AuthorSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.name, u.bio, u.avatar_url
		 FROM users u
		 JOIN snippets s ON s.owner_id = u.id AND s.is_public = 1
		 JOIN likes l ON l.snippet_id = s.id
		 GROUP BY u.id
		 ORDER BY COUNT(*) DESC, u.name ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing popular users: %w", err)
	}
	defer rows.Close()

	var out []model.AuthorSummary
	for rows.Next() {
		var a model.AuthorSummary
		if err := rows.Scan(&a.Name, &a.Bio, &a.AvatarURL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning author row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating authors: %w", err)
	}
	return out, nil
}
