package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

// Create inserts a snippet with its tag set and permission grants in one
// transaction. The snippet's ID and timestamps are filled in on return.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet, permitted []int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snippets (name, code, description, owner_id, parent_snippet_id, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.Name, snippet.Code, snippet.Description, snippet.OwnerID,
		snippet.ParentSnippetID, snippet.IsPublic, snippet.CreatedAt, snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}
	snippet.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading snippet id: %w", err)
	}

	if err := replaceTags(ctx, tx, snippet.ID, snippet.Tags); err != nil {
		return err
	}
	if err := replaceGrants(ctx, tx, snippet.ID, permitted); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create: %w", err)
	}
	return nil
}

// GetByID returns the snippet when the viewer may see it. An existing but
// invisible snippet yields ErrNotFound, indistinguishable from absence.
func (db *DB) GetByID(ctx context.Context, id int64, viewer model.Viewer) (*model.Snippet, error) {
	access, accessArgs := accessClause(viewer, model.AccessPublicAndPermitted)

	var (
		s      model.Snippet
		parent sql.NullInt64
	)
	args := append([]any{id}, accessArgs...)
	err := db.conn.QueryRowContext(ctx,
		`SELECT s.id, s.name, s.code, s.description, s.owner_id, s.parent_snippet_id,
		        s.is_public, s.created_at, s.updated_at
		 FROM snippets s
		 WHERE s.id = ? AND `+access,
		args...,
	).Scan(&s.ID, &s.Name, &s.Code, &s.Description, &s.OwnerID, &parent,
		&s.IsPublic, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %d: %w", id, err)
	}
	if parent.Valid {
		s.ParentSnippetID = &parent.Int64
	}

	tags, err := db.snippetTags(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Tags = tags
	return &s, nil
}

// Update rewrites the snippet's mutable fields and replaces its tag set and
// grant list wholesale.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet, permitted []int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update transaction: %w", err)
	}
	defer tx.Rollback()

	snippet.UpdatedAt = time.Now().UTC()

	res, err := tx.ExecContext(ctx,
		`UPDATE snippets SET name = ?, code = ?, description = ?, is_public = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Name, snippet.Code, snippet.Description, snippet.IsPublic,
		snippet.UpdatedAt, snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %d: %w", snippet.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	if err := replaceTags(ctx, tx, snippet.ID, snippet.Tags); err != nil {
		return err
	}
	if err := replaceGrants(ctx, tx, snippet.ID, permitted); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing update: %w", err)
	}
	return nil
}

// Delete removes the snippet. Foreign keys cascade to tags, grants, likes,
// comments and the stored embedding, and null the parent pointer on remixes.
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

// ListByOwner returns the owner's snippets visible to the viewer, newest
// first. The owner viewing their own list sees everything.
func (db *DB) ListByOwner(ctx context.Context, ownerID int64, viewer model.Viewer) ([]model.SnippetSummary, error) {
	access, accessArgs := accessClause(viewer, model.AccessPublicAndPermitted)
	liked, likedArgs := likedExpr(viewer)

	query := `
		SELECT s.id, s.name, s.code, s.description, s.owner_id,
		       s.parent_snippet_id, s.is_public, s.created_at,
		       (SELECT COUNT(*) FROM likes l WHERE l.snippet_id = s.id),
		       ` + liked + `,
		       u.name, u.bio, u.avatar_url,
		       0
		FROM snippets s
		JOIN users u ON u.id = s.owner_id
		WHERE s.owner_id = ? AND ` + access + `
		ORDER BY s.created_at DESC, s.id DESC`

	args := make([]any, 0, len(likedArgs)+1+len(accessArgs))
	args = append(args, likedArgs...)
	args = append(args, ownerID)
	args = append(args, accessArgs...)

	summaries, err := querySummaries(ctx, db.conn, query, args)
	if err != nil {
		return nil, err
	}
	if err := fillTags(ctx, db.conn, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Grantees lists the user ids the snippet is shared with.
func (db *DB) Grantees(ctx context.Context, snippetID int64) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM permission_grants WHERE snippet_id = ? ORDER BY user_id`,
		snippetID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing grantees: %w", err)
	}
	return scanIDs(rows)
}

func (db *DB) snippetTags(ctx context.Context, snippetID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag FROM tag_uses WHERE snippet_id = ? ORDER BY tag`, snippetID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying snippet tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, snippetID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tag_uses WHERE snippet_id = ?`, snippetID); err != nil {
		return fmt.Errorf("sqlite: clearing tags: %w", err)
	}
	for _, tag := range tags {
		// INSERT OR IGNORE: the primary key is NOCASE, so "Go" and "go"
		// collapse to one row.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tag_uses (snippet_id, tag) VALUES (?, ?)`,
			snippetID, tag); err != nil {
			return fmt.Errorf("sqlite: inserting tag %q: %w", tag, err)
		}
	}
	return nil
}

func replaceGrants(ctx context.Context, tx *sql.Tx, snippetID int64, permitted []int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM permission_grants WHERE snippet_id = ?`, snippetID); err != nil {
		return fmt.Errorf("sqlite: clearing grants: %w", err)
	}
	for _, userID := range permitted {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO permission_grants (snippet_id, user_id) VALUES (?, ?)`,
			snippetID, userID); err != nil {
			return fmt.Errorf("sqlite: inserting grant for user %d: %w", userID, err)
		}
	}
	return nil
}
