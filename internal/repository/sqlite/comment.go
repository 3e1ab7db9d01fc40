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

var _ repository.CommentRepository = (*DB)(nil)

func (db *DB) AddComment(ctx context.Context, comment *model.Comment) error {
	comment.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (snippet_id, user_id, parent_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.SnippetID, comment.UserID, comment.ParentID, comment.Content, comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: adding comment: %w", err)
	}
	comment.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading comment id: %w", err)
	}
	return nil
}

func (db *DB) GetComment(ctx context.Context, id int64) (*model.Comment, error) {
	var (
		c      model.Comment
		parent sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, snippet_id, user_id, parent_id, content, created_at
		 FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.SnippetID, &c.UserID, &parent, &c.Content, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", id, err)
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	return &c, nil
}

// ListComments returns every comment on a snippet, oldest first. Threading
// is reconstructed by the caller from ParentID.
func (db *DB) ListComments(ctx context.Context, snippetID int64) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, snippet_id, user_id, parent_id, content, created_at
		 FROM comments WHERE snippet_id = ?
		 ORDER BY created_at ASC, id ASC`, snippetID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var (
			c      model.Comment
			parent sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.SnippetID, &c.UserID, &parent, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		if parent.Valid {
			c.ParentID = &parent.Int64
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

// DeleteCommentTree removes a comment and all transitive replies. The
// parent_id foreign key cascades, so one DELETE takes the whole subtree.
func (db *DB) DeleteCommentTree(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}
