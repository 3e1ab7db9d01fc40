package sqlite

import (
	"context"
	"fmt"

	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

var _ repository.LikeRepository = (*DB)(nil)

// AddLike records a like and reports whether it was new. Liking twice is a
// no-op, not an error.
func (db *DB) AddLike(ctx context.Context, snippetID, userID int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO likes (snippet_id, user_id) VALUES (?, ?)`,
		snippetID, userID)
	if err != nil {
		return false, fmt.Errorf("sqlite: adding like: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemoveLike deletes a like; removing an absent like is a no-op.
func (db *DB) RemoveLike(ctx context.Context, snippetID, userID int64) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM likes WHERE snippet_id = ? AND user_id = ?`,
		snippetID, userID); err != nil {
		return fmt.Errorf("sqlite: removing like: %w", err)
	}
	return nil
}

func (db *DB) LikeCount(ctx context.Context, snippetID int64) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE snippet_id = ?`, snippetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting likes: %w", err)
	}
	return count, nil
}

func (db *DB) IsLiked(ctx context.Context, snippetID, userID int64) (bool, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE snippet_id = ? AND user_id = ?)`,
		snippetID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like: %w", err)
	}
	return exists == 1, nil
}
