package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

var _ repository.TagRepository = (*DB)(nil)

// SearchTags serves tag autocomplete: distinct tags on public snippets
// matching the prefix, most-used first.
func (db *DB) SearchTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.tag
		 FROM tag_uses t
		 JOIN snippets s ON s.id = t.snippet_id
		 WHERE s.is_public = 1 AND t.tag LIKE ? ESCAPE '\'
		 GROUP BY t.tag
		 ORDER BY COUNT(*) DESC, t.tag ASC
		 LIMIT ?`,
		escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching tags: %w", err)
	}
	return scanStrings(rows)
}

// PopularPublicTags lists the most-used tags across public snippets.
func (db *DB) PopularPublicTags(ctx context.Context, limit int) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.tag
		 FROM tag_uses t
		 JOIN snippets s ON s.id = t.snippet_id
		 WHERE s.is_public = 1
		 GROUP BY t.tag
		 ORDER BY COUNT(*) DESC, t.tag ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing popular tags: %w", err)
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite: scanning string: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating rows: %w", err)
	}
	return out, nil
}
