package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

var _ repository.SearchRepository = (*DB)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx so the summary helpers can
// run inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// escapeLike escapes LIKE metacharacters in user input. Every LIKE in this
// package uses ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// accessClause returns the visibility predicate for a snippet aliased as "s".
// It is the sole privacy boundary: every query returning snippet rows must
// include it.
func accessClause(viewer model.Viewer, mode model.AccessMode) (string, []any) {
	if mode == model.AccessOwnerOnly {
		return "s.owner_id = ?", []any{viewer.UserID}
	}
	if viewer.Anonymous() {
		return "s.is_public = 1", nil
	}
	return `(s.is_public = 1 OR s.owner_id = ? OR EXISTS (
		SELECT 1 FROM permission_grants g WHERE g.snippet_id = s.id AND g.user_id = ?))`,
		[]any{viewer.UserID, viewer.UserID}
}

// likedExpr returns the SQL expression for the viewer's liked flag.
func likedExpr(viewer model.Viewer) (string, []any) {
	if viewer.Anonymous() {
		return "0", nil
	}
	return "EXISTS (SELECT 1 FROM likes lk WHERE lk.snippet_id = s.id AND lk.user_id = ?)",
		[]any{viewer.UserID}
}

// SearchLexical runs the tiered structured search inside one read
// transaction so the author and tag fallback decisions see a consistent
// database state.
func (db *DB) SearchLexical(ctx context.Context, q repository.LexicalQuery) ([]model.SnippetSummary, error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning search transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		where     []string
		whereArgs []any
	)

	// Author filter: exact case-insensitive usernames first; when none of
	// the given names exists, a contains match on the first name only.
	if len(q.Usernames) > 0 {
		ownerIDs, err := resolveAuthors(ctx, tx, q.Usernames)
		if err != nil {
			return nil, err
		}
		if len(ownerIDs) == 0 {
			return nil, tx.Commit()
		}
		where = append(where, "s.owner_id IN ("+placeholders(len(ownerIDs))+")")
		for _, id := range ownerIDs {
			whereArgs = append(whereArgs, id)
		}
	}

	// General terms: a snippet matches when any term appears in its name or
	// description. The priority column records whether the name itself
	// matched, which dominates the ranking.
	priorityExpr := "0"
	var priorityArgs []any
	if len(q.Terms) > 0 {
		var termOr, nameOr []string
		for _, term := range q.Terms {
			pat := "%" + escapeLike(term) + "%"
			termOr = append(termOr, `(s.name LIKE ? ESCAPE '\' OR s.description LIKE ? ESCAPE '\')`)
			whereArgs = append(whereArgs, pat, pat)
			nameOr = append(nameOr, `s.name LIKE ? ESCAPE '\'`)
			priorityArgs = append(priorityArgs, pat)
		}
		where = append(where, "("+strings.Join(termOr, " OR ")+")")
		priorityExpr = "CASE WHEN " + strings.Join(nameOr, " OR ") + " THEN 1 ELSE 0 END"
	}

	// Include tags: exact membership when any snippet carries one of the
	// requested tags exactly; otherwise prefix membership.
	if len(q.IncludeTags) > 0 {
		clause, tagArgs, err := includeTagClause(ctx, tx, q.IncludeTags)
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
		whereArgs = append(whereArgs, tagArgs...)
	}

	// Exclude tags remove on exact match, decided in the same predicate as
	// visibility.
	if len(q.ExcludeTags) > 0 {
		where = append(where,
			"NOT EXISTS (SELECT 1 FROM tag_uses tu WHERE tu.snippet_id = s.id AND tu.tag IN ("+
				placeholders(len(q.ExcludeTags))+"))")
		for _, tag := range q.ExcludeTags {
			whereArgs = append(whereArgs, tag)
		}
	}

	access, accessArgs := accessClause(q.Viewer, q.Mode)
	where = append(where, access)
	whereArgs = append(whereArgs, accessArgs...)

	liked, likedArgs := likedExpr(q.Viewer)

	query := `
		SELECT s.id, s.name, s.code, s.description, s.owner_id,
		       s.parent_snippet_id, s.is_public, s.created_at,
		       (SELECT COUNT(*) FROM likes l WHERE l.snippet_id = s.id) AS like_count,
		       ` + liked + `,
		       u.name, u.bio, u.avatar_url,
		       ` + priorityExpr + ` AS priority
		FROM snippets s
		JOIN users u ON u.id = s.owner_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY priority DESC, like_count DESC, s.created_at DESC, s.id ASC`

	// Placeholders bind in textual order: SELECT list first, then WHERE.
	args := make([]any, 0, len(likedArgs)+len(priorityArgs)+len(whereArgs)+1)
	args = append(args, likedArgs...)
	args = append(args, priorityArgs...)
	args = append(args, whereArgs...)

	// The limit must see the ranked rows, so the ORDER BY above mirrors the
	// engine's ranking key. Without it the cap would drop arbitrary rows.
	if q.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, q.Limit)
	}

	summaries, err := querySummaries(ctx, tx, query, args)
	if err != nil {
		return nil, err
	}
	if err := fillTags(ctx, tx, summaries); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing search transaction: %w", err)
	}
	return summaries, nil
}

// SummariesByIDs joins vector-index hits back to visible summaries. Ids the
// viewer may not see, and ids with no row at all, are dropped. Output order
// follows the input ids.
func (db *DB) SummariesByIDs(ctx context.Context, ids []int64, viewer model.Viewer, mode model.AccessMode) ([]model.SnippetSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	access, accessArgs := accessClause(viewer, mode)
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
		WHERE s.id IN (` + placeholders(len(ids)) + `) AND ` + access

	args := make([]any, 0, len(likedArgs)+len(ids)+len(accessArgs))
	args = append(args, likedArgs...)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, accessArgs...)

	summaries, err := querySummaries(ctx, db.conn, query, args)
	if err != nil {
		return nil, err
	}
	if err := fillTags(ctx, db.conn, summaries); err != nil {
		return nil, err
	}

	byID := make(map[int64]model.SnippetSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}
	ordered := make([]model.SnippetSummary, 0, len(summaries))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

// resolveAuthors implements the tiered author filter. It returns the owner
// ids to restrict to, or nil when the filter matches no user at all.
func resolveAuthors(ctx context.Context, q querier, usernames []string) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id FROM users WHERE name IN ("+placeholders(len(usernames))+")",
		toAnys(usernames)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolving authors: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		return ids, nil
	}

	// No exact username exists: contains match on the first token only.
	rows, err = q.QueryContext(ctx,
		`SELECT id FROM users WHERE name LIKE ? ESCAPE '\'`,
		"%"+escapeLike(usernames[0])+"%")
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolving authors by contains: %w", err)
	}
	return scanIDs(rows)
}

// includeTagClause implements the exact-then-prefix tag tier. The exactness
// probe is global: one exact use of any requested tag anywhere locks the
// whole filter to exact membership.
func includeTagClause(ctx context.Context, q querier, tags []string) (string, []any, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM tag_uses WHERE tag IN ("+placeholders(len(tags))+"))",
		toAnys(tags)...).Scan(&exists)
	if err != nil {
		return "", nil, fmt.Errorf("sqlite: probing tag exactness: %w", err)
	}

	if exists == 1 {
		clause := "EXISTS (SELECT 1 FROM tag_uses ti WHERE ti.snippet_id = s.id AND ti.tag IN (" +
			placeholders(len(tags)) + "))"
		return clause, toAnys(tags), nil
	}

	prefixOr := make([]string, len(tags))
	args := make([]any, len(tags))
	for i, tag := range tags {
		prefixOr[i] = `ti.tag LIKE ? ESCAPE '\'`
		args[i] = escapeLike(tag) + "%"
	}
	clause := "EXISTS (SELECT 1 FROM tag_uses ti WHERE ti.snippet_id = s.id AND (" +
		strings.Join(prefixOr, " OR ") + "))"
	return clause, args, nil
}

// querySummaries scans rows produced by the canonical 14-column summary
// SELECT. Tags are filled separately.
func querySummaries(ctx context.Context, q querier, query string, args []any) ([]model.SnippetSummary, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.SnippetSummary
	for rows.Next() {
		var (
			s      model.SnippetSummary
			parent sql.NullInt64
			liked  int
		)
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Code, &s.Description, &s.OwnerID,
			&parent, &s.IsPublic, &s.CreatedAt,
			&s.LikeCount, &liked,
			&s.Author.Name, &s.Author.Bio, &s.Author.AvatarURL,
			&s.NamePriority,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning summary row: %w", err)
		}
		if parent.Valid {
			s.ParentSnippetID = &parent.Int64
		}
		s.LikedByViewer = liked == 1
		s.Tags = []string{}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating summaries: %w", err)
	}
	return summaries, nil
}

// fillTags attaches tag lists to the given summaries with one IN query.
func fillTags(ctx context.Context, q querier, summaries []model.SnippetSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	index := make(map[int64]int, len(summaries))
	args := make([]any, len(summaries))
	for i := range summaries {
		index[summaries[i].ID] = i
		args[i] = summaries[i].ID
	}

	rows, err := q.QueryContext(ctx,
		"SELECT snippet_id, tag FROM tag_uses WHERE snippet_id IN ("+
			placeholders(len(summaries))+") ORDER BY snippet_id, tag",
		args...)
	if err != nil {
		return fmt.Errorf("sqlite: querying tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		if i, ok := index[id]; ok {
			summaries[i].Tags = append(summaries[i].Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating ids: %w", err)
	}
	return ids, nil
}

func toAnys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
