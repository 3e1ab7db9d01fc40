package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new account. A duplicate name (case-insensitive)
// yields ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, password_hash, bio, avatar_url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Name, user.PasswordHash, user.Bio, user.AvatarURL, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username", user.Name)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading user id: %w", err)
	}
	return nil
}

// GetUserByID returns the account, including profile links.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByName resolves an account by its handle, case-insensitively.
func (db *DB) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	return db.getUser(ctx, `WHERE name = ?`, name)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, password_hash, bio, avatar_url, created_at FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Bio, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", 0)
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	links, err := db.userLinks(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Links = links
	return &u, nil
}

// UserExists backs the fail-closed viewer check.
func (db *DB) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user %d: %w", id, err)
	}
	return exists == 1, nil
}

// UpdateProfile rewrites bio, avatar and the link list wholesale.
func (db *DB) UpdateProfile(ctx context.Context, id int64, bio, avatarURL string, links []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning profile transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET bio = ?, avatar_url = ? WHERE id = ?`, bio, avatarURL, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_links WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: clearing links: %w", err)
	}
	for i, url := range links {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_links (user_id, position, url) VALUES (?, ?, ?)`,
			id, i, url); err != nil {
			return fmt.Errorf("sqlite: inserting link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing profile update: %w", err)
	}
	return nil
}

// SearchUsers serves profile autocomplete: contains match on the handle,
// exact matches first, then alphabetical.
func (db *DB) SearchUsers(ctx context.Context, query string, limit int) ([]model.AuthorSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, bio, avatar_url FROM users
		 WHERE name LIKE ? ESCAPE '\'
		 ORDER BY name = ? DESC, name ASC
		 LIMIT ?`,
		"%"+escapeLike(query)+"%", query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()

	var out []model.AuthorSummary
	for rows.Next() {
		var a model.AuthorSummary
		if err := rows.Scan(&a.Name, &a.Bio, &a.AvatarURL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return out, nil
}

func (db *DB) userLinks(ctx context.Context, userID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT url FROM user_links WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying links: %w", err)
	}
	defer rows.Close()

	links := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("sqlite: scanning link: %w", err)
		}
		links = append(links, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating links: %w", err)
	}
	return links, nil
}

// isUniqueViolation detects a UNIQUE constraint failure without importing
// driver internals; the driver's error string carries the SQLite message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
