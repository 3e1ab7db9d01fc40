// Package sqlite implements the repository interfaces on an embedded SQLite
// database via the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath, enables WAL and foreign
// keys, and runs migrations. Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database is per-connection: a second pooled connection
	// would see an empty database without the schema or pragmas.
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight; foreign keys are
	// off by default and the schema relies on them for cascades.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	// Username lookups are case-insensitive, hence COLLATE NOCASE on the
	// unique index. parent_snippet_id is SET NULL on parent delete: remixes
	// outlive their originals. comments.parent_id cascades: deleting a
	// comment takes its reply subtree with it.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL COLLATE NOCASE UNIQUE,
			password_hash TEXT NOT NULL,
			bio           TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS user_links (
			user_id  INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			url      TEXT NOT NULL,
			PRIMARY KEY (user_id, position)
		);

		CREATE TABLE IF NOT EXISTS snippets (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			name              TEXT NOT NULL,
			code              TEXT NOT NULL DEFAULT '',
			description       TEXT NOT NULL DEFAULT '',
			owner_id          INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			parent_snippet_id INTEGER REFERENCES snippets(id) ON DELETE SET NULL,
			is_public         INTEGER NOT NULL DEFAULT 0,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_owner ON snippets(owner_id);
		CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at);

		CREATE TABLE IF NOT EXISTS tag_uses (
			snippet_id INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			tag        TEXT NOT NULL COLLATE NOCASE,
			PRIMARY KEY (snippet_id, tag)
		);
		CREATE INDEX IF NOT EXISTS idx_tag_uses_tag ON tag_uses(tag);

		CREATE TABLE IF NOT EXISTS permission_grants (
			snippet_id INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			granted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (snippet_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_grants_user ON permission_grants(user_id);

		CREATE TABLE IF NOT EXISTS likes (
			snippet_id INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (snippet_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS comments (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			snippet_id INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			parent_id  INTEGER REFERENCES comments(id) ON DELETE CASCADE,
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_snippet ON comments(snippet_id);
		CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);

		CREATE TABLE IF NOT EXISTS embeddings (
			snippet_id INTEGER PRIMARY KEY REFERENCES snippets(id) ON DELETE CASCADE,
			model      TEXT NOT NULL,
			dims       INTEGER NOT NULL,
			vector     BLOB NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
