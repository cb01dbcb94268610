// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/leo/pkg/storage/sqldriver"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		pro_mode BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		notes TEXT,
		content TEXT,
		analysis TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS urls_user_created_idx ON urls (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_user_created_idx ON chat_messages (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS leo_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		answer TEXT,
		created_at DATETIME NOT NULL,
		answered_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS user_contexts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		context TEXT NOT NULL,
		version INTEGER NOT NULL,
		last_updated DATETIME NOT NULL,
		UNIQUE (user_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS context_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		profile_id INTEGER NOT NULL,
		source_id INTEGER,
		url TEXT NOT NULL,
		title TEXT,
		notes TEXT,
		content TEXT,
		analysis TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE (profile_id, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS context_urls_scope_idx ON context_urls (user_id, profile_id)`,
	`CREATE TABLE IF NOT EXISTS context_chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		profile_id INTEGER NOT NULL,
		source_id INTEGER,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (profile_id, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS context_chat_messages_scope_idx ON context_chat_messages (user_id, profile_id)`,
}

// Driver implements storage.Driver using SQLite.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver creates a new SQLite-backed driver and applies the schema.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string, opts ...sqldriver.Option) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: every ":memory:" connection is its own database, and
	// SQLite allows a single writer anyway. This also serializes the
	// read-then-insert in UpdateUserContext.
	db.SetMaxOpenConns(1)

	// SQLite-specific pragmas
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	drv := sqldriver.New(db, sqldriver.Dialect{
		Name:              dialect.SQLite,
		IsUniqueViolation: IsUniqueViolation,
	}, opts...)

	if err := drv.Exec(ctx, schema...); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{Driver: drv}, nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
