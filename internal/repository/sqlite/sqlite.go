// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// One DB value implements UserRepository, OTPRepository, RegistrationStore
// and TaskRepository — a single file-backed store serves all of them.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives per-connection: a second pooled connection
	// would see an empty schema. Pin the pool to one connection for ":memory:".
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — important
	// because every API request hits this database.
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

// Close closes the connection pool. Callers should defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the tables. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
func (db *DB) migrate() error {
	// users: the credential store. email is UNIQUE — concurrent sign-up races
	// for the same address are resolved here, not in application code.
	// The CHECK keeps points from ever going negative at the storage level.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id           TEXT PRIMARY KEY,
			email             TEXT NOT NULL UNIQUE,
			password_hash     TEXT NOT NULL,
			name              TEXT NOT NULL DEFAULT '',
			is_onboarded      INTEGER NOT NULL DEFAULT 0,
			notification_time TEXT NOT NULL DEFAULT '',
			notification_days TEXT NOT NULL DEFAULT '[]',
			cover_choice      INTEGER NOT NULL DEFAULT 1,
			points            INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
			subscription      TEXT NOT NULL DEFAULT 'freeTier',
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// otps: the one-time-passcode ledger. expires_at is epoch milliseconds.
	// Single-active-code-per-email is enforced by Replace's delete-then-insert
	// transaction rather than a UNIQUE constraint, so a stale row never blocks
	// a fresh issue.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS otps (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL,
			code       TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_otps_email ON otps(email);
		CREATE INDEX IF NOT EXISTS idx_otps_expires_at ON otps(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating otps table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			task_id           TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL REFERENCES users(user_id),
			task_name         TEXT NOT NULL,
			is_completed      INTEGER NOT NULL DEFAULT 0,
			completed_at      DATETIME,
			completion_points INTEGER NOT NULL DEFAULT 0,
			date              TEXT NOT NULL,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_user_date ON tasks(user_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating tasks table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE / PRIMARY KEY constraint
// failure. Checks the typed driver error first, falls back to the message for
// older driver versions.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
