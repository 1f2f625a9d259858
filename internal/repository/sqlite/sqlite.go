// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the Go binary as a single file.
// No separate database server to install for local development, and tests can
// use ":memory:" for a throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of the SQLite C code. No C compiler
// needed, so cross-compilation keeps working.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...) works.
	_ "modernc.org/sqlite"

	"github.com/jogjaantibully/kanal/internal/repository"
	"github.com/jogjaantibully/kanal/internal/repository/migrations"
)

// compile-time check that *DB provides every repository
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and hands out the per-collection
// repositories that share it.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/kanal.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (lost on close)
//
// ONE CONNECTION:
// SQLite allows a single writer at a time, and every new connection to
// ":memory:" would open a brand-new empty database. Pinning the pool to one
// connection keeps both cases correct.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode lets readers proceed while a write is
	// in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := migrations.Up(context.Background(), conn, migrations.DialectSQLite); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the "users" collection.
func (db *DB) Users() repository.UserRepository {
	return &UserDB{conn: db.conn}
}

// Quotes returns the "quotes" collection.
func (db *DB) Quotes() repository.QuoteRepository {
	return &QuoteDB{conn: db.conn}
}

// GelarPosts returns the "gelarPosts" collection.
func (db *DB) GelarPosts() repository.GelarPostRepository {
	return &GelarPostDB{conn: db.conn}
}

// clampList applies the same page-size rules to every List query.
func clampList(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
