// Package postgres implements the repository interfaces on PostgreSQL through
// the pgx database/sql driver. Queries match the sqlite package one for one;
// only placeholders and the upsert syntax differ.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// registers the "pgx" driver with database/sql
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jogjaantibully/kanal/internal/repository"
	"github.com/jogjaantibully/kanal/internal/repository/migrations"
)

var _ repository.Store = (*DB)(nil)

type DB struct {
	conn *sql.DB
}

// New connects to dsn, verifies the connection and applies migrations.
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	if err := migrations.Up(ctx, conn, migrations.DialectPostgres); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() repository.UserRepository {
	return &UserDB{conn: db.conn}
}

func (db *DB) Quotes() repository.QuoteRepository {
	return &QuoteDB{conn: db.conn}
}

func (db *DB) GelarPosts() repository.GelarPostRepository {
	return &GelarPostDB{conn: db.conn}
}

func clampList(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = max(opts.Offset, 0)
	return limit, offset
}
