// Package migrations embeds the goose SQL migrations for every supported
// database dialect. Each dialect keeps its own directory because the column
// types differ (SQLite has no native BOOLEAN or TIMESTAMPTZ).
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dialect names accepted by Up. They double as the directory names.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// gooseDialects maps our directory names onto goose's dialect identifiers.
var gooseDialects = map[string]string{
	DialectSQLite:   "sqlite3",
	DialectPostgres: "postgres",
}

// Up applies every pending migration for the given dialect.
//
// goose keeps its configuration in package-level state, so callers must not
// run Up for two different dialects concurrently.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	gooseDialect, ok := gooseDialects[dialect]
	if !ok {
		return fmt.Errorf("migrations: unknown dialect %q", dialect)
	}

	goose.SetBaseFS(FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("migrations: setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dialect); err != nil {
		return fmt.Errorf("migrations: applying %s migrations: %w", dialect, err)
	}
	return nil
}
