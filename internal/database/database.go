// Package database owns the SQLite connection for the sync engine: it opens
// the file, applies the connection pragmas every store relies on, and brings
// the schema current before handing the handle out.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DefaultBusyTimeout is how long a writer waits on a locked database before
// giving up. Mutation endpoints and the upsert paths contend on the same
// file, so queuing briefly beats surfacing SQLITE_BUSY to a client.
const DefaultBusyTimeout = 5 * time.Second

// Open opens the SQLite database at path with the default busy timeout,
// creating the file (and its parent directory) as needed, and migrates the
// schema. Tests pass ":memory:" for a throwaway database.
func Open(path string) (*sql.DB, error) {
	return OpenTimeout(path, DefaultBusyTimeout)
}

// OpenTimeout is Open with an explicit busy timeout.
func OpenTimeout(path string, busyTimeout time.Duration) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	// WAL lets stream readers keep serving while a mutation commits;
	// foreign keys back the list/item and list/contributor cascades.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify database connection: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
