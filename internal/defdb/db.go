package defdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/withdef/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on fetches(repo, rev, path)
// 2 - defs.id rehashed from the raw key bytes (ir.KeyID v2)
const currentSchemaVersion = 2

// ErrNotFound is returned when no definition matches a key.
var ErrNotFound = errors.New("defdb: definition not found")

// DB is the definition index.
type DB struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path. Use ":memory:" for a
// throwaway database. Pragmas and migrations are applied on every open.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; one connection also keeps a
	// ":memory:" database alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_fetches_key
		ON fetches(repo, rev, path)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 recomputes every defs.id with the current ir.KeyID.
func migrateToV2(db *sql.DB) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v2: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	rows, err := tx.Query(`SELECT id, repo, rev, path FROM defs`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	ids := make(map[string]string)
	for rows.Next() {
		var old string
		var k ir.DefKey
		if err = rows.Scan(&old, &k.Repo, &k.Rev, &k.Def); err != nil {
			rows.Close()
			return fmt.Errorf("migrate to v2: %w", err)
		}
		ids[old] = ir.KeyID(k)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("migrate to v2: %w", err)
	}
	rows.Close()

	for old, id := range ids {
		if _, err = tx.Exec(`UPDATE defs SET id = ? WHERE id = ?`, id, old); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v2: commit: %w", err)
	}
	return nil
}

// schemaVersion returns user_version. Used for testing.
func (d *DB) schemaVersion() (int, error) {
	var v int
	err := d.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}
