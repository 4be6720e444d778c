package defdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/withdef/internal/ir"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteDef inserts or replaces the definition stored under def.Key.
func (d *DB) WriteDef(ctx context.Context, def ir.Def) error {
	return writeDef(ctx, d.db, def)
}

// WriteDefs writes defs in one transaction. Either all are written or none.
func (d *DB) WriteDefs(ctx context.Context, defs []ir.Def) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, def := range defs {
		if err = writeDef(ctx, tx, def); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeDef(ctx context.Context, ex execer, def ir.Def) error {
	if def.Key.Def == "" {
		return fmt.Errorf("write def: empty def path for %s@%s", def.Key.Repo, def.Key.Rev)
	}

	id := ir.KeyID(def.Key)

	var errStatus int
	var errMessage string
	if def.Error != nil {
		errStatus = def.Error.Status
		errMessage = def.Error.Message
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO defs
		(id, repo, rev, path, name, kind, file, start_line, end_line, doc_html, error_status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			file = excluded.file,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			doc_html = excluded.doc_html,
			error_status = excluded.error_status,
			error_message = excluded.error_message
	`,
		id,
		def.Key.Repo,
		def.Key.Rev,
		def.Key.Def,
		def.Name,
		def.Kind,
		def.File,
		def.StartLine,
		def.EndLine,
		def.DocHTML,
		errStatus,
		errMessage,
	)
	if err != nil {
		return fmt.Errorf("write def %s: %w", def.Key, err)
	}

	return nil
}

// ReadDef returns the definition stored under k.
// Returns ErrNotFound if there is none.
func (d *DB) ReadDef(ctx context.Context, k ir.DefKey) (ir.Def, error) {
	id := ir.KeyID(k)

	row := d.db.QueryRowContext(ctx, `
		SELECT repo, rev, path, name, kind, file, start_line, end_line, doc_html, error_status, error_message
		FROM defs
		WHERE id = ?
	`, id)

	def, err := scanDef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Def{}, ErrNotFound
	}
	if err != nil {
		return ir.Def{}, fmt.Errorf("read def %s: %w", k, err)
	}
	return def, nil
}

// ListDefs returns every definition for repo, ordered by (rev, path).
// An empty repo lists all definitions, ordered by (repo, rev, path).
func (d *DB) ListDefs(ctx context.Context, repo string) ([]ir.Def, error) {
	query := `
		SELECT repo, rev, path, name, kind, file, start_line, end_line, doc_html, error_status, error_message
		FROM defs
	`
	var args []any
	if repo != "" {
		query += ` WHERE repo = ?`
		args = append(args, repo)
	}
	query += ` ORDER BY repo COLLATE BINARY ASC, rev COLLATE BINARY ASC, path COLLATE BINARY ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query defs: %w", err)
	}
	defer rows.Close()

	defs := []ir.Def{}
	for rows.Next() {
		def, err := scanDef(rows)
		if err != nil {
			return nil, fmt.Errorf("scan def: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate defs: %w", err)
	}

	return defs, nil
}

// CountDefs returns the number of stored definitions.
func (d *DB) CountDefs(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM defs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count defs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDef(s scanner) (ir.Def, error) {
	var def ir.Def
	var errStatus int
	var errMessage string

	err := s.Scan(
		&def.Key.Repo,
		&def.Key.Rev,
		&def.Key.Def,
		&def.Name,
		&def.Kind,
		&def.File,
		&def.StartLine,
		&def.EndLine,
		&def.DocHTML,
		&errStatus,
		&errMessage,
	)
	if err != nil {
		return ir.Def{}, err
	}

	if errStatus != 0 || errMessage != "" {
		def.Error = &ir.DefError{Status: errStatus, Message: errMessage}
	}
	return def, nil
}
