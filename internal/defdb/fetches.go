package defdb

import (
	"context"
	"fmt"

	"github.com/roach88/withdef/internal/ir"
)

// Fetch outcomes recorded in the fetch log.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Fetch is one row of the fetch log.
type Fetch struct {
	Seq       int64     `json:"seq"`
	RequestID string    `json:"request_id"`
	Key       ir.DefKey `json:"key"`
	Outcome   string    `json:"outcome"`
}

// WriteFetch appends a row to the fetch log and returns its seq.
func (d *DB) WriteFetch(ctx context.Context, req ir.WantDef, outcome string) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO fetches (request_id, repo, rev, path, outcome)
		VALUES (?, ?, ?, ?, ?)
	`, req.ID, req.Key.Repo, req.Key.Rev, req.Key.Def, outcome)
	if err != nil {
		return 0, fmt.Errorf("write fetch: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write fetch: last insert id: %w", err)
	}
	return seq, nil
}

// ReadFetches returns the fetch log ordered by seq. A limit <= 0 returns
// every row; otherwise the most recent limit rows, still oldest first.
func (d *DB) ReadFetches(ctx context.Context, limit int) ([]Fetch, error) {
	query := `
		SELECT seq, request_id, repo, rev, path, outcome
		FROM fetches
		ORDER BY seq ASC
	`
	var args []any
	if limit > 0 {
		query = `
			SELECT seq, request_id, repo, rev, path, outcome FROM (
				SELECT seq, request_id, repo, rev, path, outcome
				FROM fetches
				ORDER BY seq DESC
				LIMIT ?
			) ORDER BY seq ASC
		`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetches: %w", err)
	}
	defer rows.Close()

	fetches := []Fetch{}
	for rows.Next() {
		var f Fetch
		if err := rows.Scan(&f.Seq, &f.RequestID, &f.Key.Repo, &f.Key.Rev, &f.Key.Def, &f.Outcome); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		fetches = append(fetches, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetches: %w", err)
	}

	return fetches, nil
}
