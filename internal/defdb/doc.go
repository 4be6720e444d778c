// Package defdb provides the SQLite-backed definition index the fetch layer
// resolves requests from.
//
// Two tables:
//   - defs: one row per (repo, rev, path), keyed by ir.KeyID
//   - fetches: an append-only log of resolved requests, ordered by seq
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Reads that list rows always ORDER BY a deterministic key so output is
// stable across runs.
package defdb
