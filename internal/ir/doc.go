// Package ir provides the shared value types for withdef.
//
// This package contains type definitions only, plus the pure helpers that
// operate on them (identity parsing, canonical JSON, content hashing). All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - DefKey equality is structural (all three fields compared byte for byte)
//   - Def records are owned by the store; consumers hold *Def read-only
//   - WantDef is immutable once constructed
//   - All JSON tags use snake_case
package ir
