// Package backend resolves fetch requests into store records.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roach88/withdef/internal/defdb"
	"github.com/roach88/withdef/internal/ir"
)

// Index is the lookup side of the definition index. *defdb.DB implements
// it.
type Index interface {
	ReadDef(ctx context.Context, k ir.DefKey) (ir.Def, error)
	WriteFetch(ctx context.Context, req ir.WantDef, outcome string) (int64, error)
}

// Sink receives resolved records. *defstore.Store implements it.
type Sink interface {
	Has(k ir.DefKey) bool
	Put(d ir.Def)
}

// NotFoundMessage is the error message stored for keys missing from the
// index.
const NotFoundMessage = "not found"

// DefBackend answers WantDef requests from an Index.
//
// Requests for an absent def are skipped, as are requests for keys the
// sink already holds. Lookups are never retried: a failed lookup becomes
// an error record, which is what the container reports and renders.
type DefBackend struct {
	index Index
	sink  Sink
}

// NewDefBackend creates a DefBackend.
func NewDefBackend(index Index, sink Sink) *DefBackend {
	return &DefBackend{index: index, sink: sink}
}

// Handle resolves one request. It implements dispatch.Backend.
//
// The returned error covers only fetch-log failures; lookup failures are
// published to the sink as records.
func (b *DefBackend) Handle(ctx context.Context, req ir.WantDef) error {
	outcome := b.resolve(ctx, req)

	if _, err := b.index.WriteFetch(ctx, req, outcome); err != nil {
		return fmt.Errorf("log fetch %s: %w", req.ID, err)
	}
	return nil
}

func (b *DefBackend) resolve(ctx context.Context, req ir.WantDef) string {
	if req.Key.Def == "" || req.Key.Repo == "" {
		slog.Debug("skipping request without def",
			"request_id", req.ID,
			"repo", req.Key.Repo,
			"rev", req.Key.Rev,
		)
		return defdb.OutcomeSkipped
	}

	if b.sink.Has(req.Key) {
		slog.Debug("def already held, skipping",
			"request_id", req.ID,
			"def", req.Key.String(),
		)
		return defdb.OutcomeSkipped
	}

	def, err := b.index.ReadDef(ctx, req.Key)
	switch {
	case errors.Is(err, defdb.ErrNotFound):
		b.sink.Put(ir.Def{
			Key:   req.Key,
			Error: &ir.DefError{Status: http.StatusNotFound, Message: NotFoundMessage},
		})
		slog.Info("def not found",
			"request_id", req.ID,
			"def", req.Key.String(),
		)
		return defdb.OutcomeNotFound

	case err != nil:
		b.sink.Put(ir.Def{
			Key:   req.Key,
			Error: &ir.DefError{Status: http.StatusInternalServerError, Message: err.Error()},
		})
		slog.Error("def lookup failed",
			"error", err,
			"request_id", req.ID,
			"def", req.Key.String(),
		)
		return defdb.OutcomeError
	}

	// The record is filed under the requested key, which is what the
	// container looks up.
	def.Key = req.Key
	b.sink.Put(def)
	slog.Info("def resolved",
		"request_id", req.ID,
		"def", req.Key.String(),
		"failed", def.Failed(),
	)
	return defdb.OutcomeFound
}
