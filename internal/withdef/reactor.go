package withdef

import (
	"log/slog"

	"github.com/roach88/withdef/internal/ir"
)

// Reactor issues the side effects of one state transition.
type Reactor struct {
	Dispatcher Dispatcher
	Status     StatusReporter
	Parser     KeyParser
}

// React compares prev with next and, each check independent of the others:
//
//   - dispatches a WantDef for next's key when the key changed by value
//     (or next is the first reconciled state), absent parts included;
//   - reports next.Record.Error when next.Record is a new pointer, so a
//     given record is reported once, not on every render;
//   - dispatches a WantDef for the parsed highlighted key when it is set,
//     changed, and parses.
func (r Reactor) React(prev, next State) {
	if !prev.reconciled || prev.Key() != next.Key() {
		r.want(next.Key(), "props")
	}

	if next.Record != nil && next.Record != prev.Record {
		if !next.Record.Error.IsZero() {
			slog.Debug("reporting record error",
				"repo", next.Repo,
				"rev", next.Rev,
				"def", next.Def,
				"status", next.Record.Error.Status,
			)
			r.Status.Error(next.Record.Error)
		}
	}

	if next.HighlightedKey != "" && next.HighlightedKey != prev.HighlightedKey {
		hk, ok := r.Parser.ParseKey(next.HighlightedKey)
		if !ok {
			slog.Debug("highlighted def spec did not parse",
				"highlighted", next.HighlightedKey,
			)
			return
		}
		r.want(hk, "highlight")
	}
}

func (r Reactor) want(key ir.DefKey, cause string) {
	slog.Debug("want def",
		"repo", key.Repo,
		"rev", key.Rev,
		"def", key.Def,
		"cause", cause,
	)
	r.Dispatcher.Dispatch(ir.WantDef{Key: key})
}
