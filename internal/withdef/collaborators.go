package withdef

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/withdef/internal/ir"
)

// Store is the read/subscribe view of the shared definition store.
// *defstore.Store implements it.
type Store interface {
	Get(repo, rev, def string) *ir.Def
	Highlighted() string
	Subscribe(fn func()) (unsubscribe func())
}

// Dispatcher sends fetch requests. Dispatch must not block.
// *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(req ir.WantDef)
}

// KeyParser parses a def spec (such as the highlighted def) into a key.
type KeyParser interface {
	ParseKey(spec string) (ir.DefKey, bool)
}

// KeyParserFunc adapts a function to KeyParser.
type KeyParserFunc func(spec string) (ir.DefKey, bool)

// ParseKey calls f(spec).
func (f KeyParserFunc) ParseKey(spec string) (ir.DefKey, bool) {
	return f(spec)
}

// DefaultParser parses def specs with ir.ParseDefSpec.
var DefaultParser KeyParser = KeyParserFunc(ir.ParseDefSpec)

// StatusReporter receives record errors. Implementations must accept nil.
type StatusReporter interface {
	Error(err *ir.DefError)
}

// StatusReporterFunc adapts a function to StatusReporter.
type StatusReporterFunc func(err *ir.DefError)

// Error calls f(err).
func (f StatusReporterFunc) Error(err *ir.DefError) {
	f(err)
}

// StatusFormatter maps a record error to a displayable status code.
type StatusFormatter interface {
	Code(err *ir.DefError) int
}

// HTTPStatusFormatter maps record errors to HTTP status codes.
//
// An explicit Status wins. Otherwise the message is matched against a few
// well-known phrases, falling back to 500.
type HTTPStatusFormatter struct{}

// Code returns the HTTP status code for err; 200 for a nil error.
func (HTTPStatusFormatter) Code(err *ir.DefError) int {
	if err.IsZero() {
		return 200
	}
	if err.Status != 0 {
		return err.Status
	}

	msg := strings.ToLower(err.Message)
	switch {
	case strings.Contains(msg, "not found"):
		return 404
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "unauthenticated"):
		return 401
	case strings.Contains(msg, "forbidden"), strings.Contains(msg, "permission denied"):
		return 403
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return 504
	default:
		return 500
	}
}

// LogReporter reports record errors through slog.
type LogReporter struct{}

// Error logs err at warn level. A nil or empty err is ignored.
func (LogReporter) Error(err *ir.DefError) {
	if err.IsZero() {
		return
	}
	slog.Warn("definition unavailable",
		"status", err.Status,
		"message", err.Message,
	)
}

// StatusRecorder keeps every non-empty error it is given.
//
// Thread-safety: safe for concurrent use.
type StatusRecorder struct {
	mu   sync.Mutex
	errs []ir.DefError
}

// Error records a copy of err. A nil or empty err is ignored.
func (r *StatusRecorder) Error(err *ir.DefError) {
	if err.IsZero() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, *err)
}

// Errors returns the recorded errors in report order.
func (r *StatusRecorder) Errors() []ir.DefError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.DefError, len(r.errs))
	copy(out, r.errs)
	return out
}

// Last returns the most recent error, or nil.
func (r *StatusRecorder) Last() *ir.DefError {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	e := r.errs[len(r.errs)-1]
	return &e
}
