package harness

import (
	"github.com/roach88/withdef/internal/ir"
	"github.com/roach88/withdef/internal/withdef"
)

// Trace event types.
const (
	EventWant   = "want"
	EventFetch  = "fetch"
	EventReport = "report"
	EventRender = "render"
)

// TraceEvent is one observable action of a scenario run. Only the fields
// relevant to Type are set.
type TraceEvent struct {
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	Key       ir.DefKey `json:"key,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Status    int       `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	View      string    `json:"view,omitempty"`
	Title     string    `json:"title,omitempty"`
	Subtitle  string    `json:"subtitle,omitempty"`
	Code      int       `json:"code,omitempty"`
	Loading   bool      `json:"loading,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// View is the last view rendered before the run ended.
	View withdef.View `json:"view"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events of the given type.
func (r *Result) Count(eventType string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}
