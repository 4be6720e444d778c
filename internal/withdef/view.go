package withdef

import (
	"strconv"

	"github.com/roach88/withdef/internal/ir"
)

// UnavailableSubtitle is the fixed subtitle of the unavailable view.
const UnavailableSubtitle = "Definition is not available."

// SelectionKind is the render branch.
type SelectionKind int

const (
	// SelectNormal renders the wrapped component.
	SelectNormal SelectionKind = iota
	// SelectUnavailable renders the error header instead.
	SelectUnavailable
)

func (k SelectionKind) String() string {
	switch k {
	case SelectNormal:
		return "normal"
	case SelectUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Selection is the outcome of Select.
// Code and Message are set only for SelectUnavailable.
type Selection struct {
	Kind    SelectionKind
	Code    int
	Message string
}

// Select chooses the render branch for s. The record's error, when
// non-empty, selects the unavailable header with its status code.
func Select(s State, formatter StatusFormatter) Selection {
	if s.Record.Failed() {
		return Selection{
			Kind:    SelectUnavailable,
			Code:    formatter.Code(s.Record.Error),
			Message: UnavailableSubtitle,
		}
	}
	return Selection{Kind: SelectNormal}
}

// ViewProps is what the wrapped component receives: the caller's props
// merged with the derived state. State fields shadow props of the same
// name.
type ViewProps struct {
	State
	Params *Params
}

// Component is the wrapped presentational component.
type Component interface {
	Render(p ViewProps) any
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(p ViewProps) any

// Render calls f(p).
func (f ComponentFunc) Render(p ViewProps) any {
	return f(p)
}

// View is the output of one render pass. For the unavailable branch the
// header fields are set and Body is nil; for the normal branch Body holds
// the wrapped component's output.
type View struct {
	Kind     string `json:"kind"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Code     int    `json:"code,omitempty"`
	Body     any    `json:"body,omitempty"`
}

// Unavailable reports whether v is the error header.
func (v View) Unavailable() bool {
	return v.Kind == SelectUnavailable.String()
}

// Render turns a Selection into a View. The component is only called on
// the normal branch.
func Render(sel Selection, props Props, s State, component Component) View {
	if sel.Kind == SelectUnavailable {
		return View{
			Kind:     SelectUnavailable.String(),
			Title:    strconv.Itoa(sel.Code),
			Subtitle: sel.Message,
			Code:     sel.Code,
		}
	}

	return View{
		Kind: SelectNormal.String(),
		Body: component.Render(ViewProps{State: s, Params: props.Params}),
	}
}

// Summary is the output of SummaryComponent.
type Summary struct {
	Key         ir.DefKey `json:"key"`
	Loading     bool      `json:"loading"`
	Name        string    `json:"name,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	File        string    `json:"file,omitempty"`
	StartLine   int64     `json:"start_line,omitempty"`
	EndLine     int64     `json:"end_line,omitempty"`
	DocHTML     string    `json:"doc_html,omitempty"`
	Highlighted *ir.Def   `json:"highlighted,omitempty"`
}

// SummaryComponent renders the current def as a Summary. It is the
// component the CLI and HTTP surfaces wrap.
var SummaryComponent Component = ComponentFunc(func(p ViewProps) any {
	out := Summary{
		Key:         p.Key(),
		Loading:     p.Record == nil,
		Highlighted: p.HighlightedRecord,
	}
	if d := p.Record; d != nil {
		out.Name = d.Name
		out.Kind = d.Kind
		out.File = d.File
		out.StartLine = d.StartLine
		out.EndLine = d.EndLine
		out.DocHTML = d.DocHTML
	}
	return out
})
