package withdef

import "github.com/roach88/withdef/internal/ir"

// State is the derived view state, rebuilt wholesale on every
// reconciliation and never mutated afterwards.
//
// Record and HighlightedRecord are the store's own pointers as of the
// reconciliation; nil until fetched.
type State struct {
	Repo string `json:"repo"`
	Rev  string `json:"rev"`
	Def  string `json:"def"`

	Record *ir.Def `json:"record,omitempty"`

	HighlightedKey    string  `json:"highlighted_key,omitempty"`
	HighlightedRecord *ir.Def `json:"highlighted_record,omitempty"`

	// Extra is a copy of Props.Extra minus keys that name State fields.
	Extra map[string]any `json:"extra,omitempty"`

	// reconciled is false only for the zero State a container starts from.
	reconciled bool

	// highlightParsed is set when HighlightedKey parsed to a key.
	highlightParsed bool
}

// Key returns the identity triple of s.
func (s State) Key() ir.DefKey {
	return ir.DefKey{Repo: s.Repo, Rev: s.Rev, Def: s.Def}
}

// Reconciled reports whether s was produced by Reconcile.
func (s State) Reconciled() bool {
	return s.reconciled
}

// Settled reports whether s needs nothing more from the fetch layer: the
// record has arrived or there is no def to fetch, and a highlighted def
// that parses has its record too.
func (s State) Settled() bool {
	if !s.reconciled {
		return false
	}
	if s.Def != "" && s.Record == nil {
		return false
	}
	return !s.highlightParsed || s.HighlightedRecord != nil
}

// stateKeys are the pass-through keys shadowed by State fields.
var stateKeys = map[string]bool{
	"repo":               true,
	"rev":                true,
	"def":                true,
	"record":             true,
	"highlighted_key":    true,
	"highlighted_record": true,
}

// Reconcile derives the State for props from the current store contents.
//
// It has no side effects and returns structurally equal States for the
// same (props, store snapshot).
func Reconcile(store Store, parser KeyParser, props Props) State {
	next := State{
		Repo:       props.Repo,
		Rev:        props.Rev,
		Def:        resolveDef(props),
		reconciled: true,
	}

	if len(props.Extra) > 0 {
		next.Extra = make(map[string]any, len(props.Extra))
		for k, v := range props.Extra {
			if !stateKeys[k] {
				next.Extra[k] = v
			}
		}
	}

	if next.Def != "" {
		next.Record = store.Get(next.Repo, next.Rev, next.Def)
	}

	next.HighlightedKey = store.Highlighted()
	if next.HighlightedKey != "" {
		if hk, ok := parser.ParseKey(next.HighlightedKey); ok {
			next.highlightParsed = true
			next.HighlightedRecord = store.Get(hk.Repo, hk.Rev, hk.Def)
		}
	}

	return next
}
