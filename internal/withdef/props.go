package withdef

import (
	"strings"

	"github.com/roach88/withdef/internal/ir"
)

// Props are the properties a caller (usually a router) passes to a
// container.
type Props struct {
	Repo string
	Rev  string

	// Def, when set, names the definition directly and wins over Params.
	Def string

	// Params carries the route match the def is extracted from.
	Params *Params

	// Extra holds pass-through fields for the wrapped component.
	Extra map[string]any
}

// Params is the route-parameter structure: the path split around the
// "/-/def/" separator, so Splat[0] is "repo@rev" and Splat[1] the def path.
type Params struct {
	Splat []string
}

// DefIdentifier returns Splat[1], or "" when p is nil or Splat does not
// have exactly two elements.
func (p *Params) DefIdentifier() string {
	if p == nil || len(p.Splat) != 2 {
		return ""
	}
	return p.Splat[1]
}

// resolveDef returns the def identifier for props: Def if set, otherwise
// the one carried by Params.
func resolveDef(props Props) string {
	if props.Def != "" {
		return props.Def
	}
	return props.Params.DefIdentifier()
}

// PropsFromSpec builds the props a router gives a def page for spec (any
// form ir.ParseDefSpec accepts): repo and rev from the parsed key, and a
// splat of the repo/rev part and the def path.
func PropsFromSpec(spec string) (Props, bool) {
	key, ok := ir.ParseDefSpec(spec)
	if !ok {
		return Props{}, false
	}
	repoRev, _, _ := strings.Cut(spec, "/-/")
	return Props{
		Repo:   key.Repo,
		Rev:    key.Rev,
		Params: &Params{Splat: []string{repoRev, key.Def}},
	}, true
}
