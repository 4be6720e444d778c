package ir

import "strings"

// routeSep separates the repo/rev part of a def spec from the def path.
const routeSep = "/-/"

// ParseDefSpec splits a def spec into its key.
//
// Accepted forms:
//
//	repo@rev/-/def/path
//	repo@rev/-/path
//	repo/rev/-/path
//
// In the last form the rev is the final path element before the separator.
// ok is false when spec has no separator, an empty repo, or an empty
// def path. Parsing never panics.
func ParseDefSpec(spec string) (DefKey, bool) {
	left, right, found := strings.Cut(spec, routeSep)
	if !found {
		return DefKey{}, false
	}

	var key DefKey
	if i := strings.LastIndex(left, "@"); i >= 0 {
		key.Repo, key.Rev = left[:i], left[i+1:]
	} else if i := strings.LastIndex(left, "/"); i >= 0 {
		key.Repo, key.Rev = left[:i], left[i+1:]
	} else {
		key.Repo = left
	}

	key.Def = strings.TrimPrefix(right, "def/")
	if key.Repo == "" || key.Def == "" {
		return DefKey{}, false
	}
	return key, true
}

// String formats k as repo@rev/-/def/path. An empty rev is omitted.
func (k DefKey) String() string {
	var b strings.Builder
	b.WriteString(k.Repo)
	if k.Rev != "" {
		b.WriteByte('@')
		b.WriteString(k.Rev)
	}
	b.WriteString(routeSep)
	b.WriteString("def/")
	b.WriteString(k.Def)
	return b.String()
}
