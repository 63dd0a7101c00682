package emit

import (
	"regexp"
	"strings"

	"bindgen/internal/header"
)

// specEntry binds one template parameter name to the concrete type of
// a specialization.
type specEntry struct {
	Name  string
	Value string
}

// specMap is ordered so generated template argument lists follow the
// declaration order of the parameters.
type specMap []specEntry

func (s specMap) lookup(name string) (string, bool) {
	for _, e := range s {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

func (s specMap) values() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Value
	}
	return out
}

// merge layers method-level specializations over the class-level ones.
func (s specMap) merge(extra specMap) specMap {
	out := append(specMap(nil), s...)
outer:
	for _, e := range extra {
		for i := range out {
			if out[i].Name == e.Name {
				out[i].Value = e.Value
				continue outer
			}
		}
		out = append(out, e)
	}
	return out
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// resolveType rewrites a type as written in the header into a fully
// qualified type: template parameters are substituted with the
// specialization's arguments and known short names are expanded via the
// environment. Identifiers preceded by "::" are already qualified by
// their left-hand side and are left alone.
func resolveType(text string, specs specMap, env *header.Environment) string {
	var b strings.Builder
	last := 0
	for _, loc := range identRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		b.WriteString(text[last:start])
		ident := text[start:end]
		switch {
		case start >= 2 && text[start-2:start] == "::":
			b.WriteString(ident)
		default:
			if value, ok := specs.lookup(ident); ok {
				b.WriteString(value)
			} else {
				b.WriteString(env.Resolve(ident))
			}
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}
