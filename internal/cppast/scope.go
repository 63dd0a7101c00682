package cppast

import "strings"

// ScopePath is an ordered sequence of enclosing scope names
// (namespaces and classes). Qualification goes through Qualify instead
// of ad hoc string concatenation so nested-template names cannot pick
// up stray separators.
type ScopePath []string

// Push returns a new path extended with seg. The receiver is not
// modified; paths are shared across recursive environment builds.
func (s ScopePath) Push(seg string) ScopePath {
	out := make(ScopePath, len(s), len(s)+1)
	copy(out, s)
	return append(out, seg)
}

// Qualify renders name under this scope using the C++ scope separator.
func (s ScopePath) Qualify(name string) string {
	if len(s) == 0 {
		return name
	}
	return s.String() + "::" + name
}

func (s ScopePath) String() string {
	return strings.Join(s, "::")
}
