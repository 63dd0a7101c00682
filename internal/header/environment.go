package header

import "bindgen/internal/cppast"

// Environment maps short/unqualified symbol names declared in a header
// to their fully qualified names. It is built from the header's own
// declarations, then extended with the environments of the headers it
// depends on.
type Environment struct {
	Mapping map[string]string

	// local remembers the header's own entries so a dependency merge
	// can never shadow them.
	local map[string]string
}

// BuildEnvironment constructs a fresh environment for a declaration
// tree. The mapping is allocated here and threaded explicitly through
// every recursive call; nothing is shared between invocations.
func BuildEnvironment(ns *cppast.Namespace) *Environment {
	mapping := make(map[string]string)
	buildMapping(ns, mapping, cppast.ScopePath{})
	registerEnumValues(ns, mapping, cppast.ScopePath{})

	local := make(map[string]string, len(mapping))
	for k, v := range mapping {
		local[k] = v
	}
	return &Environment{Mapping: mapping, local: local}
}

func buildMapping(ns *cppast.Namespace, mapping map[string]string, scope cppast.ScopePath) {
	for _, td := range ns.Typedefs {
		mapping[td.Name] = scope.Qualify(td.Name)
	}
	for _, en := range ns.Enums {
		if !en.Anonymous {
			mapping[en.Name] = scope.Qualify(en.Name)
		}
	}
	for _, cls := range ns.Classes {
		mapping[cls.Name] = scope.Qualify(cls.Name)
		buildClassMapping(cls, mapping, scope.Push(cls.Name))
	}
	for _, nested := range ns.Namespaces {
		buildMapping(nested, mapping, scope.Push(nested.Name))
	}
}

func buildClassMapping(cls *cppast.Class, mapping map[string]string, scope cppast.ScopePath) {
	for _, td := range cls.Typedefs {
		mapping[td.Name] = scope.Qualify(td.Name)
	}
	for _, en := range cls.Enums {
		if !en.Anonymous {
			mapping[en.Name] = scope.Qualify(en.Name)
		}
	}
	for _, nested := range cls.Classes {
		mapping[nested.Name] = scope.Qualify(nested.Name)
		buildClassMapping(nested, mapping, scope.Push(nested.Name))
	}
}

// registerEnumValues adds <EnumName>::<ValueName> entries for every
// named enum, with the enum name resolved through the mapping built so
// far. Anonymous enums have no stable name to key on and contribute
// nothing.
func registerEnumValues(ns *cppast.Namespace, mapping map[string]string, scope cppast.ScopePath) {
	addValues := func(en cppast.Enum, enclosing cppast.ScopePath) {
		if en.Anonymous {
			return
		}
		qualified, ok := mapping[en.Name]
		if !ok {
			qualified = enclosing.Qualify(en.Name)
		}
		for _, v := range en.Values {
			mapping[v] = qualified + "::" + v
		}
	}

	for _, en := range ns.Enums {
		addValues(en, scope)
	}
	var walkClass func(cls *cppast.Class, scope cppast.ScopePath)
	walkClass = func(cls *cppast.Class, scope cppast.ScopePath) {
		inner := scope.Push(cls.Name)
		for _, en := range cls.Enums {
			addValues(en, inner)
		}
		for _, nested := range cls.Classes {
			walkClass(nested, inner)
		}
	}
	for _, cls := range ns.Classes {
		walkClass(cls, scope)
	}
	for _, nested := range ns.Namespaces {
		registerEnumValues(nested, mapping, scope.Push(nested.Name))
	}
}

// MergeDependencies folds dependency environments into this one.
// deps must be in dependency-sort order; collisions between two
// dependencies resolve last-merge-wins, which keeps the outcome stable
// for a fixed input ordering (diamond-shaped graphs can still resolve a
// short name to whichever dependency sorts later). The header's own
// entries always win over inherited ones.
func (e *Environment) MergeDependencies(deps []*Environment) {
	for _, dep := range deps {
		for name, qualified := range dep.Mapping {
			if _, own := e.local[name]; own {
				continue
			}
			e.Mapping[name] = qualified
		}
	}
}

// Resolve returns the fully qualified name for a short name, or the
// input unchanged when the environment has no entry for it.
func (e *Environment) Resolve(name string) string {
	if q, ok := e.Mapping[name]; ok {
		return q
	}
	return name
}
