package header

// Sort orders headers so that for every header depending on a type T,
// some earlier header declares T. Iterative level assignment: each pass
// admits every remaining header whose dependencies are all satisfied by
// already-admitted headers, then folds the admitted headers' contained
// types into the satisfied set.
//
// Sorting never fails. When a pass admits nothing (cycle or a
// dependency no header declares), the remainder is appended in original
// order and ok is false; the caller warns and generation proceeds
// best-effort. The degradation is deliberate: one unresolved edge in a
// large graph must not block the whole pipeline.
func Sort(headers []*HeaderFile) (sorted []*HeaderFile, ok bool) {
	sorted = make([]*HeaderFile, 0, len(headers))
	remainder := append([]*HeaderFile(nil), headers...)
	satisfied := make(map[string]struct{})

	for len(remainder) > 0 {
		var next []*HeaderFile
		admitted := false
		for _, h := range remainder {
			if dependenciesSatisfied(h, satisfied) {
				sorted = append(sorted, h)
				admitted = true
				for _, name := range h.Contains {
					satisfied[name] = struct{}{}
				}
			} else {
				next = append(next, h)
			}
		}
		if !admitted {
			return append(sorted, next...), false
		}
		remainder = next
	}
	return sorted, true
}

func dependenciesSatisfied(h *HeaderFile, satisfied map[string]struct{}) bool {
	for _, dep := range h.Depends {
		if _, ok := satisfied[dep]; !ok {
			return false
		}
	}
	return true
}

// DependenciesOf returns the headers h transitively depends on, in the
// order they appear in sorted. The result feeds the environment merge,
// which must run in dependency-sort order, never preprocessing
// completion order.
func DependenciesOf(h *HeaderFile, sorted []*HeaderFile) []*HeaderFile {
	needed := make(map[string]struct{})
	for _, dep := range h.Depends {
		needed[dep] = struct{}{}
	}

	included := make(map[*HeaderFile]struct{})
	// Walk backwards so a dependency's own depends are collected before
	// the headers declaring them are considered.
	changed := true
	for changed {
		changed = false
		for _, other := range sorted {
			if other == h {
				continue
			}
			if _, ok := included[other]; ok {
				continue
			}
			if !declaresAny(other, needed) {
				continue
			}
			included[other] = struct{}{}
			changed = true
			for _, dep := range other.Depends {
				needed[dep] = struct{}{}
			}
		}
	}

	var out []*HeaderFile
	for _, other := range sorted {
		if _, ok := included[other]; ok {
			out = append(out, other)
		}
	}
	return out
}

func declaresAny(h *HeaderFile, names map[string]struct{}) bool {
	for _, c := range h.Contains {
		if _, ok := names[c]; ok {
			return true
		}
	}
	return false
}
