// Package selection holds the set of selected node IDs.
//
// [Set] is immutable: every operation returns a new set, which lets the
// interaction reducer and the canvas pass selections around as plain values.
package selection

import (
	"maps"
	"slices"
)

// Set is an immutable set of node IDs. The zero value is empty.
type Set struct {
	ids map[string]struct{}
}

// Of returns a set holding ids.
func Of(ids ...string) Set {
	if len(ids) == 0 {
		return Set{}
	}
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{ids: m}
}

// Has reports whether id is selected.
func (s Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected IDs.
func (s Set) Len() int { return len(s.ids) }

// IDs returns the selected IDs in sorted order.
func (s Set) IDs() []string { return slices.Sorted(maps.Keys(s.ids)) }

// Toggle adds id if absent and removes it otherwise.
func (s Set) Toggle(id string) Set {
	if s.Has(id) {
		return s.Remove(id)
	}
	return s.Add(id)
}

// Add returns s with ids added.
func (s Set) Add(ids ...string) Set {
	m := maps.Clone(s.ids)
	if m == nil {
		m = make(map[string]struct{}, len(ids))
	}
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{ids: m}
}

// Remove returns s without ids.
func (s Set) Remove(ids ...string) Set {
	m := maps.Clone(s.ids)
	for _, id := range ids {
		delete(m, id)
	}
	return Set{ids: m}
}

// Replace returns a set holding exactly ids.
func (s Set) Replace(ids ...string) Set { return Of(ids...) }

// Clear returns the empty set.
func (s Set) Clear() Set { return Set{} }

// Prune returns s restricted to IDs for which live returns true.
func (s Set) Prune(live func(string) bool) Set {
	m := maps.Clone(s.ids)
	maps.DeleteFunc(m, func(id string, _ struct{}) bool { return !live(id) })
	return Set{ids: m}
}

// Equal reports whether both sets hold the same IDs.
func (s Set) Equal(o Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}
