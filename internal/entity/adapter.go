// Package entity provides a generic normalized collection: a map keyed by ID
// plus an ID list kept in a caller-defined sort order.
package entity

import "sort"

// Config describes how an Adapter identifies, orders and copies its values.
type Config[T any] struct {
	// ID extracts the primary key. Required.
	ID func(T) string
	// Less orders two values. When nil, values are ordered by ID.
	Less func(a, b T) bool
	// Clone copies a value on the way in and out. When nil, values are copied by assignment.
	Clone func(T) T
}

// Adapter is a sorted entity map. It is not safe for concurrent use; callers
// guard it with their own lock.
type Adapter[T any] struct {
	cfg      Config[T]
	entities map[string]T
	ids      []string
}

// NewAdapter returns an empty adapter. It panics when cfg.ID is nil.
func NewAdapter[T any](cfg Config[T]) *Adapter[T] {
	if cfg.ID == nil {
		panic("entity: Config.ID is required")
	}
	if cfg.Clone == nil {
		cfg.Clone = func(v T) T { return v }
	}
	return &Adapter[T]{cfg: cfg, entities: make(map[string]T)}
}

// Add inserts v, replacing any value stored under the same ID. It reports
// whether the ID was previously absent.
func (a *Adapter[T]) Add(v T) bool {
	inserted := a.put(v)
	a.resort()
	return inserted
}

// AddMany upserts every value and resorts once.
func (a *Adapter[T]) AddMany(values ...T) {
	for _, v := range values {
		a.put(v)
	}
	a.resort()
}

func (a *Adapter[T]) put(v T) bool {
	id := a.cfg.ID(v)
	_, exists := a.entities[id]
	a.entities[id] = a.cfg.Clone(v)
	if !exists {
		a.ids = append(a.ids, id)
	}
	return !exists
}

// Update applies fn to a copy of the stored value and stores the result.
// Missing IDs are ignored and reported as false. fn cannot change the ID.
func (a *Adapter[T]) Update(id string, fn func(*T)) bool {
	current, ok := a.entities[id]
	if !ok {
		return false
	}
	next := a.cfg.Clone(current)
	fn(&next)
	if a.cfg.ID(next) != id {
		return false
	}
	a.entities[id] = next
	a.resort()
	return true
}

// Remove deletes id and reports whether it existed.
func (a *Adapter[T]) Remove(id string) bool {
	if _, ok := a.entities[id]; !ok {
		return false
	}
	delete(a.entities, id)
	a.dropIDs(map[string]struct{}{id: {}})
	return true
}

// RemoveMany deletes every listed ID and returns how many existed.
func (a *Adapter[T]) RemoveMany(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := a.entities[id]; ok {
			delete(a.entities, id)
			drop[id] = struct{}{}
		}
	}
	if len(drop) > 0 {
		a.dropIDs(drop)
	}
	return len(drop)
}

// RemoveAll empties the adapter.
func (a *Adapter[T]) RemoveAll() {
	a.entities = make(map[string]T)
	a.ids = nil
}

// SelectAll returns copies of every value in sort order.
func (a *Adapter[T]) SelectAll() []T {
	out := make([]T, 0, len(a.ids))
	for _, id := range a.ids {
		out = append(out, a.cfg.Clone(a.entities[id]))
	}
	return out
}

// SelectByID returns a copy of the value stored under id.
func (a *Adapter[T]) SelectByID(id string) (T, bool) {
	v, ok := a.entities[id]
	if !ok {
		var zero T
		return zero, false
	}
	return a.cfg.Clone(v), true
}

// IDs returns the stored IDs in sort order.
func (a *Adapter[T]) IDs() []string {
	return append([]string(nil), a.ids...)
}

// Len returns the number of stored values.
func (a *Adapter[T]) Len() int { return len(a.ids) }

func (a *Adapter[T]) dropIDs(drop map[string]struct{}) {
	kept := a.ids[:0]
	for _, id := range a.ids {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	a.ids = kept
}

func (a *Adapter[T]) resort() {
	less := a.cfg.Less
	sort.SliceStable(a.ids, func(i, j int) bool {
		ei, ej := a.entities[a.ids[i]], a.entities[a.ids[j]]
		if less != nil {
			if less(ei, ej) {
				return true
			}
			if less(ej, ei) {
				return false
			}
		}
		return a.ids[i] < a.ids[j]
	})
}
