// Package cascade deletes an entity together with everything that depends
// on it. Dependencies are declared as foreign-key relationships in a
// Registry; a Planner expands root ids into a Plan ordered children first,
// and a Runner executes it against the remote stores and the local store.
package cascade

import (
	"carecore/pkg/domain"
	"fmt"
	"sort"
)

// Relationship declares that Child rows reference a Parent through ForeignKey.
type Relationship struct {
	Parent     domain.EntityType
	Child      domain.EntityType
	ForeignKey string
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s.%s -> %s", r.Child, r.ForeignKey, r.Parent)
}

// Registry holds the declared relationships.
type Registry struct {
	rels  []Relationship
	types []domain.EntityType
	index map[domain.EntityType]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[domain.EntityType]int)}
}

// DefaultRegistry declares the ownership graph of the care domain.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rel := range []Relationship{
		{Parent: domain.EntityRecipient, Child: domain.EntityCollection, ForeignKey: "recipient_id"},
		{Parent: domain.EntityCollection, Child: domain.EntitySet, ForeignKey: "collection_id"},
		{Parent: domain.EntityRecipient, Child: domain.EntitySet, ForeignKey: "recipient_id"},
		{Parent: domain.EntityRecipient, Child: domain.EntityContact, ForeignKey: "recipient_id"},
	} {
		if err := r.Register(rel); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds rel. Duplicate and self-referencing relationships are rejected.
func (r *Registry) Register(rel Relationship) error {
	if rel.Parent == "" || rel.Child == "" || rel.ForeignKey == "" {
		return fmt.Errorf("cascade: incomplete relationship %+v", rel)
	}
	if rel.Parent == rel.Child {
		return fmt.Errorf("cascade: self-referencing relationship %s", rel)
	}
	for _, existing := range r.rels {
		if existing == rel {
			return fmt.Errorf("cascade: duplicate relationship %s", rel)
		}
	}
	r.rels = append(r.rels, rel)
	r.track(rel.Child)
	r.track(rel.Parent)
	return nil
}

func (r *Registry) track(t domain.EntityType) {
	if _, ok := r.index[t]; ok {
		return
	}
	r.index[t] = len(r.types)
	r.types = append(r.types, t)
}

// Relationships returns every declared relationship in registration order.
func (r *Registry) Relationships() []Relationship {
	return append([]Relationship(nil), r.rels...)
}

// ChildrenOf returns the relationships whose parent is t.
func (r *Registry) ChildrenOf(t domain.EntityType) []Relationship {
	var out []Relationship
	for _, rel := range r.rels {
		if rel.Parent == t {
			out = append(out, rel)
		}
	}
	return out
}

// Order returns every known entity type with children before their parents.
// Ties are broken by first registration. A cycle is an error.
func (r *Registry) Order() ([]domain.EntityType, error) {
	pending := make(map[domain.EntityType]int, len(r.types))
	for _, t := range r.types {
		pending[t] = 0
	}
	for _, rel := range r.rels {
		pending[rel.Parent]++
	}
	var ready []domain.EntityType
	for _, t := range r.types {
		if pending[t] == 0 {
			ready = append(ready, t)
		}
	}
	out := make([]domain.EntityType, 0, len(r.types))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return r.index[ready[i]] < r.index[ready[j]] })
		t := ready[0]
		ready = ready[1:]
		out = append(out, t)
		for _, rel := range r.rels {
			if rel.Child != t {
				continue
			}
			pending[rel.Parent]--
			if pending[rel.Parent] == 0 {
				ready = append(ready, rel.Parent)
			}
		}
	}
	if len(out) != len(r.types) {
		return nil, fmt.Errorf("cascade: relationship cycle among %v", r.types)
	}
	return out, nil
}
