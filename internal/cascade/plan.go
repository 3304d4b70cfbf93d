package cascade

import (
	"carecore/internal/assets"
	"carecore/pkg/domain"
	"fmt"
)

// Source resolves dependents and asset paths from the local view of the data.
type Source interface {
	// ChildIDs returns ids of child rows whose foreignKey value is in parentIDs.
	ChildIDs(child domain.EntityType, foreignKey string, parentIDs []string) []string
	// AssetPaths returns the blob paths referenced by the given rows.
	AssetPaths(entity domain.EntityType, ids []string) []string
}

// Step is one entity type's share of a plan.
type Step struct {
	Entity domain.EntityType `json:"entity"`
	IDs    []string          `json:"ids"`
}

// Plan lists what a cascade deletes, in deletion order.
type Plan struct {
	Root   domain.EntityType `json:"root"`
	Steps  []Step            `json:"steps"`
	Assets []string          `json:"assets"`
}

// IDs returns the planned ids of entity.
func (p Plan) IDs(entity domain.EntityType) []string {
	for _, s := range p.Steps {
		if s.Entity == entity {
			return append([]string(nil), s.IDs...)
		}
	}
	return nil
}

// Empty reports whether the plan deletes nothing.
func (p Plan) Empty() bool { return len(p.Steps) == 0 }

// Total returns the number of planned document deletions.
func (p Plan) Total() int {
	n := 0
	for _, s := range p.Steps {
		n += len(s.IDs)
	}
	return n
}

// Planner expands root ids into a Plan.
type Planner struct {
	Registry *Registry
	Source   Source
}

// Plan computes the transitive dependents of ids of type root. Ids are
// de-duplicated; ids unknown to the Source are kept but have no dependents.
func (p Planner) Plan(root domain.EntityType, ids []string) (Plan, error) {
	plan := Plan{Root: root}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return plan, nil
	}
	order, err := p.Registry.Order()
	if err != nil {
		return plan, err
	}

	collected := map[domain.EntityType][]string{root: ids}
	seen := map[domain.EntityType]map[string]struct{}{root: toSet(ids)}
	type frontier struct {
		entity domain.EntityType
		ids    []string
	}
	queue := []frontier{{root, ids}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, rel := range p.Registry.ChildrenOf(cur.entity) {
			if rel.Child == root {
				return plan, fmt.Errorf("cascade: %s reaches root type %s", rel, root)
			}
			var fresh []string
			for _, id := range p.Source.ChildIDs(rel.Child, rel.ForeignKey, cur.ids) {
				if seen[rel.Child] == nil {
					seen[rel.Child] = make(map[string]struct{})
				}
				if _, dup := seen[rel.Child][id]; dup || id == "" {
					continue
				}
				seen[rel.Child][id] = struct{}{}
				fresh = append(fresh, id)
			}
			if len(fresh) == 0 {
				continue
			}
			collected[rel.Child] = append(collected[rel.Child], fresh...)
			queue = append(queue, frontier{rel.Child, fresh})
		}
	}

	placed := false
	for _, t := range order {
		if t == root {
			placed = true
		}
		if got := collected[t]; len(got) > 0 {
			plan.Steps = append(plan.Steps, Step{Entity: t, IDs: got})
		}
	}
	if !placed {
		plan.Steps = append(plan.Steps, Step{Entity: root, IDs: ids})
	}

	var paths []string
	for _, s := range plan.Steps {
		paths = append(paths, p.Source.AssetPaths(s.Entity, s.IDs)...)
	}
	plan.Assets = assets.NonEmpty(paths)
	return plan, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
