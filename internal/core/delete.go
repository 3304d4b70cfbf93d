package core

import (
	"carecore/internal/cascade"
	"carecore/internal/docstore"
	"carecore/internal/state"
	"carecore/pkg/domain"
	"context"
	"errors"
	"sort"
	"time"
)

func (s *Service) planner() cascade.Planner {
	return cascade.Planner{Registry: s.registry, Source: s.local}
}

func (s *Service) runner() *cascade.Runner {
	r := &cascade.Runner{
		Docs:        s.docs,
		Blobs:       s.blobs,
		Local:       s.local,
		Concurrency: s.concurrency,
		Logger:      s.logger,
	}
	if s.metrics != nil {
		r.Observer = s.metrics
	}
	return r
}

func (s *Service) plan(root domain.EntityType, ids []string) (cascade.Plan, error) {
	p, err := s.planner().Plan(root, ids)
	if err != nil {
		return cascade.Plan{}, &cascade.Error{Phase: cascade.PhasePlan, Entity: root, Err: err}
	}
	return p, nil
}

func (s *Service) runCascade(ctx context.Context, root domain.EntityType, ids []string) (cascade.Report, error) {
	p, err := s.plan(root, ids)
	if err != nil {
		return cascade.Report{}, err
	}
	return s.runner().Run(ctx, p)
}

// PlanRecipientDeletion returns what DeleteRecipients(ids) would delete.
func (s *Service) PlanRecipientDeletion(ids []string) (cascade.Plan, error) {
	return s.plan(domain.EntityRecipient, ids)
}

// PlanCollectionDeletion returns what DeleteCollections(ids) would delete.
func (s *Service) PlanCollectionDeletion(ids []string) (cascade.Plan, error) {
	return s.plan(domain.EntityCollection, ids)
}

// DeleteRecipients deletes the recipients together with their collections,
// sets, emergency contacts and every referenced asset.
func (s *Service) DeleteRecipients(ctx context.Context, ids []string) (_ cascade.Report, err error) {
	defer s.report("delete_recipients", time.Now(), &err)
	return s.runCascade(ctx, domain.EntityRecipient, ids)
}

// DeleteCollections deletes the collections with their sets and assets,
// then lowers the owning recipients' collection counts.
func (s *Service) DeleteCollections(ctx context.Context, ids []string) (_ cascade.Report, err error) {
	defer s.report("delete_collections", time.Now(), &err)
	owners := make(map[string]string, len(ids))
	for _, id := range ids {
		if c, ok := s.local.Collection(id); ok {
			owners[id] = c.RecipientID
		}
	}
	rep, err := s.runCascade(ctx, domain.EntityCollection, ids)
	if err != nil {
		return rep, err
	}
	removed := countOwners(rep.Deleted[domain.EntityCollection], owners)
	var errs []error
	for _, rid := range sortedKeys(removed) {
		r, ok := s.local.Recipient(rid)
		if !ok {
			continue
		}
		count := max(r.CollectionCount-removed[rid], 0)
		u := domain.RecipientUpdate{CollectionCount: &count}
		at := s.now()
		if err := s.patch(ctx, docstore.Recipients, rid, u.Fields(), at); err != nil {
			errs = append(errs, err)
			continue
		}
		s.local.Dispatch(state.UpdateRecipient{ID: rid, Update: u, At: at})
	}
	return rep, errors.Join(errs...)
}

// DeleteSets deletes the sets and their assets, then lowers the owning
// collections' set counts.
func (s *Service) DeleteSets(ctx context.Context, ids []string) (_ cascade.Report, err error) {
	defer s.report("delete_sets", time.Now(), &err)
	owners := make(map[string]string, len(ids))
	for _, id := range ids {
		if v, ok := s.local.Set(id); ok {
			owners[id] = v.CollectionID
		}
	}
	rep, err := s.runCascade(ctx, domain.EntitySet, ids)
	if err != nil {
		return rep, err
	}
	removed := countOwners(rep.Deleted[domain.EntitySet], owners)
	var errs []error
	for _, cid := range sortedKeys(removed) {
		c, ok := s.local.Collection(cid)
		if !ok {
			continue
		}
		count := max(c.SetCount-removed[cid], 0)
		u := domain.CollectionUpdate{SetCount: &count}
		at := s.now()
		if err := s.patch(ctx, docstore.Collections, cid, u.Fields(), at); err != nil {
			errs = append(errs, err)
			continue
		}
		s.local.Dispatch(state.UpdateCollection{ID: cid, Update: u, At: at})
	}
	return rep, errors.Join(errs...)
}

// DeleteContacts deletes emergency contacts.
func (s *Service) DeleteContacts(ctx context.Context, ids []string) (_ cascade.Report, err error) {
	defer s.report("delete_contacts", time.Now(), &err)
	return s.runCascade(ctx, domain.EntityContact, ids)
}

// countOwners tallies deleted ids per owner; ids without a known owner are skipped.
func countOwners(deleted []string, owners map[string]string) map[string]int {
	out := make(map[string]int)
	for _, id := range deleted {
		if owner, ok := owners[id]; ok && owner != "" {
			out[owner]++
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
