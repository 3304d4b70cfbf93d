package state

import (
	"carecore/internal/entity"
	"carecore/pkg/domain"
	"time"
)

// Action is a reducer input accepted by Store.Dispatch. Implementations are
// the typed Add/Update/Remove actions declared in this file.
type Action interface {
	apply(s *Store) []domain.Change
}

// AddRecipients upserts recipients.
type AddRecipients struct{ Recipients []domain.Recipient }

// UpdateRecipient merges Update into one recipient. A non-zero At stamps UpdatedAt.
type UpdateRecipient struct {
	ID     string
	Update domain.RecipientUpdate
	At     time.Time
}

// RemoveRecipients deletes recipients by ID.
type RemoveRecipients struct{ IDs []string }

// RemoveAllRecipients empties the recipient map.
type RemoveAllRecipients struct{}

// AddCollections upserts collections.
type AddCollections struct{ Collections []domain.Collection }

// UpdateCollection merges Update into one collection.
type UpdateCollection struct {
	ID     string
	Update domain.CollectionUpdate
	At     time.Time
}

// RemoveCollections deletes collections by ID.
type RemoveCollections struct{ IDs []string }

// RemoveAllCollections empties the collection map.
type RemoveAllCollections struct{}

// AddSets upserts sets.
type AddSets struct{ Sets []domain.Set }

// UpdateSet merges Update into one set.
type UpdateSet struct {
	ID     string
	Update domain.SetUpdate
	At     time.Time
}

// RemoveSets deletes sets by ID.
type RemoveSets struct{ IDs []string }

// RemoveAllSets empties the set map.
type RemoveAllSets struct{}

// AddContacts upserts emergency contacts.
type AddContacts struct{ Contacts []domain.EmergencyContact }

// UpdateContact merges Update into one emergency contact.
type UpdateContact struct {
	ID     string
	Update domain.ContactUpdate
	At     time.Time
}

// RemoveContacts deletes emergency contacts by ID.
type RemoveContacts struct{ IDs []string }

// RemoveAllContacts empties the contact map.
type RemoveAllContacts struct{}

// RemoveEntities deletes ids of an arbitrary entity type. Unknown types are ignored.
type RemoveEntities struct {
	Entity domain.EntityType
	IDs    []string
}

func (a AddRecipients) apply(s *Store) []domain.Change {
	return addAll(s.recipients, domain.EntityRecipient, a.Recipients)
}

func (a UpdateRecipient) apply(s *Store) []domain.Change {
	return updateOne(s.recipients, domain.EntityRecipient, a.ID, a.Update.IsEmpty(), func(r *domain.Recipient) {
		a.Update.Apply(r)
		if !a.At.IsZero() {
			r.UpdatedAt = a.At
		}
	})
}

func (a RemoveRecipients) apply(s *Store) []domain.Change {
	return removeAll(s.recipients, domain.EntityRecipient, a.IDs)
}

func (RemoveAllRecipients) apply(s *Store) []domain.Change {
	return removeAll(s.recipients, domain.EntityRecipient, s.recipients.IDs())
}

func (a AddCollections) apply(s *Store) []domain.Change {
	return addAll(s.collections, domain.EntityCollection, a.Collections)
}

func (a UpdateCollection) apply(s *Store) []domain.Change {
	return updateOne(s.collections, domain.EntityCollection, a.ID, a.Update.IsEmpty(), func(c *domain.Collection) {
		a.Update.Apply(c)
		if !a.At.IsZero() {
			c.UpdatedAt = a.At
		}
	})
}

func (a RemoveCollections) apply(s *Store) []domain.Change {
	return removeAll(s.collections, domain.EntityCollection, a.IDs)
}

func (RemoveAllCollections) apply(s *Store) []domain.Change {
	return removeAll(s.collections, domain.EntityCollection, s.collections.IDs())
}

func (a AddSets) apply(s *Store) []domain.Change {
	return addAll(s.sets, domain.EntitySet, a.Sets)
}

func (a UpdateSet) apply(s *Store) []domain.Change {
	return updateOne(s.sets, domain.EntitySet, a.ID, a.Update.IsEmpty(), func(v *domain.Set) {
		a.Update.Apply(v)
		if !a.At.IsZero() {
			v.UpdatedAt = a.At
		}
	})
}

func (a RemoveSets) apply(s *Store) []domain.Change {
	return removeAll(s.sets, domain.EntitySet, a.IDs)
}

func (RemoveAllSets) apply(s *Store) []domain.Change {
	return removeAll(s.sets, domain.EntitySet, s.sets.IDs())
}

func (a AddContacts) apply(s *Store) []domain.Change {
	return addAll(s.contacts, domain.EntityContact, a.Contacts)
}

func (a UpdateContact) apply(s *Store) []domain.Change {
	return updateOne(s.contacts, domain.EntityContact, a.ID, a.Update.IsEmpty(), func(c *domain.EmergencyContact) {
		a.Update.Apply(c)
		if !a.At.IsZero() {
			c.UpdatedAt = a.At
		}
	})
}

func (a RemoveContacts) apply(s *Store) []domain.Change {
	return removeAll(s.contacts, domain.EntityContact, a.IDs)
}

func (RemoveAllContacts) apply(s *Store) []domain.Change {
	return removeAll(s.contacts, domain.EntityContact, s.contacts.IDs())
}

func (a RemoveEntities) apply(s *Store) []domain.Change {
	switch a.Entity {
	case domain.EntityRecipient:
		return removeAll(s.recipients, a.Entity, a.IDs)
	case domain.EntityCollection:
		return removeAll(s.collections, a.Entity, a.IDs)
	case domain.EntitySet:
		return removeAll(s.sets, a.Entity, a.IDs)
	case domain.EntityContact:
		return removeAll(s.contacts, a.Entity, a.IDs)
	default:
		return nil
	}
}

type identified interface {
	domain.Recipient | domain.Collection | domain.Set | domain.EmergencyContact
}

func idOf[T identified](v T) string {
	switch e := any(v).(type) {
	case domain.Recipient:
		return e.ID
	case domain.Collection:
		return e.ID
	case domain.Set:
		return e.ID
	case domain.EmergencyContact:
		return e.ID
	}
	return ""
}

func addAll[T identified](a *entity.Adapter[T], kind domain.EntityType, values []T) []domain.Change {
	if len(values) == 0 {
		return nil
	}
	type prior struct {
		value   T
		existed bool
	}
	order := make([]string, 0, len(values))
	befores := make(map[string]prior, len(values))
	for _, v := range values {
		id := idOf(v)
		if _, seen := befores[id]; seen {
			continue
		}
		before, existed := a.SelectByID(id)
		befores[id] = prior{value: before, existed: existed}
		order = append(order, id)
	}
	a.AddMany(values...)
	changes := make([]domain.Change, 0, len(order))
	for _, id := range order {
		after, _ := a.SelectByID(id)
		if p := befores[id]; p.existed {
			changes = append(changes, domain.Change{Entity: kind, Action: domain.ActionUpdate, ID: id, Before: p.value, After: after})
			continue
		}
		changes = append(changes, domain.Change{Entity: kind, Action: domain.ActionCreate, ID: id, After: after})
	}
	return changes
}

func updateOne[T identified](a *entity.Adapter[T], kind domain.EntityType, id string, empty bool, fn func(*T)) []domain.Change {
	if empty {
		return nil
	}
	before, ok := a.SelectByID(id)
	if !ok {
		return nil
	}
	if !a.Update(id, fn) {
		return nil
	}
	after, _ := a.SelectByID(id)
	return []domain.Change{{Entity: kind, Action: domain.ActionUpdate, ID: id, Before: before, After: after}}
}

func removeAll[T identified](a *entity.Adapter[T], kind domain.EntityType, ids []string) []domain.Change {
	var changes []domain.Change
	drop := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		before, ok := a.SelectByID(id)
		if !ok {
			continue
		}
		drop = append(drop, id)
		changes = append(changes, domain.Change{Entity: kind, Action: domain.ActionDelete, ID: id, Before: before})
	}
	a.RemoveMany(drop...)
	return changes
}
