package core

import (
	"carecore/internal/docstore"
	"carecore/internal/state"
	"carecore/pkg/domain"
	"context"
	"fmt"
	"strings"
	"time"
)

func (s *Service) stamp(b *domain.Base) time.Time {
	now := s.now()
	if strings.TrimSpace(b.ID) == "" {
		b.ID = s.newID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	return now
}

// patch sends fields plus updated_at to the document store.
func (s *Service) patch(ctx context.Context, coll docstore.Collection, id string, fields map[string]any, at time.Time) error {
	fields["updated_at"] = at
	if err := s.docs.Update(ctx, coll, id, fields); err != nil {
		return fmt.Errorf("update %s/%s: %w", coll, id, err)
	}
	return nil
}

// CreateRecipient stores a new recipient. An empty ID is generated.
func (s *Service) CreateRecipient(ctx context.Context, r domain.Recipient) (_ domain.Recipient, err error) {
	defer s.report("create_recipient", time.Now(), &err)
	if strings.TrimSpace(r.CaregiverID) == "" {
		return domain.Recipient{}, domain.ValidationError{Entity: domain.EntityRecipient, Field: "caregiver_id", Reason: "required"}
	}
	s.stamp(&r.Base)
	if err := s.docs.Set(ctx, docstore.Recipients, r.ID, r); err != nil {
		return domain.Recipient{}, fmt.Errorf("create recipient %s: %w", r.ID, err)
	}
	s.local.Dispatch(state.AddRecipients{Recipients: []domain.Recipient{r}})
	return domain.CloneRecipient(r), nil
}

// UpdateRecipient applies u to recipient id.
func (s *Service) UpdateRecipient(ctx context.Context, id string, u domain.RecipientUpdate) (_ domain.Recipient, err error) {
	defer s.report("update_recipient", time.Now(), &err)
	cur, ok := s.local.Recipient(id)
	if !ok {
		return domain.Recipient{}, domain.NotFoundError{Entity: domain.EntityRecipient, ID: id}
	}
	if u.IsEmpty() {
		return cur, nil
	}
	at := s.now()
	if err := s.patch(ctx, docstore.Recipients, id, u.Fields(), at); err != nil {
		return domain.Recipient{}, err
	}
	s.local.Dispatch(state.UpdateRecipient{ID: id, Update: u, At: at})
	updated, _ := s.local.Recipient(id)
	return updated, nil
}

// CreateCollection stores a new collection under an existing recipient and
// increments the recipient's collection count.
func (s *Service) CreateCollection(ctx context.Context, c domain.Collection) (_ domain.Collection, err error) {
	defer s.report("create_collection", time.Now(), &err)
	owner, ok := s.local.Recipient(c.RecipientID)
	if !ok {
		return domain.Collection{}, domain.NotFoundError{Entity: domain.EntityRecipient, ID: c.RecipientID}
	}
	if c.CaregiverID == "" {
		c.CaregiverID = owner.CaregiverID
	}
	at := s.stamp(&c.Base)
	if err := s.docs.Set(ctx, docstore.Collections, c.ID, c); err != nil {
		return domain.Collection{}, fmt.Errorf("create collection %s: %w", c.ID, err)
	}
	actions := []state.Action{state.AddCollections{Collections: []domain.Collection{c}}}
	defer func() { s.local.Dispatch(actions...) }()

	count := owner.CollectionCount + 1
	u := domain.RecipientUpdate{CollectionCount: &count}
	if err := s.patch(ctx, docstore.Recipients, owner.ID, u.Fields(), at); err != nil {
		return c, fmt.Errorf("collection %s created, count not updated: %w", c.ID, err)
	}
	actions = append(actions, state.UpdateRecipient{ID: owner.ID, Update: u, At: at})
	return c, nil
}

// UpdateCollection applies u to collection id.
func (s *Service) UpdateCollection(ctx context.Context, id string, u domain.CollectionUpdate) (_ domain.Collection, err error) {
	defer s.report("update_collection", time.Now(), &err)
	cur, ok := s.local.Collection(id)
	if !ok {
		return domain.Collection{}, domain.NotFoundError{Entity: domain.EntityCollection, ID: id}
	}
	if u.IsEmpty() {
		return cur, nil
	}
	at := s.now()
	if err := s.patch(ctx, docstore.Collections, id, u.Fields(), at); err != nil {
		return domain.Collection{}, err
	}
	s.local.Dispatch(state.UpdateCollection{ID: id, Update: u, At: at})
	updated, _ := s.local.Collection(id)
	return updated, nil
}

// CreateSet stores a new set under an existing collection and increments
// the collection's set count. Ownership fields are taken from the collection.
func (s *Service) CreateSet(ctx context.Context, v domain.Set) (_ domain.Set, err error) {
	defer s.report("create_set", time.Now(), &err)
	owner, ok := s.local.Collection(v.CollectionID)
	if !ok {
		return domain.Set{}, domain.NotFoundError{Entity: domain.EntityCollection, ID: v.CollectionID}
	}
	if v.RecipientID != "" && v.RecipientID != owner.RecipientID {
		return domain.Set{}, domain.ValidationError{
			Entity: domain.EntitySet, Field: "recipient_id",
			Reason: fmt.Sprintf("collection %s belongs to recipient %s", owner.ID, owner.RecipientID),
		}
	}
	v.RecipientID = owner.RecipientID
	v.CaregiverID = owner.CaregiverID
	at := s.stamp(&v.Base)
	if err := s.docs.Set(ctx, docstore.Sets, v.ID, v); err != nil {
		return domain.Set{}, fmt.Errorf("create set %s: %w", v.ID, err)
	}
	actions := []state.Action{state.AddSets{Sets: []domain.Set{v}}}
	defer func() { s.local.Dispatch(actions...) }()

	count := owner.SetCount + 1
	u := domain.CollectionUpdate{SetCount: &count}
	if err := s.patch(ctx, docstore.Collections, owner.ID, u.Fields(), at); err != nil {
		return v, fmt.Errorf("set %s created, count not updated: %w", v.ID, err)
	}
	actions = append(actions, state.UpdateCollection{ID: owner.ID, Update: u, At: at})
	return v, nil
}

// UpdateSet applies u to set id.
func (s *Service) UpdateSet(ctx context.Context, id string, u domain.SetUpdate) (_ domain.Set, err error) {
	defer s.report("update_set", time.Now(), &err)
	cur, ok := s.local.Set(id)
	if !ok {
		return domain.Set{}, domain.NotFoundError{Entity: domain.EntitySet, ID: id}
	}
	if u.IsEmpty() {
		return cur, nil
	}
	at := s.now()
	if err := s.patch(ctx, docstore.Sets, id, u.Fields(), at); err != nil {
		return domain.Set{}, err
	}
	s.local.Dispatch(state.UpdateSet{ID: id, Update: u, At: at})
	updated, _ := s.local.Set(id)
	return updated, nil
}

// CreateContact stores a new emergency contact for an existing recipient.
func (s *Service) CreateContact(ctx context.Context, c domain.EmergencyContact) (_ domain.EmergencyContact, err error) {
	defer s.report("create_contact", time.Now(), &err)
	if err := c.Validate(); err != nil {
		return domain.EmergencyContact{}, err
	}
	if _, ok := s.local.Recipient(c.RecipientID); !ok {
		return domain.EmergencyContact{}, domain.NotFoundError{Entity: domain.EntityRecipient, ID: c.RecipientID}
	}
	s.stamp(&c.Base)
	if err := s.docs.Set(ctx, docstore.EmergencyContacts, c.ID, c); err != nil {
		return domain.EmergencyContact{}, fmt.Errorf("create contact %s: %w", c.ID, err)
	}
	s.local.Dispatch(state.AddContacts{Contacts: []domain.EmergencyContact{c}})
	return domain.CloneContact(c), nil
}

// UpdateContact applies u to contact id. The result must keep a phone number.
func (s *Service) UpdateContact(ctx context.Context, id string, u domain.ContactUpdate) (_ domain.EmergencyContact, err error) {
	defer s.report("update_contact", time.Now(), &err)
	cur, ok := s.local.Contact(id)
	if !ok {
		return domain.EmergencyContact{}, domain.NotFoundError{Entity: domain.EntityContact, ID: id}
	}
	if u.IsEmpty() {
		return cur, nil
	}
	next := domain.CloneContact(cur)
	u.Apply(&next)
	if err := next.Validate(); err != nil {
		return domain.EmergencyContact{}, err
	}
	at := s.now()
	if err := s.patch(ctx, docstore.EmergencyContacts, id, u.Fields(), at); err != nil {
		return domain.EmergencyContact{}, err
	}
	s.local.Dispatch(state.UpdateContact{ID: id, Update: u, At: at})
	updated, _ := s.local.Contact(id)
	return updated, nil
}
