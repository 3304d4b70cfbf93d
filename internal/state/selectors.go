package state

import "carecore/pkg/domain"

// Derived views. Each is a pure filter over the sorted select-all result and
// is recomputed on every call.

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// RecipientsByCaregiverID returns the recipients managed by caregiverID.
func (s *Store) RecipientsByCaregiverID(caregiverID string) []domain.Recipient {
	var out []domain.Recipient
	for _, r := range s.Recipients() {
		if r.CaregiverID == caregiverID {
			out = append(out, r)
		}
	}
	return out
}

// CollectionsByRecipientID returns the collections owned by recipientID.
func (s *Store) CollectionsByRecipientID(recipientID string) []domain.Collection {
	return s.CollectionsByRecipientIDs([]string{recipientID})
}

// CollectionsByRecipientIDs returns the collections owned by any of ids.
func (s *Store) CollectionsByRecipientIDs(ids []string) []domain.Collection {
	want := idSet(ids)
	var out []domain.Collection
	for _, c := range s.Collections() {
		if _, ok := want[c.RecipientID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// CollectionIDsByRecipientIDs returns the IDs of collections owned by any of ids.
func (s *Store) CollectionIDsByRecipientIDs(ids []string) []string {
	var out []string
	for _, c := range s.CollectionsByRecipientIDs(ids) {
		out = append(out, c.ID)
	}
	return out
}

// SetsByCollectionID returns the sets belonging to collectionID.
func (s *Store) SetsByCollectionID(collectionID string) []domain.Set {
	return s.SetsByCollectionIDs([]string{collectionID})
}

// SetsByCollectionIDs returns the sets belonging to any of ids.
func (s *Store) SetsByCollectionIDs(ids []string) []domain.Set {
	want := idSet(ids)
	var out []domain.Set
	for _, v := range s.Sets() {
		if _, ok := want[v.CollectionID]; ok {
			out = append(out, v)
		}
	}
	return out
}

// SetIDsByCollectionIDs returns the IDs of sets belonging to any of ids.
func (s *Store) SetIDsByCollectionIDs(ids []string) []string {
	var out []string
	for _, v := range s.SetsByCollectionIDs(ids) {
		out = append(out, v.ID)
	}
	return out
}

// SetsByRecipientIDs returns the sets owned by any of the recipient ids.
func (s *Store) SetsByRecipientIDs(ids []string) []domain.Set {
	want := idSet(ids)
	var out []domain.Set
	for _, v := range s.Sets() {
		if _, ok := want[v.RecipientID]; ok {
			out = append(out, v)
		}
	}
	return out
}

// SetIDsByRecipientIDs returns the IDs of sets owned by any of the recipient ids.
func (s *Store) SetIDsByRecipientIDs(ids []string) []string {
	var out []string
	for _, v := range s.SetsByRecipientIDs(ids) {
		out = append(out, v.ID)
	}
	return out
}

// ContactsByRecipientID returns the emergency contacts of recipientID.
func (s *Store) ContactsByRecipientID(recipientID string) []domain.EmergencyContact {
	return s.ContactsByRecipientIDs([]string{recipientID})
}

// ContactsByRecipientIDs returns the emergency contacts of any of ids.
func (s *Store) ContactsByRecipientIDs(ids []string) []domain.EmergencyContact {
	want := idSet(ids)
	var out []domain.EmergencyContact
	for _, c := range s.Contacts() {
		if _, ok := want[c.RecipientID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ContactIDsByRecipientIDs returns the IDs of emergency contacts of any of ids.
func (s *Store) ContactIDsByRecipientIDs(ids []string) []string {
	var out []string
	for _, c := range s.ContactsByRecipientIDs(ids) {
		out = append(out, c.ID)
	}
	return out
}
