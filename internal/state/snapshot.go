package state

import "carecore/pkg/domain"

// Snapshot is a point-in-time copy of the store, ordered like the store.
type Snapshot struct {
	Recipients  []domain.Recipient        `json:"recipients"`
	Collections []domain.Collection       `json:"collections"`
	Sets        []domain.Set              `json:"sets"`
	Contacts    []domain.EmergencyContact `json:"emergency_contacts"`
}

// Export clones the current store state.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Recipients:  s.recipients.SelectAll(),
		Collections: s.collections.SelectAll(),
		Sets:        s.sets.SelectAll(),
		Contacts:    s.contacts.SelectAll(),
	}
}

// Import replaces the store state with snap in a single dispatch.
func (s *Store) Import(snap Snapshot) []domain.Change {
	return s.Dispatch(
		RemoveAllSets{},
		RemoveAllCollections{},
		RemoveAllContacts{},
		RemoveAllRecipients{},
		AddRecipients{Recipients: snap.Recipients},
		AddCollections{Collections: snap.Collections},
		AddSets{Sets: snap.Sets},
		AddContacts{Contacts: snap.Contacts},
	)
}

