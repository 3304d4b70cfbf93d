// Package state holds the normalized, sorted, in-memory entity store for
// recipients, collections, sets and emergency contacts.
//
// A Store is an ordinary value: construct it with New and pass it to the
// layers that need it. All mutations flow through Dispatch, which applies a
// batch of actions atomically and then notifies subscribers.
package state

import (
	"carecore/internal/entity"
	"carecore/pkg/domain"
	"sort"
	"strings"
	"sync"
)

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	recipients  *entity.Adapter[domain.Recipient]
	collections *entity.Adapter[domain.Collection]
	sets        *entity.Adapter[domain.Set]
	contacts    *entity.Adapter[domain.EmergencyContact]

	subMu   sync.Mutex
	subs    map[int]func([]domain.Change)
	nextSub int

	// pending holds change batches in apply order until they are delivered.
	deliverMu  sync.Mutex
	pending    [][]domain.Change
	delivering bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		recipients: entity.NewAdapter(entity.Config[domain.Recipient]{
			ID:    func(r domain.Recipient) string { return r.ID },
			Less:  func(a, b domain.Recipient) bool { return personKey(a.LastName, a.FirstName) < personKey(b.LastName, b.FirstName) },
			Clone: domain.CloneRecipient,
		}),
		collections: entity.NewAdapter(entity.Config[domain.Collection]{
			ID:    func(c domain.Collection) string { return c.ID },
			Less:  func(a, b domain.Collection) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) },
			Clone: domain.CloneCollection,
		}),
		sets: entity.NewAdapter(entity.Config[domain.Set]{
			ID:    func(s domain.Set) string { return s.ID },
			Less:  setLess,
			Clone: domain.CloneSet,
		}),
		contacts: entity.NewAdapter(entity.Config[domain.EmergencyContact]{
			ID:    func(c domain.EmergencyContact) string { return c.ID },
			Less:  func(a, b domain.EmergencyContact) bool { return personKey(a.LastName, a.FirstName) < personKey(b.LastName, b.FirstName) },
			Clone: domain.CloneContact,
		}),
		subs: make(map[int]func([]domain.Change)),
	}
}

func personKey(last, first string) string {
	return strings.ToLower(strings.TrimSpace(last) + " " + strings.TrimSpace(first))
}

func setLess(a, b domain.Set) bool {
	ai, bi := strings.ToLower(a.Image.Title), strings.ToLower(b.Image.Title)
	if ai != bi {
		return ai < bi
	}
	return strings.ToLower(a.Audio.Title) < strings.ToLower(b.Audio.Title)
}

// Dispatch applies actions in order under a single lock and returns the
// resulting changes. Subscribers are notified after the lock is released,
// only when something changed, and always in the order batches were applied.
// When another goroutine is already delivering, that goroutine delivers this
// batch too, so Dispatch may return before subscribers have seen it.
func (s *Store) Dispatch(actions ...Action) []domain.Change {
	var changes []domain.Change
	s.mu.Lock()
	for _, a := range actions {
		if a == nil {
			continue
		}
		changes = append(changes, a.apply(s)...)
	}
	if len(changes) > 0 {
		s.deliverMu.Lock()
		s.pending = append(s.pending, changes)
		s.deliverMu.Unlock()
	}
	s.mu.Unlock()
	s.deliver()
	return changes
}

// deliver drains pending batches. Only one goroutine drains at a time, which
// keeps delivery ordered and lets subscribers dispatch without deadlocking.
func (s *Store) deliver() {
	s.deliverMu.Lock()
	if s.delivering {
		s.deliverMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		batch := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.deliverMu.Unlock()
		s.notify(batch)
		s.deliverMu.Lock()
	}
	s.pending = nil
	s.delivering = false
	s.deliverMu.Unlock()
}

// Subscribe registers fn to receive every non-empty batch of changes. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func([]domain.Change)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(changes []domain.Change) {
	s.subMu.Lock()
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func([]domain.Change), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, s.subs[k])
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(append([]domain.Change(nil), changes...))
	}
}

// Recipient CRUD --------------------------------------------------------------

// AddRecipient upserts r.
func (s *Store) AddRecipient(r domain.Recipient) { s.Dispatch(AddRecipients{Recipients: []domain.Recipient{r}}) }

// UpdateRecipient merges u into the recipient; missing IDs are ignored.
func (s *Store) UpdateRecipient(id string, u domain.RecipientUpdate) bool {
	return len(s.Dispatch(UpdateRecipient{ID: id, Update: u})) > 0
}

// RemoveRecipient deletes id. It does not cascade.
func (s *Store) RemoveRecipient(id string) bool { return len(s.Dispatch(RemoveRecipients{IDs: []string{id}})) > 0 }

// RemoveRecipients deletes every listed id and returns how many existed.
func (s *Store) RemoveRecipients(ids ...string) int { return len(s.Dispatch(RemoveRecipients{IDs: ids})) }

// RemoveAllRecipients empties the recipient map.
func (s *Store) RemoveAllRecipients() { s.Dispatch(RemoveAllRecipients{}) }

// Recipients returns every recipient in name order.
func (s *Store) Recipients() []domain.Recipient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recipients.SelectAll()
}

// Recipient returns the recipient stored under id.
func (s *Store) Recipient(id string) (domain.Recipient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recipients.SelectByID(id)
}

// Collection CRUD -------------------------------------------------------------

// AddCollection upserts c.
func (s *Store) AddCollection(c domain.Collection) {
	s.Dispatch(AddCollections{Collections: []domain.Collection{c}})
}

// UpdateCollection merges u into the collection; missing IDs are ignored.
func (s *Store) UpdateCollection(id string, u domain.CollectionUpdate) bool {
	return len(s.Dispatch(UpdateCollection{ID: id, Update: u})) > 0
}

// RemoveCollection deletes id. It does not cascade.
func (s *Store) RemoveCollection(id string) bool {
	return len(s.Dispatch(RemoveCollections{IDs: []string{id}})) > 0
}

// RemoveCollections deletes every listed id and returns how many existed.
func (s *Store) RemoveCollections(ids ...string) int { return len(s.Dispatch(RemoveCollections{IDs: ids})) }

// RemoveAllCollections empties the collection map.
func (s *Store) RemoveAllCollections() { s.Dispatch(RemoveAllCollections{}) }

// Collections returns every collection in title order.
func (s *Store) Collections() []domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections.SelectAll()
}

// Collection returns the collection stored under id.
func (s *Store) Collection(id string) (domain.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections.SelectByID(id)
}

// Set CRUD --------------------------------------------------------------------

// AddSet upserts v.
func (s *Store) AddSet(v domain.Set) { s.Dispatch(AddSets{Sets: []domain.Set{v}}) }

// UpdateSet merges u into the set; missing IDs are ignored.
func (s *Store) UpdateSet(id string, u domain.SetUpdate) bool {
	return len(s.Dispatch(UpdateSet{ID: id, Update: u})) > 0
}

// RemoveSet deletes id.
func (s *Store) RemoveSet(id string) bool { return len(s.Dispatch(RemoveSets{IDs: []string{id}})) > 0 }

// RemoveSets deletes every listed id and returns how many existed.
func (s *Store) RemoveSets(ids ...string) int { return len(s.Dispatch(RemoveSets{IDs: ids})) }

// RemoveAllSets empties the set map.
func (s *Store) RemoveAllSets() { s.Dispatch(RemoveAllSets{}) }

// Sets returns every set in title order.
func (s *Store) Sets() []domain.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets.SelectAll()
}

// Set returns the set stored under id.
func (s *Store) Set(id string) (domain.Set, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets.SelectByID(id)
}

// Contact CRUD ----------------------------------------------------------------

// AddContact upserts c.
func (s *Store) AddContact(c domain.EmergencyContact) {
	s.Dispatch(AddContacts{Contacts: []domain.EmergencyContact{c}})
}

// UpdateContact merges u into the contact; missing IDs are ignored.
func (s *Store) UpdateContact(id string, u domain.ContactUpdate) bool {
	return len(s.Dispatch(UpdateContact{ID: id, Update: u})) > 0
}

// RemoveContact deletes id.
func (s *Store) RemoveContact(id string) bool {
	return len(s.Dispatch(RemoveContacts{IDs: []string{id}})) > 0
}

// RemoveContacts deletes every listed id and returns how many existed.
func (s *Store) RemoveContacts(ids ...string) int { return len(s.Dispatch(RemoveContacts{IDs: ids})) }

// RemoveAllContacts empties the contact map.
func (s *Store) RemoveAllContacts() { s.Dispatch(RemoveAllContacts{}) }

// Contacts returns every emergency contact in name order.
func (s *Store) Contacts() []domain.EmergencyContact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contacts.SelectAll()
}

// Contact returns the emergency contact stored under id.
func (s *Store) Contact(id string) (domain.EmergencyContact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contacts.SelectByID(id)
}
