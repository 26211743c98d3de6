package queue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"backend-queueflex/internal/models"
)

// shard holds the entries of a single service.
type shard struct {
	mu          sync.RWMutex
	entries     map[string]*models.QueueEntry
	lastCreated time.Time
	seq         uint64
}

// Store is the authoritative in-memory table of queue entries. Entries are
// partitioned into per-service shards; the id and owner indices are shared
// and guarded by their own lock, which is never held while a shard lock is
// being acquired.
type Store struct {
	mu      sync.RWMutex
	shards  map[string]*shard
	byID    map[string]string              // entry id -> service id
	byOwner map[string]map[string]struct{} // owner id -> entry ids
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		shards:  make(map[string]*shard),
		byID:    make(map[string]string),
		byOwner: make(map[string]map[string]struct{}),
	}
}

func (s *Store) shard(serviceID string, create bool) *shard {
	s.mu.RLock()
	sh, ok := s.shards[serviceID]
	s.mu.RUnlock()
	if ok || !create {
		return sh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok = s.shards[serviceID]; !ok {
		sh = &shard{entries: make(map[string]*models.QueueEntry)}
		s.shards[serviceID] = sh
	}
	return sh
}

// Update runs fn with exclusive access to the service's entries.
func (s *Store) Update(serviceID string, fn func(tx *Tx) error) error {
	sh := s.shard(serviceID, true)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return fn(&Tx{store: s, shard: sh, serviceID: serviceID, writable: true})
}

// UpdateExisting is Update for services that already hold entries or have
// held them. It reports false without calling fn for any other service, so
// lookups by arbitrary ids never allocate shards.
func (s *Store) UpdateExisting(serviceID string, fn func(tx *Tx) error) (bool, error) {
	sh := s.shard(serviceID, false)
	if sh == nil {
		return false, nil
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return true, fn(&Tx{store: s, shard: sh, serviceID: serviceID, writable: true})
}

// View runs fn with shared access to the service's entries.
func (s *Store) View(serviceID string, fn func(tx *Tx) error) error {
	sh := s.shard(serviceID, false)
	if sh == nil {
		return fn(&Tx{store: s, serviceID: serviceID})
	}
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return fn(&Tx{store: s, shard: sh, serviceID: serviceID})
}

// ServiceOf returns the service an entry belongs to.
func (s *Store) ServiceOf(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	serviceID, ok := s.byID[id]
	return serviceID, ok
}

// Get returns a copy of the entry. A missing id is not an error.
func (s *Store) Get(id string) (models.QueueEntry, bool) {
	serviceID, ok := s.ServiceOf(id)
	if !ok {
		return models.QueueEntry{}, false
	}
	var (
		entry models.QueueEntry
		found bool
	)
	_ = s.View(serviceID, func(tx *Tx) error {
		entry, found = tx.Get(id)
		return nil
	})
	return entry, found
}

// ByOwner returns the owner's entries across all services.
func (s *Store) ByOwner(ownerID string) []models.QueueEntry {
	s.mu.RLock()
	grouped := make(map[string][]string)
	for id := range s.byOwner[ownerID] {
		serviceID := s.byID[id]
		grouped[serviceID] = append(grouped[serviceID], id)
	}
	s.mu.RUnlock()

	out := make([]models.QueueEntry, 0)
	for serviceID, ids := range grouped {
		_ = s.View(serviceID, func(tx *Tx) error {
			for _, id := range ids {
				if e, ok := tx.Get(id); ok {
					out = append(out, e)
				}
			}
			return nil
		})
	}
	sortEntries(out)
	return out
}

// ByService returns the service's entries, optionally only the waiting ones.
func (s *Store) ByService(serviceID string, waitingOnly bool) []models.QueueEntry {
	var out []models.QueueEntry
	_ = s.View(serviceID, func(tx *Tx) error {
		out = tx.Entries(waitingOnly)
		return nil
	})
	return out
}

// Services lists every service that has ever held an entry.
func (s *Store) Services() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.shards))
	for serviceID := range s.shards {
		out = append(out, serviceID)
	}
	sort.Strings(out)
	return out
}

// All returns every entry, grouped by service.
func (s *Store) All() []models.QueueEntry {
	out := make([]models.QueueEntry, 0)
	for _, serviceID := range s.Services() {
		out = append(out, s.ByService(serviceID, false)...)
	}
	return out
}

// Tx is a handle on one service's entries, valid only inside Store.Update or
// Store.View.
type Tx struct {
	store     *Store
	shard     *shard
	serviceID string
	writable  bool
}

// ServiceID returns the service the handle is scoped to.
func (tx *Tx) ServiceID() string { return tx.serviceID }

// Get returns a copy of the entry if it belongs to this service.
func (tx *Tx) Get(id string) (models.QueueEntry, bool) {
	if tx.shard == nil {
		return models.QueueEntry{}, false
	}
	e, ok := tx.shard.entries[id]
	if !ok {
		return models.QueueEntry{}, false
	}
	return *e, true
}

// Entries returns copies of the service's entries: waiting ones ordered by
// position first, then the rest by creation time.
func (tx *Tx) Entries(waitingOnly bool) []models.QueueEntry {
	out := make([]models.QueueEntry, 0)
	if tx.shard == nil {
		return out
	}
	for _, e := range tx.shard.entries {
		if waitingOnly && e.Status != models.StatusWaiting {
			continue
		}
		out = append(out, *e)
	}
	sortEntries(out)
	return out
}

// WaitingCount counts the waiting entries of the service.
func (tx *Tx) WaitingCount() int {
	if tx.shard == nil {
		return 0
	}
	n := 0
	for _, e := range tx.shard.entries {
		if e.Status == models.StatusWaiting {
			n++
		}
	}
	return n
}

// Create inserts a new entry. CreatedAt is clamped so that it never goes
// backwards within the service.
func (tx *Tx) Create(entry models.QueueEntry) (models.QueueEntry, error) {
	tx.mustWrite()
	if entry.ServiceID != tx.serviceID {
		return models.QueueEntry{}, fmt.Errorf("%w: entry for service %q in %q", ErrInvalidInput, entry.ServiceID, tx.serviceID)
	}

	s := tx.store
	s.mu.Lock()
	if _, exists := s.byID[entry.ID]; exists {
		s.mu.Unlock()
		return models.QueueEntry{}, fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID)
	}
	s.byID[entry.ID] = tx.serviceID
	owned, ok := s.byOwner[entry.OwnerID]
	if !ok {
		owned = make(map[string]struct{})
		s.byOwner[entry.OwnerID] = owned
	}
	owned[entry.ID] = struct{}{}
	s.mu.Unlock()

	if entry.CreatedAt.Before(tx.shard.lastCreated) {
		entry.CreatedAt = tx.shard.lastCreated
	}
	tx.shard.lastCreated = entry.CreatedAt
	if entry.UpdatedAt.Before(entry.CreatedAt) {
		entry.UpdatedAt = entry.CreatedAt
	}

	cp := entry
	tx.shard.entries[entry.ID] = &cp
	return entry, nil
}

// Update merges a sparse field map into the entry. Only display_name,
// purpose, service_type_label and status are writable. Status values are not
// checked against the state machine here; callers do that first.
func (tx *Tx) Update(id string, fields map[string]any, now time.Time) (models.QueueEntry, error) {
	tx.mustWrite()
	p, err := ParsePatch(fields)
	if err != nil {
		return models.QueueEntry{}, err
	}
	e, ok := tx.shard.entries[id]
	if !ok {
		return models.QueueEntry{}, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	p.apply(e)
	e.UpdatedAt = now
	return *e, nil
}

// Delete removes the entry and returns its last state.
func (tx *Tx) Delete(id string) (models.QueueEntry, error) {
	tx.mustWrite()
	e, ok := tx.shard.entries[id]
	if !ok {
		return models.QueueEntry{}, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	delete(tx.shard.entries, id)

	s := tx.store
	s.mu.Lock()
	delete(s.byID, id)
	if owned, ok := s.byOwner[e.OwnerID]; ok {
		delete(owned, id)
		if len(owned) == 0 {
			delete(s.byOwner, e.OwnerID)
		}
	}
	s.mu.Unlock()

	return *e, nil
}

// nextSeq numbers committed mutations of the service.
func (tx *Tx) nextSeq() uint64 {
	tx.mustWrite()
	tx.shard.seq++
	return tx.shard.seq
}

func (tx *Tx) mustWrite() {
	if !tx.writable {
		panic("queue: write on read-only tx")
	}
}

func sortEntries(entries []models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ServiceID != b.ServiceID {
			return a.ServiceID < b.ServiceID
		}
		aw, bw := a.Status == models.StatusWaiting, b.Status == models.StatusWaiting
		if aw != bw {
			return aw
		}
		if aw && a.Position != b.Position {
			return a.Position < b.Position
		}
		return rankBefore(a, b)
	})
}
