package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"backend-queueflex/internal/catalog"
	"backend-queueflex/internal/models"
)

// DefaultLookupTimeout bounds a catalog lookup during Join.
const DefaultLookupTimeout = 3 * time.Second

// ServiceLookup is the slice of the catalog the engine needs.
type ServiceLookup interface {
	GetService(ctx context.Context, serviceID string) (models.ServiceDescriptor, error)
}

// Engine is the public operation surface over the entry store.
type Engine struct {
	store         *Store
	catalog       ServiceLookup
	lookupTimeout time.Duration
	now           func() time.Time
	newID         func() string

	lmu       sync.RWMutex
	listeners []Listener
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lookupTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithStore uses an existing store instead of a fresh one.
func WithStore(s *Store) Option {
	return func(e *Engine) { e.store = s }
}

// New returns an Engine that resolves services through lookup.
func New(lookup ServiceLookup, opts ...Option) *Engine {
	e := &Engine{
		store:         NewStore(),
		catalog:       lookup,
		lookupTimeout: DefaultLookupTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         newEntryID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Subscribe registers a listener for committed mutations.
func (e *Engine) Subscribe(l Listener) {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Join enrolls the caller into the service's queue.
func (e *Engine) Join(ctx context.Context, caller models.Caller, req models.JoinRequest) (models.QueueEntry, error) {
	if caller.SubjectID == "" {
		return models.QueueEntry{}, ErrUnauthenticated
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.ServiceID == "" {
		return models.QueueEntry{}, fmt.Errorf("%w: service_id is required", ErrInvalidInput)
	}
	if req.DisplayName == "" {
		return models.QueueEntry{}, fmt.Errorf("%w: display_name is required", ErrInvalidInput)
	}

	// Resolved once, outside the service lock, and reused for the admission
	// decision.
	desc, err := e.lookup(ctx, req.ServiceID)
	if err != nil {
		return models.QueueEntry{}, err
	}

	label := req.ServiceTypeLabel
	if label == "" {
		label = serviceLabel(desc)
	}

	now := e.now()
	entry := models.QueueEntry{
		ID:               e.newID(),
		OwnerID:          caller.SubjectID,
		ServiceID:        req.ServiceID,
		DisplayName:      req.DisplayName,
		Purpose:          req.Purpose,
		ServiceTypeLabel: label,
		Status:           models.StatusWaiting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var ev Event
	err = e.store.Update(req.ServiceID, func(tx *Tx) error {
		waiting := tx.WaitingCount()
		if !Admit(desc, waiting) {
			return admissionError(desc, waiting)
		}
		if _, err := tx.Create(entry); err != nil {
			return err
		}
		Recompute(tx)
		entry, _ = tx.Get(entry.ID)
		ev = Event{
			Type:      EventJoined,
			ServiceID: req.ServiceID,
			Seq:       tx.nextSeq(),
			Entry:     entry,
			From:      models.StatusWaiting,
			ActorID:   caller.SubjectID,
			Waiting:   waiting + 1,
		}
		return nil
	})
	if err != nil {
		return models.QueueEntry{}, err
	}

	log.Info().
		Str("component", "queue").
		Str("entry_id", entry.ID).
		Str("service_id", entry.ServiceID).
		Str("owner_id", entry.OwnerID).
		Int("position", entry.Position).
		Msg("entry joined")

	e.emit(ev)
	return entry, nil
}

func (e *Engine) lookup(ctx context.Context, serviceID string) (models.ServiceDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	desc, err := e.catalog.GetService(ctx, serviceID)
	switch {
	case err == nil:
		return desc, nil
	case errors.Is(err, catalog.ErrServiceNotFound):
		return models.ServiceDescriptor{}, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	default:
		log.Warn().
			Err(err).
			Str("component", "queue").
			Str("service_id", serviceID).
			Msg("service lookup failed")
		return models.ServiceDescriptor{}, fmt.Errorf("%w: %s: %v", ErrServiceLookupFailed, serviceID, err)
	}
}

func serviceLabel(desc models.ServiceDescriptor) string {
	switch {
	case desc.Name != "":
		return desc.Name
	case desc.Category != "":
		return desc.Category
	}
	return "General"
}

// authorize allows operators and the entry's owner.
func authorize(caller models.Caller, entry models.QueueEntry) error {
	if caller.SubjectID == "" {
		return ErrUnauthenticated
	}
	if caller.Operator || caller.SubjectID == entry.OwnerID {
		return nil
	}
	return fmt.Errorf("%w: entry %s", ErrForbidden, entry.ID)
}

// Read returns one entry to its owner or an operator.
func (e *Engine) Read(_ context.Context, entryID string, caller models.Caller) (models.QueueEntry, error) {
	entry, ok := e.store.Get(entryID)
	if !ok {
		return models.QueueEntry{}, fmt.Errorf("%w: entry %s", ErrNotFound, entryID)
	}
	if err := authorize(caller, entry); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

// List returns every entry to operators and the caller's own entries to
// everyone else.
func (e *Engine) List(_ context.Context, caller models.Caller) ([]models.QueueEntry, error) {
	if caller.SubjectID == "" {
		return nil, ErrUnauthenticated
	}
	if caller.Operator {
		return e.store.All(), nil
	}
	return e.store.ByOwner(caller.SubjectID), nil
}

// ListForService returns the service's queue. Non-operators only see
// waiting entries.
func (e *Engine) ListForService(_ context.Context, serviceID string, caller models.Caller) ([]models.QueueEntry, error) {
	if caller.SubjectID == "" {
		return nil, ErrUnauthenticated
	}
	return e.store.ByService(serviceID, !caller.Operator), nil
}

// Waiting returns the service's waiting entries in position order.
func (e *Engine) Waiting(serviceID string) []models.QueueEntry {
	return e.store.ByService(serviceID, true)
}

// WaitingCount returns the number of waiting entries of the service.
func (e *Engine) WaitingCount(serviceID string) int {
	n := 0
	_ = e.store.View(serviceID, func(tx *Tx) error {
		n = tx.WaitingCount()
		return nil
	})
	return n
}

// Update applies a sparse field update. Owners may edit metadata only;
// status changes need an operator and a legal transition.
func (e *Engine) Update(_ context.Context, entryID string, caller models.Caller, fields map[string]any) (models.QueueEntry, error) {
	patch, err := ParsePatch(fields)
	if err != nil {
		return models.QueueEntry{}, err
	}

	current, ok := e.store.Get(entryID)
	if !ok {
		return models.QueueEntry{}, fmt.Errorf("%w: entry %s", ErrNotFound, entryID)
	}
	if err := authorize(caller, current); err != nil {
		return models.QueueEntry{}, err
	}
	if patch.Status != nil && !caller.Operator {
		return models.QueueEntry{}, fmt.Errorf("%w: only operators may change status", ErrForbidden)
	}

	var (
		updated models.QueueEntry
		ev      Event
	)
	err = e.store.Update(current.ServiceID, func(tx *Tx) error {
		before, ok := tx.Get(entryID)
		if !ok {
			return fmt.Errorf("%w: entry %s", ErrNotFound, entryID)
		}
		if patch.Status != nil && *patch.Status != before.Status {
			if err := Transition(before.Status, *patch.Status); err != nil {
				return err
			}
		}

		after, err := tx.Update(entryID, fields, e.now())
		if err != nil {
			return err
		}
		if affectsWaitingSet(before.Status, after.Status) {
			Recompute(tx)
			after, _ = tx.Get(entryID)
		}
		updated = after
		ev = Event{
			Type:      EventUpdated,
			ServiceID: after.ServiceID,
			Seq:       tx.nextSeq(),
			Entry:     after,
			From:      before.Status,
			ActorID:   caller.SubjectID,
			Waiting:   tx.WaitingCount(),
		}
		return nil
	})
	if err != nil {
		return models.QueueEntry{}, err
	}

	if ev.From != updated.Status {
		log.Info().
			Str("component", "queue").
			Str("entry_id", updated.ID).
			Str("service_id", updated.ServiceID).
			Str("from", string(ev.From)).
			Str("to", string(updated.Status)).
			Msg("entry status changed")
	}

	e.emit(ev)
	return updated, nil
}

// Remove deletes the entry and renumbers its former service.
func (e *Engine) Remove(_ context.Context, entryID string, caller models.Caller) error {
	current, ok := e.store.Get(entryID)
	if !ok {
		return fmt.Errorf("%w: entry %s", ErrNotFound, entryID)
	}
	if err := authorize(caller, current); err != nil {
		return err
	}

	var ev Event
	err := e.store.Update(current.ServiceID, func(tx *Tx) error {
		removed, err := tx.Delete(entryID)
		if err != nil {
			return err
		}
		Recompute(tx)
		ev = Event{
			Type:      EventRemoved,
			ServiceID: removed.ServiceID,
			Seq:       tx.nextSeq(),
			Entry:     removed,
			From:      removed.Status,
			ActorID:   caller.SubjectID,
			Waiting:   tx.WaitingCount(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("component", "queue").
		Str("entry_id", entryID).
		Str("service_id", current.ServiceID).
		Msg("entry removed")

	e.emit(ev)
	return nil
}

// CallNext moves the head of the service's waiting line to serving and
// returns it. Concurrent callers always get distinct entries.
func (e *Engine) CallNext(_ context.Context, serviceID string, caller models.Caller) (models.QueueEntry, error) {
	if caller.SubjectID == "" {
		return models.QueueEntry{}, ErrUnauthenticated
	}
	if !caller.Operator {
		return models.QueueEntry{}, fmt.Errorf("%w: only operators may call the next entry", ErrForbidden)
	}

	var (
		called models.QueueEntry
		ev     Event
	)
	found, err := e.store.UpdateExisting(serviceID, func(tx *Tx) error {
		waiting := tx.Entries(true)
		if len(waiting) == 0 {
			return fmt.Errorf("%w: nobody waiting for service %s", ErrNotFound, serviceID)
		}
		head := waiting[0]
		if err := Transition(head.Status, models.StatusServing); err != nil {
			return err
		}
		after, err := tx.Update(head.ID, map[string]any{"status": string(models.StatusServing)}, e.now())
		if err != nil {
			return err
		}
		Recompute(tx)
		called, _ = tx.Get(after.ID)
		ev = Event{
			Type:      EventUpdated,
			ServiceID: serviceID,
			Seq:       tx.nextSeq(),
			Entry:     called,
			From:      head.Status,
			ActorID:   caller.SubjectID,
			Waiting:   tx.WaitingCount(),
		}
		return nil
	})
	if err != nil {
		return models.QueueEntry{}, err
	}
	if !found {
		return models.QueueEntry{}, fmt.Errorf("%w: nobody waiting for service %s", ErrNotFound, serviceID)
	}

	log.Info().
		Str("component", "queue").
		Str("entry_id", called.ID).
		Str("service_id", serviceID).
		Str("actor_id", caller.SubjectID).
		Msg("entry called")

	e.emit(ev)
	return called, nil
}

// Status summarizes the service: entries being served, the head of the
// waiting line and its length, read under one lock.
func (e *Engine) Status(_ context.Context, serviceID string, caller models.Caller) (models.QueueStatus, error) {
	if caller.SubjectID == "" {
		return models.QueueStatus{}, ErrUnauthenticated
	}
	out := models.QueueStatus{ServiceID: serviceID, Serving: make([]models.QueueEntry, 0)}
	_ = e.store.View(serviceID, func(tx *Tx) error {
		for _, entry := range tx.Entries(false) {
			switch entry.Status {
			case models.StatusWaiting:
				if out.Next == nil {
					next := entry
					out.Next = &next
				}
				out.WaitingCount++
			case models.StatusServing:
				out.Serving = append(out.Serving, entry)
			}
		}
		return nil
	})
	return out, nil
}

// Recompute renumbers the service under its lock and returns the waiting
// entries. A service that never held an entry yields an empty list.
func (e *Engine) Recompute(serviceID string) []models.QueueEntry {
	out := make([]models.QueueEntry, 0)
	_, _ = e.store.UpdateExisting(serviceID, func(tx *Tx) error {
		Recompute(tx)
		out = tx.Entries(true)
		return nil
	})
	return out
}

// PurgeFinished deletes done entries last updated before cutoff and
// returns how many were removed.
func (e *Engine) PurgeFinished(cutoff time.Time) int {
	total := 0
	for _, serviceID := range e.store.Services() {
		var events []Event
		_ = e.store.Update(serviceID, func(tx *Tx) error {
			for _, entry := range tx.Entries(false) {
				if entry.Status != models.StatusDone || !entry.UpdatedAt.Before(cutoff) {
					continue
				}
				removed, err := tx.Delete(entry.ID)
				if err != nil {
					continue
				}
				events = append(events, Event{
					Type:      EventPurged,
					ServiceID: serviceID,
					Seq:       tx.nextSeq(),
					Entry:     removed,
					From:      removed.Status,
				})
			}
			if len(events) > 0 {
				Recompute(tx)
				waiting := tx.WaitingCount()
				for i := range events {
					events[i].Waiting = waiting
				}
			}
			return nil
		})
		for _, ev := range events {
			e.emit(ev)
		}
		total += len(events)
	}
	return total
}
