package queue

import (
	"github.com/rs/zerolog/log"

	"backend-queueflex/internal/models"
)

// EventType names a committed mutation.
type EventType string

const (
	EventJoined  EventType = "joined"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
	EventPurged  EventType = "purged"
)

// Event describes a mutation after it has been committed and recomputed.
// Seq increases by one per committed mutation of the service and lets
// listeners order events that were delivered out of order.
type Event struct {
	Type      EventType
	ServiceID string
	Seq       uint64
	Entry     models.QueueEntry
	From      models.Status
	ActorID   string
	Waiting   int
}

// Action is the audit-log verb for the event.
func (e Event) Action() string {
	switch e.Type {
	case EventJoined:
		return "take"
	case EventRemoved:
		return "remove"
	case EventPurged:
		return "purge"
	}
	return auditEvent(e.From, e.Entry.Status)
}

// Listener receives events. Delivery is best effort and happens outside the
// service lock; a listener must not call back into mutating Engine methods
// synchronously.
type Listener func(Event)

func (e *Engine) emit(ev Event) {
	e.lmu.RLock()
	listeners := append([]Listener(nil), e.listeners...)
	e.lmu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("component", "queue").
						Str("event", string(ev.Type)).
						Interface("panic", r).
						Msg("listener panicked")
				}
			}()
			l(ev)
		}()
	}
}
