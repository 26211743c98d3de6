package queue

import (
	"fmt"

	"backend-queueflex/internal/models"
)

// transitions lists the legal status changes. Removal is a delete, not a
// status, so it does not appear here.
var transitions = map[models.Status][]models.Status{
	models.StatusWaiting: {models.StatusServing, models.StatusDone},
	models.StatusServing: {models.StatusDone},
	models.StatusDone:    nil,
}

// Transition validates a status change from -> to.
func Transition(from, to models.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// affectsWaitingSet reports whether moving from -> to enters or leaves waiting.
func affectsWaitingSet(from, to models.Status) bool {
	return (from == models.StatusWaiting) != (to == models.StatusWaiting)
}

// auditEvent names a status change the way the transaction log records it.
func auditEvent(from, to models.Status) string {
	switch {
	case from == to:
		return "update"
	case to == models.StatusServing:
		return "call"
	case to == models.StatusDone:
		return "finish"
	}
	return "update"
}
