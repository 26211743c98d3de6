package queue

import (
	"errors"
	"fmt"
)

var (
	// Caller errors.
	ErrUnauthenticated = errors.New("queue: unauthenticated")
	ErrForbidden       = errors.New("queue: forbidden")

	// Not found errors.
	ErrNotFound        = errors.New("queue: not found")
	ErrServiceNotFound = fmt.Errorf("%w: service", ErrNotFound)

	// Input errors.
	ErrInvalidInput   = errors.New("queue: invalid input")
	ErrImmutableField = fmt.Errorf("%w: immutable field", ErrInvalidInput)

	// State errors.
	ErrInvalidTransition = errors.New("queue: invalid status transition")
	ErrDuplicateID       = errors.New("queue: duplicate entry id")

	// Admission errors.
	ErrQueueFull       = errors.New("queue: queue is full")
	ErrServiceInactive = errors.New("queue: service is inactive")

	// ErrServiceLookupFailed means the catalog could not answer in time. It is
	// retryable, unlike ErrServiceNotFound.
	ErrServiceLookupFailed = errors.New("queue: service lookup failed")
)
