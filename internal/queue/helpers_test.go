package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"backend-queueflex/internal/catalog"
	"backend-queueflex/internal/models"
)

var (
	alice    = models.Caller{SubjectID: "alice"}
	bob      = models.Caller{SubjectID: "bob"}
	operator = models.Caller{SubjectID: "op", Operator: true}
)

// stepClock advances one millisecond per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func service(id string, capacity int) models.ServiceDescriptor {
	return models.ServiceDescriptor{
		ServiceID:   id,
		Name:        "Service " + id,
		Category:    "General",
		MaxCapacity: capacity,
		IsActive:    true,
	}
}

func newTestEngine(t *testing.T, services ...models.ServiceDescriptor) (*Engine, *stepClock) {
	t.Helper()
	clock := newStepClock()
	return New(catalog.NewStatic(services...), WithClock(clock.Now)), clock
}

func join(t *testing.T, e *Engine, caller models.Caller, serviceID, name string) models.QueueEntry {
	t.Helper()
	entry, err := e.Join(context.Background(), caller, models.JoinRequest{
		ServiceID:   serviceID,
		DisplayName: name,
	})
	require.NoError(t, err)
	return entry
}

func setStatus(t *testing.T, e *Engine, id string, status models.Status) models.QueueEntry {
	t.Helper()
	entry, err := e.Update(context.Background(), id, operator, map[string]any{"status": string(status)})
	require.NoError(t, err)
	return entry
}

// requireContiguous checks positions 1..N over waiting entries in
// created_at order and 0 elsewhere.
func requireContiguous(t *testing.T, e *Engine, serviceID string) {
	t.Helper()
	all, err := e.ListForService(context.Background(), serviceID, operator)
	require.NoError(t, err)

	want := 1
	var prev *models.QueueEntry
	for i := range all {
		entry := all[i]
		if entry.Status != models.StatusWaiting {
			require.Zero(t, entry.Position, "entry %s (%s)", entry.ID, entry.Status)
			continue
		}
		require.Equal(t, want, entry.Position, "entry %s", entry.ID)
		if prev != nil {
			require.True(t, rankBefore(*prev, entry), "waiting order must follow created_at")
		}
		prev = &all[i]
		want++
	}
	require.Equal(t, want-1, e.WaitingCount(serviceID))
}
