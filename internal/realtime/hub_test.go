package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-queueflex/internal/models"
	"backend-queueflex/internal/queue"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	fail   bool
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.msgs = append(f.msgs, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.msgs...)
}

func snapshotOf(entries map[string][]models.QueueEntry, calls *atomic.Int32) SnapshotFunc {
	return func(serviceID string) []models.QueueEntry {
		calls.Add(1)
		return entries[serviceID]
	}
}

func TestBroadcast_OnlyToServiceSubscribers(t *testing.T) {
	var calls atomic.Int32
	h := NewHub(snapshotOf(map[string][]models.QueueEntry{
		"s1": {{ID: "e1", ServiceID: "s1", Position: 1, Status: models.StatusWaiting}},
	}, &calls), time.Millisecond)

	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.register("s1", a)
	h.register("s1", b)
	h.register("s2", other)
	assert.Equal(t, 2, h.Subscribers("s1"))

	h.Broadcast("s1")

	require.Len(t, a.messages(), 1)
	require.Len(t, b.messages(), 1)
	assert.Empty(t, other.messages())

	var msg updateMessage
	require.NoError(t, json.Unmarshal(a.messages()[0], &msg))
	assert.Equal(t, "queue_update", msg.Type)
	assert.Equal(t, "s1", msg.ServiceID)
	assert.Equal(t, 1, msg.WaitingCount)
	require.Len(t, msg.Data, 1)
	assert.Equal(t, "e1", msg.Data[0].ID)
	assert.Equal(t, int32(1), calls.Load(), "one snapshot per broadcast")
}

func TestMessage_OmitsPersonalFields(t *testing.T) {
	var calls atomic.Int32
	h := NewHub(snapshotOf(map[string][]models.QueueEntry{
		"s1": {{
			ID:               "e1",
			OwnerID:          "alice",
			ServiceID:        "s1",
			DisplayName:      "Alice Doe",
			Purpose:          "passport renewal",
			ServiceTypeLabel: "Passport",
			Position:         1,
			Status:           models.StatusWaiting,
		}},
	}, &calls), time.Millisecond)

	raw, err := h.message("s1")
	require.NoError(t, err)

	body := string(raw)
	for _, leaked := range []string{"owner_id", "alice", "display_name", "Alice Doe", "purpose", "passport renewal"} {
		assert.NotContains(t, body, leaked)
	}
	assert.Contains(t, body, `"service_type_label":"Passport"`)
	assert.Contains(t, body, `"position":1`)
}

func TestBroadcast_NoSubscribersSkipsSnapshot(t *testing.T) {
	var calls atomic.Int32
	h := NewHub(snapshotOf(nil, &calls), time.Millisecond)
	h.Broadcast("s1")
	assert.Zero(t, calls.Load())
}

func TestBroadcast_DropsFailingClient(t *testing.T) {
	var calls atomic.Int32
	h := NewHub(snapshotOf(nil, &calls), time.Millisecond)

	good, bad := &fakeConn{}, &fakeConn{fail: true}
	h.register("s1", good)
	h.register("s1", bad)

	h.Broadcast("s1")

	assert.Len(t, good.messages(), 1)
	assert.True(t, bad.closed)
	assert.Equal(t, 1, h.Subscribers("s1"))
}

func TestListen_DebouncesBursts(t *testing.T) {
	var calls atomic.Int32
	h := NewHub(snapshotOf(nil, &calls), 30*time.Millisecond)
	c := &fakeConn{}
	h.register("s1", c)

	for i := 0; i < 10; i++ {
		h.Listen(queue.Event{Type: queue.EventJoined, ServiceID: "s1"})
	}

	require.Eventually(t, func() bool { return len(c.messages()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, c.messages(), 1)
}

func TestUnregister_Idempotent(t *testing.T) {
	var calls atomic.Int32
	h := NewHub(snapshotOf(nil, &calls), time.Millisecond)
	c := &fakeConn{}
	cl := h.register("s1", c)

	h.unregister(cl)
	h.unregister(cl)
	assert.Zero(t, h.Subscribers("s1"))
	assert.True(t, c.closed)

	// Writes after close are ignored.
	h.write(cl, []byte("late"))
	assert.Empty(t, c.messages())
}
