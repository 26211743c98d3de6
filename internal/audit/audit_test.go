package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-queueflex/internal/models"
	"backend-queueflex/internal/queue"
)

type memRecorder struct {
	mu    sync.Mutex
	rows  []models.QueueTransaction
	block chan struct{}
	err   error
}

func (m *memRecorder) Record(_ context.Context, tx models.QueueTransaction) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, tx)
	return m.err
}

func (m *memRecorder) snapshot() []models.QueueTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.QueueTransaction(nil), m.rows...)
}

func event(typ queue.EventType, from, to models.Status) queue.Event {
	return queue.Event{
		Type:      typ,
		ServiceID: "s1",
		Entry:     models.QueueEntry{ID: "e1", ServiceID: "s1", Status: to},
		From:      from,
		ActorID:   "op",
	}
}

func TestTrail_RecordsEvents(t *testing.T) {
	rec := &memRecorder{}
	trail := NewTrail(rec, 8, time.Second)

	trail.Listen(event(queue.EventJoined, models.StatusWaiting, models.StatusWaiting))
	trail.Listen(event(queue.EventUpdated, models.StatusWaiting, models.StatusServing))
	trail.Listen(event(queue.EventUpdated, models.StatusServing, models.StatusDone))
	trail.Listen(event(queue.EventRemoved, models.StatusDone, models.StatusDone))
	trail.Close()

	rows := rec.snapshot()
	require.Len(t, rows, 4)
	var verbs []string
	for _, r := range rows {
		verbs = append(verbs, r.Event)
		assert.Equal(t, "e1", r.EntryID)
		assert.Equal(t, "s1", r.ServiceID)
		assert.Equal(t, "op", r.ActorUserID)
		assert.False(t, r.CreatedAt.IsZero())
	}
	assert.Equal(t, []string{"take", "call", "finish", "remove"}, verbs)
}

func TestTrail_DropsWhenFull(t *testing.T) {
	rec := &memRecorder{block: make(chan struct{})}
	trail := NewTrail(rec, 1, time.Second)

	// One row is held by the blocked writer, one fills the buffer, the rest
	// are dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			trail.Listen(event(queue.EventJoined, models.StatusWaiting, models.StatusWaiting))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen blocked on a full buffer")
	}

	close(rec.block)
	trail.Close()
	assert.LessOrEqual(t, len(rec.snapshot()), 2)
}

func TestTrail_RecorderErrorsAreSwallowed(t *testing.T) {
	rec := &memRecorder{err: errors.New("db down")}
	trail := NewTrail(rec, 4, time.Second)
	trail.Listen(event(queue.EventJoined, models.StatusWaiting, models.StatusWaiting))
	trail.Close()
	trail.Close()
	assert.Len(t, rec.snapshot(), 1)
}

func TestMySQL_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO queue_transactions`).
		WithArgs("e1", "s1", "call", "op", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO queue_transactions`).
		WithArgs("e2", "s1", "purge", nil, at).
		WillReturnError(errors.New("deadlock"))

	m := NewMySQL(db)
	require.NoError(t, m.Record(context.Background(), models.QueueTransaction{
		EntryID: "e1", ServiceID: "s1", Event: "call", ActorUserID: "op", CreatedAt: at,
	}))
	err = m.Record(context.Background(), models.QueueTransaction{
		EntryID: "e2", ServiceID: "s1", Event: "purge", CreatedAt: at,
	})
	assert.ErrorContains(t, err, "deadlock")
	require.NoError(t, mock.ExpectationsWereMet())
}
