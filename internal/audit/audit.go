// Package audit writes one queue_transactions row per committed queue
// mutation. Rows are written off the request path; when the buffer is full
// rows are dropped and logged.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"backend-queueflex/internal/models"
	"backend-queueflex/internal/queue"
)

// Recorder persists transaction rows.
type Recorder interface {
	Record(ctx context.Context, tx models.QueueTransaction) error
}

// MySQL inserts into queue_transactions.
type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

func (m *MySQL) Record(ctx context.Context, tx models.QueueTransaction) error {
	var actor sql.NullString
	if tx.ActorUserID != "" {
		actor = sql.NullString{String: tx.ActorUserID, Valid: true}
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO queue_transactions
		(entry_id, service_id, event, actor_user_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, tx.EntryID, tx.ServiceID, tx.Event, actor, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit/mysql: insert transaction: %w", err)
	}
	return nil
}

// Trail buffers events from the engine and hands them to a Recorder.
type Trail struct {
	rec     Recorder
	timeout time.Duration
	now     func() time.Time

	ch        chan models.QueueTransaction
	done      chan struct{}
	closeOnce sync.Once
}

func NewTrail(rec Recorder, buffer int, timeout time.Duration) *Trail {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	t := &Trail{
		rec:     rec,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		ch:      make(chan models.QueueTransaction, buffer),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

// Listen is a queue.Listener.
func (t *Trail) Listen(ev queue.Event) {
	row := models.QueueTransaction{
		EntryID:     ev.Entry.ID,
		ServiceID:   ev.ServiceID,
		Event:       ev.Action(),
		ActorUserID: ev.ActorID,
		CreatedAt:   t.now(),
	}
	select {
	case t.ch <- row:
	default:
		log.Warn().
			Str("component", "audit").
			Str("entry_id", row.EntryID).
			Str("event", row.Event).
			Msg("audit buffer full, dropping row")
	}
}

func (t *Trail) run() {
	defer close(t.done)
	for row := range t.ch {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		if err := t.rec.Record(ctx, row); err != nil {
			log.Error().
				Err(err).
				Str("component", "audit").
				Str("entry_id", row.EntryID).
				Str("event", row.Event).
				Msg("failed to record transaction")
		}
		cancel()
	}
}

// Close flushes buffered rows and stops the writer. Listen must not be
// called after Close.
func (t *Trail) Close() {
	t.closeOnce.Do(func() {
		close(t.ch)
	})
	<-t.done
}
