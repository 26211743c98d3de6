// Package realtime pushes per-service queue snapshots to websocket
// displays. Pushes are debounced and best effort: a slow or dead client is
// dropped, never waited for.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"backend-queueflex/internal/models"
	"backend-queueflex/internal/queue"
)

const (
	defaultDelay = 50 * time.Millisecond
	writeTimeout = 3 * time.Second
	pingEvery    = 20 * time.Second
	readTimeout  = 60 * time.Second
	maxWorkers   = 20
)

// SnapshotFunc returns the waiting entries of a service.
type SnapshotFunc func(serviceID string) []models.QueueEntry

// conn is the part of *websocket.Conn the hub writes to.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	id        string
	serviceID string
	conn      conn
	writeMu   sync.Mutex
	closed    bool
	closeCh   chan struct{}
}

// Hub fans queue updates out to subscribers of each service.
type Hub struct {
	snapshot SnapshotFunc
	delay    time.Duration
	counter  uint64

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func NewHub(snapshot SnapshotFunc, delay time.Duration) *Hub {
	if delay <= 0 {
		delay = defaultDelay
	}
	return &Hub{
		snapshot: snapshot,
		delay:    delay,
		clients:  make(map[string]map[*client]struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

/*
|--------------------------------------------------------------------------
| Engine events
|--------------------------------------------------------------------------
*/

// Listen is a queue.Listener. Bursts of events for one service collapse
// into a single broadcast.
func (h *Hub) Listen(ev queue.Event) {
	h.schedule(ev.ServiceID)
}

func (h *Hub) schedule(serviceID string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()

	if t, ok := h.timers[serviceID]; ok {
		t.Reset(h.delay)
		return
	}
	h.timers[serviceID] = time.AfterFunc(h.delay, func() {
		h.timersMu.Lock()
		delete(h.timers, serviceID)
		h.timersMu.Unlock()

		h.Broadcast(serviceID)
	})
}

/*
|--------------------------------------------------------------------------
| Websocket handler
|--------------------------------------------------------------------------
*/

// Upgrade rejects plain HTTP requests on websocket routes.
func Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler serves GET /ws/queue/:service_id. Mount it behind
// middleware.AuthenticateWebsocket.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *Hub) serve(c *websocket.Conn) {
	serviceID := c.Params("service_id")
	cl := h.register(serviceID, c)
	defer h.unregister(cl)

	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	// Initial snapshot for this client only.
	if msg, err := h.message(serviceID); err == nil {
		h.write(cl, msg)
	}

	go h.ping(cl)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				log.Warn().Err(err).Str("component", "realtime").Str("client", cl.id).Msg("unexpected close")
			}
			return
		}
	}
}

func (h *Hub) ping(cl *client) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cl.writeMu.Lock()
			if cl.closed {
				cl.writeMu.Unlock()
				return
			}
			_ = cl.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := cl.conn.WriteMessage(websocket.PingMessage, nil)
			cl.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-cl.closeCh:
			return
		}
	}
}

/*
|--------------------------------------------------------------------------
| Client management
|--------------------------------------------------------------------------
*/

func (h *Hub) register(serviceID string, c conn) *client {
	cl := &client{
		id:        fmt.Sprintf("client-%d", atomic.AddUint64(&h.counter, 1)),
		serviceID: serviceID,
		conn:      c,
		closeCh:   make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.clients[serviceID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[serviceID] = set
	}
	set[cl] = struct{}{}
	total := len(set)
	h.mu.Unlock()

	log.Debug().Str("component", "realtime").Str("client", cl.id).Str("service_id", serviceID).Int("total", total).Msg("client registered")
	return cl
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	if set, ok := h.clients[cl.serviceID]; ok {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.clients, cl.serviceID)
		}
	}
	h.mu.Unlock()

	cl.writeMu.Lock()
	if !cl.closed {
		cl.closed = true
		close(cl.closeCh)
	}
	cl.writeMu.Unlock()
	_ = cl.conn.Close()
}

// Subscribers returns the number of clients watching the service.
func (h *Hub) Subscribers(serviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[serviceID])
}

/*
|--------------------------------------------------------------------------
| Broadcast
|--------------------------------------------------------------------------
*/

// displayEntry is what a queue display may show about an entry. Owner and
// personal fields stay out of the feed.
type displayEntry struct {
	ID               string        `json:"id"`
	Position         int           `json:"position"`
	ServiceTypeLabel string        `json:"service_type_label"`
	Status           models.Status `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
}

type updateMessage struct {
	Type         string         `json:"type"`
	ServiceID    string         `json:"service_id"`
	Data         []displayEntry `json:"data"`
	WaitingCount int            `json:"waiting_count"`
	Timestamp    string         `json:"timestamp"`
}

func (h *Hub) message(serviceID string) ([]byte, error) {
	entries := h.snapshot(serviceID)
	data := make([]displayEntry, 0, len(entries))
	for _, e := range entries {
		data = append(data, displayEntry{
			ID:               e.ID,
			Position:         e.Position,
			ServiceTypeLabel: e.ServiceTypeLabel,
			Status:           e.Status,
			CreatedAt:        e.CreatedAt,
		})
	}
	return json.Marshal(updateMessage{
		Type:         "queue_update",
		ServiceID:    serviceID,
		Data:         data,
		WaitingCount: len(data),
		Timestamp:    time.Now().Format(time.RFC3339),
	})
}

// Broadcast sends the current snapshot to every subscriber of the service.
func (h *Hub) Broadcast(serviceID string) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[serviceID]))
	for cl := range h.clients[serviceID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	msg, err := h.message(serviceID)
	if err != nil {
		log.Error().Err(err).Str("component", "realtime").Str("service_id", serviceID).Msg("build message")
		return
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for _, cl := range clients {
		wg.Add(1)
		sem <- struct{}{}
		go func(cl *client) {
			defer wg.Done()
			defer func() { <-sem }()
			h.write(cl, msg)
		}(cl)
	}
	wg.Wait()
}

func (h *Hub) write(cl *client, msg []byte) {
	cl.writeMu.Lock()
	if cl.closed {
		cl.writeMu.Unlock()
		return
	}
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := cl.conn.WriteMessage(websocket.TextMessage, msg)
	cl.writeMu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("component", "realtime").Str("client", cl.id).Msg("write failed, dropping client")
		h.unregister(cl)
	}
}
