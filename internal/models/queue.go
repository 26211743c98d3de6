package models

import (
	"time"
)

// Status is the lifecycle state of a queue entry.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusServing Status = "serving"
	StatusDone    Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusServing, StatusDone:
		return true
	}
	return false
}

type QueueEntry struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	ServiceID        string    `json:"service_id"`
	DisplayName      string    `json:"display_name"`
	Purpose          string    `json:"purpose"`
	ServiceTypeLabel string    `json:"service_type_label"`
	Position         int       `json:"position"` // 0 when not waiting
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// JoinRequest - body of POST /queue/add
type JoinRequest struct {
	ServiceID        string `json:"service_id"`
	DisplayName      string `json:"display_name"`
	Purpose          string `json:"purpose"`
	ServiceTypeLabel string `json:"service_type_label"`
}

// QueueStatus - response of GET /queue/service/:service_id/status
type QueueStatus struct {
	ServiceID    string       `json:"service_id"`
	Serving      []QueueEntry `json:"serving"`
	Next         *QueueEntry  `json:"next"`
	WaitingCount int          `json:"waiting_count"`
}

// QueueTransaction is one audit row for a queue mutation.
type QueueTransaction struct {
	ID          int64     `json:"id"`
	EntryID     string    `json:"entry_id"`
	ServiceID   string    `json:"service_id"`
	Event       string    `json:"event"` // take, call, finish, update, remove, purge
	ActorUserID string    `json:"actor_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
