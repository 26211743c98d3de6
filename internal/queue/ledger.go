package queue

import (
	"sort"

	"backend-queueflex/internal/models"
)

// rankBefore orders entries by creation time, then id.
func rankBefore(a, b models.QueueEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Recompute assigns positions 1..N to the waiting entries held by tx and
// clears the position of every other entry. It returns how many positions
// changed, so a second call with no mutation in between returns 0.
func Recompute(tx *Tx) int {
	tx.mustWrite()

	waiting := make([]*models.QueueEntry, 0, len(tx.shard.entries))
	changed := 0
	for _, e := range tx.shard.entries {
		if e.Status == models.StatusWaiting {
			waiting = append(waiting, e)
			continue
		}
		if e.Position != 0 {
			e.Position = 0
			changed++
		}
	}

	sort.Slice(waiting, func(i, j int) bool {
		return rankBefore(*waiting[i], *waiting[j])
	})

	for i, e := range waiting {
		if e.Position != i+1 {
			e.Position = i + 1
			changed++
		}
	}
	return changed
}
