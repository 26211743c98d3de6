// Package janitor periodically drops finished queue entries so that done
// entries do not accumulate forever in the in-memory store.
package janitor

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Purger is implemented by *queue.Engine.
type Purger interface {
	PurgeFinished(cutoff time.Time) int
}

type Janitor struct {
	purger    Purger
	retention time.Duration
	now       func() time.Time
	cron      *cron.Cron
}

// New schedules a sweep on spec (standard cron or "@every 10m") that purges
// done entries older than retention.
func New(purger Purger, spec string, retention time.Duration) (*Janitor, error) {
	j := &Janitor{
		purger:    purger,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		cron:      cron.New(),
	}
	if _, err := j.cron.AddFunc(spec, func() { j.Sweep() }); err != nil {
		return nil, fmt.Errorf("janitor: schedule %q: %w", spec, err)
	}
	return j, nil
}

// Sweep runs one purge and returns how many entries were removed.
func (j *Janitor) Sweep() int {
	cutoff := j.now().Add(-j.retention)
	n := j.purger.PurgeFinished(cutoff)
	if n > 0 {
		log.Info().
			Str("component", "janitor").
			Int("purged", n).
			Time("cutoff", cutoff).
			Msg("purged finished entries")
	}
	return n
}

func (j *Janitor) Start() { j.cron.Start() }

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
