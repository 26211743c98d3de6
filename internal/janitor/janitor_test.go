package janitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int
}

func (f *fakePurger) PurgeFinished(cutoff time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.n
}

func (f *fakePurger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSweep_UsesRetentionCutoff(t *testing.T) {
	p := &fakePurger{n: 3}
	j, err := New(p, "@every 1h", 24*time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	assert.Equal(t, 3, j.Sweep())
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoffs[0])
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	_, err := New(&fakePurger{}, "every now and then", time.Hour)
	assert.Error(t, err)
}

func TestStartRunsOnSchedule(t *testing.T) {
	p := &fakePurger{}
	j, err := New(p, "@every 1s", time.Hour)
	require.NoError(t, err)

	j.Start()
	defer j.Stop()
	require.Eventually(t, func() bool { return p.calls() > 0 }, 3*time.Second, 50*time.Millisecond)
}
