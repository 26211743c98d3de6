package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-queueflex/internal/models"
)

// fakeRedis is an in-memory stand-in for the redis commands Cached uses.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	down bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// countingCatalog counts GetService calls and can block them.
type countingCatalog struct {
	*Static
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingCatalog) GetService(ctx context.Context, id string) (models.ServiceDescriptor, error) {
	c.calls.Add(1)
	if c.release != nil {
		<-c.release
	}
	return c.Static.GetService(ctx, id)
}

func TestCached_HitAndMiss(t *testing.T) {
	ctx := context.Background()
	inner := &countingCatalog{Static: NewStatic(models.ServiceDescriptor{ServiceID: "s1", Name: "One", MaxCapacity: 4, IsActive: true})}
	rdb := newFakeRedis()
	c := NewCached(inner, rdb, time.Minute)

	first, err := c.GetService(ctx, "s1")
	require.NoError(t, err)
	second, err := c.GetService(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, time.Minute, rdb.ttl["catalog:service:s1"])

	require.NoError(t, c.Invalidate(ctx, "s1"))
	_, err = c.GetService(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCached_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingCatalog{Static: NewStatic()}
	rdb := newFakeRedis()
	c := NewCached(inner, rdb, time.Minute)

	_, err := c.GetService(ctx, "ghost")
	assert.ErrorIs(t, err, ErrServiceNotFound)
	_, err = c.GetService(ctx, "ghost")
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Empty(t, rdb.data)
}

func TestCached_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingCatalog{Static: NewStatic(models.ServiceDescriptor{ServiceID: "s1", IsActive: true})}
	rdb := newFakeRedis()
	rdb.down = true
	c := NewCached(inner, rdb, time.Minute)

	svc, err := c.GetService(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", svc.ServiceID)
}

func TestCached_CorruptEntryIsRefetched(t *testing.T) {
	ctx := context.Background()
	inner := &countingCatalog{Static: NewStatic(models.ServiceDescriptor{ServiceID: "s1", MaxCapacity: 9})}
	rdb := newFakeRedis()
	rdb.data["catalog:service:s1"] = "{not json"
	c := NewCached(inner, rdb, time.Minute)

	svc, err := c.GetService(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 9, svc.MaxCapacity)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCached_CollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingCatalog{
		Static:  NewStatic(models.ServiceDescriptor{ServiceID: "s1", IsActive: true}),
		release: make(chan struct{}),
	}
	c := NewCached(inner, newFakeRedis(), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetService(ctx, "s1")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return inner.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}
