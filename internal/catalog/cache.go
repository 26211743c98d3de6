package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"backend-queueflex/internal/models"
)

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cached keeps descriptors in Redis for ttl and collapses concurrent misses
// for the same service into one registry call. Redis failures fall through
// to the inner catalog.
type Cached struct {
	inner Catalog
	rdb   redisClient
	ttl   time.Duration
	group singleflight.Group
}

func NewCached(inner Catalog, rdb redisClient, ttl time.Duration) *Cached {
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

func serviceKey(serviceID string) string {
	return fmt.Sprintf("catalog:service:%s", serviceID)
}

func (c *Cached) GetService(ctx context.Context, serviceID string) (models.ServiceDescriptor, error) {
	key := serviceKey(serviceID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var svc models.ServiceDescriptor
		if err := json.Unmarshal(raw, &svc); err == nil {
			return svc, nil
		}
		log.Warn().Str("component", "catalog").Str("key", key).Msg("dropping undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("component", "catalog").Str("key", key).Msg("redis get failed")
	}

	v, err, _ := c.group.Do(serviceID, func() (interface{}, error) {
		svc, err := c.inner.GetService(ctx, serviceID)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(svc); err == nil {
			if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				log.Warn().Err(err).Str("component", "catalog").Str("key", key).Msg("redis set failed")
			}
		}
		return svc, nil
	})
	if err != nil {
		return models.ServiceDescriptor{}, err
	}
	return v.(models.ServiceDescriptor), nil
}

func (c *Cached) ListServices(ctx context.Context) ([]models.ServiceDescriptor, error) {
	return c.inner.ListServices(ctx)
}

// Invalidate drops the cached descriptor.
func (c *Cached) Invalidate(ctx context.Context, serviceID string) error {
	return c.rdb.Del(ctx, serviceKey(serviceID)).Err()
}
