// Package cache provides the Redis read-through cache for live versions. The
// public surface reads are heavily skewed toward confirmed versions, so a
// short TTL copy absorbs most traffic; publish and withdraw invalidate.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "profreg/pkg/domain"
	"profreg/internal/register/models"
)

const (
	liveKeyPrefix = "reg:live:"
	slugKeyPrefix = "reg:slug:"

	// defaultTTL keeps stale windows short; invalidation handles the common
	// case, the TTL covers missed invalidations.
	defaultTTL = 5 * time.Minute
)

// LiveCache caches the confirmed version of entities keyed by entity ID and
// by (entity type, slug). A nil *LiveCache is a no-op so callers need no
// guards when Redis is not configured.
type LiveCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a LiveCache.
type Option func(*LiveCache)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *LiveCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(client *redis.Client, opts ...Option) *LiveCache {
	c := &LiveCache{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetLive returns the cached live version for an entity, or nil on miss.
// Cache errors degrade to a miss; the store remains the source of truth.
func (c *LiveCache) GetLive(ctx context.Context, entityID id.EntityID) *models.Version {
	if c == nil {
		return nil
	}
	return c.get(ctx, liveKeyPrefix+entityID.String())
}

// GetBySlug returns the cached live version for a public slug, or nil.
func (c *LiveCache) GetBySlug(ctx context.Context, entityType id.EntityType, slug string) *models.Version {
	if c == nil {
		return nil
	}
	return c.get(ctx, slugKey(entityType, slug))
}

// SetLive stores the live version under both its entity and slug keys.
func (c *LiveCache) SetLive(ctx context.Context, entityType id.EntityType, v *models.Version) {
	if c == nil || v == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	pipe := c.client.Pipeline()
	pipe.Set(ctx, liveKeyPrefix+v.EntityID.String(), payload, c.ttl)
	if v.Slug != "" {
		pipe.Set(ctx, slugKey(entityType, v.Slug), payload, c.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

// Invalidate drops the cached entry for an entity and, when known, its slug.
// Called inside publish and withdraw after the state change commits.
func (c *LiveCache) Invalidate(ctx context.Context, entityType id.EntityType, entityID id.EntityID, slug string) {
	if c == nil {
		return
	}
	keys := []string{liveKeyPrefix + entityID.String()}
	if slug != "" {
		keys = append(keys, slugKey(entityType, slug))
	}
	_ = c.client.Del(ctx, keys...).Err()
}

func (c *LiveCache) get(ctx context.Context, key string) *models.Version {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil
	}
	var v models.Version
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil
	}
	return &v
}

func slugKey(entityType id.EntityType, slug string) string {
	return slugKeyPrefix + entityType.String() + ":" + slug
}
