package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

// LocalCacheRepository is the in-process cache used when Redis is disabled.
// Values are stored JSON-encoded so reads never share memory with writers.
type LocalCacheRepository struct {
	store *gocache.Cache
}

// NewLocalCacheRepository constructs a local cache with the given default TTL.
func NewLocalCacheRepository(defaultTTL time.Duration) *LocalCacheRepository {
	return &LocalCacheRepository{store: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Get unmarshals the cached value into dest.
func (r *LocalCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.store.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		return fmt.Errorf("local cache value for %s has type %T", key, raw)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key for ttl.
func (r *LocalCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.store.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching a glob pattern (Redis SCAN syntax subset).
func (r *LocalCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range r.store.Items() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("match cache pattern %s: %w", pattern, err)
		}
		if matched {
			r.store.Delete(key)
		}
	}
	return nil
}
