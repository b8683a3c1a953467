package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a resolved member list is reused.
const DefaultTTL = 5 * time.Minute

// Cache stores member lists keyed by relation id. Writes overwrite
// unconditionally; there is no write-through from the backend.
type Cache interface {
	Get(ctx context.Context, relationID string) ([]UserProfile, bool, error)
	Set(ctx context.Context, relationID string, members []UserProfile) error
	Invalidate(ctx context.Context, relationID string) error
	Clear(ctx context.Context) error
}

type memoryEntry struct {
	members   []UserProfile
	expiresAt time.Time
}

// MemoryCache is a process-local Cache. Expired entries are treated as
// misses on read and purged by Sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

func NewMemoryCache(ttl time.Duration, opts ...MemoryOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, relationID string) ([]UserProfile, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[relationID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.members, true, nil
}

func (c *MemoryCache) Set(_ context.Context, relationID string, members []UserProfile) error {
	c.mu.Lock()
	c.entries[relationID] = memoryEntry{members: members, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, relationID string) error {
	c.mu.Lock()
	delete(c.entries, relationID)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len counts entries including expired ones not yet swept.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares member lists across instances. Values are JSON and
// expire server-side.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(relationID string) string {
	return c.prefix + relationID
}

func (c *RedisCache) Get(ctx context.Context, relationID string) ([]UserProfile, bool, error) {
	data, err := c.client.Get(ctx, c.key(relationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var members []UserProfile
	if err := json.Unmarshal(data, &members); err != nil {
		// A corrupt value is a miss; the next Set replaces it.
		return nil, false, nil
	}
	return members, true, nil
}

func (c *RedisCache) Set(ctx context.Context, relationID string, members []UserProfile) error {
	data, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(relationID), data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, relationID string) error {
	return c.client.Del(ctx, c.key(relationID)).Err()
}

// Clear removes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}
