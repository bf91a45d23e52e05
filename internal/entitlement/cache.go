package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/redis/go-redis/v9"
)

// Snapshot is the cached result of a live subscription lookup.
type Snapshot struct {
	Found     bool                      `json:"found"`
	Status    models.SubscriptionStatus `json:"status"`
	PeriodEnd time.Time                 `json:"periodEnd"`
}

// Entitled reports whether the snapshot grants PRO. Only the status counts;
// a period end that has passed while the row is still ACTIVE means the
// renewal webhook has not arrived yet.
func (s Snapshot) Entitled() bool {
	return s.Found && StatusEntitles(s.Status)
}

type Cache interface {
	Get(ctx context.Context, key string) (Snapshot, bool, error)
	Set(ctx context.Context, key string, snap Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const cachePrefix = "entitlement:"

type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("entitlement cache get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, snap Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cachePrefix+key, raw, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, cachePrefix+key).Err()
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// MemoryCache expires entries lazily on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return Snapshot{}, false, nil
	}
	return e.snap, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, snap Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{snap: snap, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
