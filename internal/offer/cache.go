package offer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores cart-probe results for the lifetime of a scan. An empty
// stored value is a valid result ("no promotion found").
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ProbeKey identifies a probe result. Two probes with the same key hit the
// same cart state server side, so their outcome is shared.
type ProbeKey struct {
	EAN          string
	Segment      string
	SalesChannel string
	Depth        int
}

func (k ProbeKey) String() string {
	return strings.Join([]string{k.EAN, k.Segment, k.SalesChannel, strconv.Itoa(k.Depth)}, "|")
}

// MemoryCache is a mutex-guarded map, scoped to one scan.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

const probeTTL = 2 * time.Hour

// RedisCache shares probe results between processes scanning the same
// scan id. Keys expire after TTL so nothing outlives the scan for long.
type RedisCache struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// NewRedisCache namespaces keys by scan id.
func NewRedisCache(client *redis.Client, scanID string) *RedisCache {
	return &RedisCache{Client: client, Prefix: "offerprobe:" + scanID + ":", TTL: probeTTL}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.Client.Get(ctx, c.Prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = probeTTL
	}
	return c.Client.Set(ctx, c.Prefix+key, value, ttl).Err()
}
