package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores previously computed vectors keyed by content hash, so
// re-ingesting unchanged articles never re-embeds their chunks.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Put(ctx context.Context, key string, vector []float32)
}

// CacheKey derives the cache key for a text under a given model. The model
// is part of the key: vectors from different models are never
// interchangeable.
func CacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + text))
	return "emb:" + hex.EncodeToString(hash[:])
}

// RedisCache is a Redis-backed Cache with a TTL per entry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies connectivity. ttl <= 0
// disables expiry.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (r *RedisCache) Put(ctx context.Context, key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	// Cache writes are best effort; a failed write only costs a re-embed.
	_ = r.client.Set(ctx, key, data, r.ttl).Err()
}

// Close releases the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// MemoryCache is the in-process fallback used when Redis is not
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vectors: make(map[string][]float32)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vector, ok := m.vectors[key]
	return vector, ok
}

func (m *MemoryCache) Put(_ context.Context, key string, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[key] = vector
}

// CachedProvider layers a Cache over a Provider. Only cache misses reach
// the underlying provider; results come back in input order regardless of
// which texts were cached.
type CachedProvider struct {
	provider Provider
	cache    Cache
}

func NewCachedProvider(provider Provider, cache Cache) *CachedProvider {
	return &CachedProvider{provider: provider, cache: cache}
}

func (c *CachedProvider) ModelName() string { return c.provider.ModelName() }

// EmbedQuery bypasses the cache: the cache holds document embeddings, and
// providers with asymmetric models produce different vectors for queries.
func (c *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return EmbedQuery(ctx, c.provider, text)
}

func (c *CachedProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIndexes []int

	for i, text := range texts {
		key := CacheKey(c.ModelName(), text)
		if vector, ok := c.cache.Get(ctx, key); ok {
			out[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) > 0 {
		vectors, err := c.provider.EmbedTexts(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vector := range vectors {
			idx := missIndexes[j]
			out[idx] = vector
			c.cache.Put(ctx, CacheKey(c.ModelName(), texts[idx]), vector)
		}
	}
	return out, nil
}
