// Package embcache decorates an embedding provider with an in-memory cache,
// keyed by text hash. Repeated questions and corpus reloads skip the
// provider round trip.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
)

const defaultMaxEntries = 4096

// embedder is the consumer interface for the cache decorator.
type embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CachedEmbedder caches embedding vectors in memory.
type CachedEmbedder struct {
	inner      embedder
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu         sync.RWMutex
	entries    map[string][]float32
	maxEntries int
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(inner embedder, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:      inner,
		cacheTotal: cacheTotal,
		logger:     logger,
		entries:    make(map[string][]float32),
		maxEntries: defaultMaxEntries,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	c.mu.RLock()
	vec, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.put(key, result.Embedding)
	return result, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *CachedEmbedder) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Full cache drops everything rather than tracking recency. The corpus
	// is small enough that a refill is cheap.
	if len(c.entries) >= c.maxEntries {
		c.logger.Debug("embedding cache full, resetting", zap.Int("entries", len(c.entries)))
		c.entries = make(map[string][]float32)
	}
	c.entries[key] = vec
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
