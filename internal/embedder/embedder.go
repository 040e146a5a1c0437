package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"semidx/internal/ir"
	"semidx/internal/tokenizer"
)

const (
	// MaxTokens is the embedding provider's input budget. Documents at
	// or over this length are token-truncated before sending.
	MaxTokens = 8192

	// EnvAPIKey and EnvAPIBase configure the remote provider.
	EnvAPIKey   = "SEMIDX_API_KEY"
	EnvAPIBase  = "SEMIDX_API_BASE"
	EnvProvider = "SEMIDX_PROVIDER"
)

// Client turns text into an embedding vector. Embed blocks until the
// vector is available or the attempt is abandoned; callers that need
// fan-out schedule their own concurrent Embed calls.
type Client interface {
	Embed(ctx context.Context, text string) (ir.Vector, error)
	Dimension() int
	Model() string
	Close() error
}

// FromEnv builds the configured provider: the remote OpenAI-compatible
// client when an API key is set, or the deterministic local provider
// when SEMIDX_PROVIDER=local.
func FromEnv(tok tokenizer.Tokenizer) (Client, error) {
	if os.Getenv(EnvProvider) == ProviderLocal {
		return NewLocal(), nil
	}
	return NewOpenAI(OpenAIConfig{Tokenizer: tok})
}

// Hash returns the cache key for a piece of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cache is an in-memory LRU of vectors keyed by content hash.
type Cache struct {
	cache *lru.Cache[string, ir.Vector]
}

const defaultCacheSize = 10000

// NewCache creates a cache holding up to maxLen vectors.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	cache, err := lru.New[string, ir.Vector](maxLen)
	if err != nil {
		cache, _ = lru.New[string, ir.Vector](defaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached vector so callers cannot mutate the
// cached value.
func (c *Cache) Get(hash string) (ir.Vector, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make(ir.Vector, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector; LRU eviction is automatic.
func (c *Cache) Set(hash string, vec ir.Vector) {
	c.cache.Add(hash, vec)
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int { return c.cache.Len() }

// VectorStore persists vectors across runs, keyed by model and content
// hash. Implemented by the sqlite store in internal/storage.
type VectorStore interface {
	Get(ctx context.Context, model, hash string) (ir.Vector, bool, error)
	Put(ctx context.Context, model, hash string, vec ir.Vector) error
}

// CachedClient layers an in-memory LRU and an optional persistent store
// in front of another Client. Either cache layer may be nil.
type CachedClient struct {
	inner Client
	lru   *Cache
	store VectorStore
}

// WithCache wraps inner with the given cache layers.
func WithCache(inner Client, lru *Cache, store VectorStore) *CachedClient {
	return &CachedClient{inner: inner, lru: lru, store: store}
}

func (c *CachedClient) Embed(ctx context.Context, text string) (ir.Vector, error) {
	hash := Hash(text)

	if c.lru != nil {
		if vec, ok := c.lru.Get(hash); ok {
			return vec, nil
		}
	}
	if c.store != nil {
		vec, ok, err := c.store.Get(ctx, c.inner.Model(), hash)
		if err == nil && ok {
			if c.lru != nil {
				c.lru.Set(hash, vec)
			}
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if c.lru != nil {
		c.lru.Set(hash, vec)
	}
	if c.store != nil {
		// Persisting is best effort; a cache write failure must not
		// fail the embed.
		_ = c.store.Put(ctx, c.inner.Model(), hash, vec)
	}
	return vec, nil
}

func (c *CachedClient) Dimension() int { return c.inner.Dimension() }
func (c *CachedClient) Model() string  { return c.inner.Model() }
func (c *CachedClient) Close() error   { return c.inner.Close() }
