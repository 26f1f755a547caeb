package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of synthesized clips to keep.
const DefaultCacheSize = 128

// CachingProvider wraps a Provider with an LRU cache keyed on the
// normalized text and language. Repeated prompts such as greetings and
// fallback replies skip the network round trip.
type CachingProvider struct {
	provider Provider
	cache    *lru.Cache[string, *AudioResult]
	logger   *slog.Logger
}

// compile-time interface check
var _ Provider = (*CachingProvider)(nil)

// NewCachingProvider wraps provider with an LRU cache of size entries.
// Size must be positive.
func NewCachingProvider(provider Provider, size int, logger *slog.Logger) (*CachingProvider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *AudioResult](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingProvider{
		provider: provider,
		cache:    cache,
		logger:   logger.With("component", "tts-cache"),
	}, nil
}

func cacheKey(text, language string) string {
	sum := sha256.Sum256([]byte(language + "|" + text))
	return hex.EncodeToString(sum[:])
}

// Synthesize returns a cached result when available; otherwise it
// delegates and stores the outcome. Failures are never cached.
func (c *CachingProvider) Synthesize(ctx context.Context, text, language string) (*AudioResult, error) {
	key := cacheKey(text, language)
	if result, ok := c.cache.Get(key); ok {
		c.logger.Debug("cache hit", "chars", len(text), "language", language)
		return result, nil
	}

	result, err := c.provider.Synthesize(ctx, text, language)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, result)
	return result, nil
}

// Health delegates to the wrapped provider.
func (c *CachingProvider) Health(ctx context.Context) error {
	return c.provider.Health(ctx)
}

// Close purges the cache and closes the wrapped provider.
func (c *CachingProvider) Close() error {
	c.cache.Purge()
	return c.provider.Close()
}

// Len returns the number of cached entries.
func (c *CachingProvider) Len() int {
	return c.cache.Len()
}
