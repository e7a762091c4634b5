package embedding

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// FeatureCache is an LRU cache of feature vectors keyed by image source key.
// Cached slices are shared; callers must treat them as read-only.
type FeatureCache struct {
	cache *lru.Cache[string, []float32]
}

// NewFeatureCache creates a cache holding up to capacity vectors.
func NewFeatureCache(capacity int) (*FeatureCache, error) {
	c, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, err
	}
	return &FeatureCache{cache: c}, nil
}

// Get returns the cached vector for key if present.
func (c *FeatureCache) Get(key string) ([]float32, bool) {
	return c.cache.Get(key)
}

// Set stores the vector for key, evicting the least recently used entry if at capacity.
func (c *FeatureCache) Set(key string, value []float32) {
	c.cache.Add(key, value)
}

// Remove drops key from the cache.
func (c *FeatureCache) Remove(key string) {
	c.cache.Remove(key)
}

// Len returns the number of cached vectors.
func (c *FeatureCache) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *FeatureCache) Purge() {
	c.cache.Purge()
}
