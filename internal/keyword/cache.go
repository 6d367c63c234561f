package keyword

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jonesrussell/north-cloud/reader/internal/domain"
)

// DefaultCacheSize is how many vectors a Cache holds by default.
const DefaultCacheSize = 1024

// Cache is a bounded LRU of per-article keyword vectors. Safe for concurrent use.
type Cache struct {
	entries   *lru.Cache[uuid.UUID, Weights]
	extractor *Extractor
	max       int
}

// NewCache returns a Cache holding up to size vectors of up to maxKeywords keywords.
func NewCache(size, maxKeywords int, extractor *Extractor) (*Cache, error) {
	entries, err := lru.New[uuid.UUID, Weights](size)
	if err != nil {
		return nil, fmt.Errorf("create keyword cache: %w", err)
	}
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	return &Cache{entries: entries, extractor: extractor, max: maxKeywords}, nil
}

// Vector returns the article's cached vector, extracting and caching it on a miss.
// Callers must not mutate the returned map.
func (c *Cache) Vector(a *domain.Article) Weights {
	if w, ok := c.entries.Get(a.ID); ok {
		return w
	}
	w := c.extractor.ForArticle(a, c.max)
	c.entries.Add(a.ID, w)
	return w
}

// MaxKeywords is the vector length the cache extracts. Persisted article vectors
// use the same limit so cached and stored vectors are comparable.
func (c *Cache) MaxKeywords() int {
	return c.max
}

// Invalidate drops the cached vector for id.
func (c *Cache) Invalidate(id uuid.UUID) {
	c.entries.Remove(id)
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return c.entries.Len()
}
