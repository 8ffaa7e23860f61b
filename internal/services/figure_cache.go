package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"climatedash/pkg/contracts/domain"
)

// FigureCache keeps rendered figures keyed by figure name and query
type FigureCache struct {
	items *cache.Cache
}

// NewFigureCache creates a cache whose entries expire after ttl
func NewFigureCache(ttl time.Duration) *FigureCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FigureCache{items: cache.New(ttl, 2*ttl)}
}

// Key builds the cache key of one rendered figure
func (c *FigureCache) Key(figure string, q domain.FigureQuery) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", figure, q.Country, q.Metric, q.FromYear, q.ToYear)
}

// Get returns a cached rendering
func (c *FigureCache) Get(key string) ([]byte, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set stores a rendering with the default expiration
func (c *FigureCache) Set(key string, data []byte) {
	c.items.Set(key, data, cache.DefaultExpiration)
}

// Flush drops every entry
func (c *FigureCache) Flush() {
	c.items.Flush()
}

// Len returns the number of cached entries
func (c *FigureCache) Len() int {
	return c.items.ItemCount()
}
