package history

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/veryfrut/storefront/internal/domain"
)

// writeOnce is an id-keyed map whose entries are set once and never
// replaced or evicted.
type writeOnce[T any] struct {
	mu sync.RWMutex
	m  map[int]T
}

func newWriteOnce[T any]() *writeOnce[T] {
	return &writeOnce[T]{m: make(map[int]T)}
}

func (w *writeOnce[T]) get(id int) (T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.m[id]
	return v, ok
}

// put stores v unless id is already present, and reports whether it stored.
func (w *writeOnce[T]) put(id int, v T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.m[id]; ok {
		return false
	}
	w.m[id] = v
	return true
}

func (w *writeOnce[T]) len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.m)
}

// Cache holds the product and area details resolved during one history
// session. Concurrent lookups of the same id share a single request.
type Cache struct {
	products *writeOnce[domain.Product]
	areas    *writeOnce[domain.Area]
	inflight singleflight.Group
}

// NewCache returns an empty session cache.
func NewCache() *Cache {
	return &Cache{
		products: newWriteOnce[domain.Product](),
		areas:    newWriteOnce[domain.Area](),
	}
}

// Product returns the cached product with id.
func (c *Cache) Product(id int) (domain.Product, bool) { return c.products.get(id) }

// Area returns the cached area with id.
func (c *Cache) Area(id int) (domain.Area, bool) { return c.areas.get(id) }

// Len returns the number of cached products and areas.
func (c *Cache) Len() (products, areas int) {
	return c.products.len(), c.areas.len()
}
