package store

import (
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// Cache persists the synced order rows as a single JSON array of flat
// maps. All access goes through the store's mutex; mutations are
// load-mutate-save cycles that only rewrite the file after the full
// computation succeeds.
type Cache struct {
	mu     sync.Mutex
	path   string
	orders []model.Order
}

// NewCache creates a cache store backed by the given file.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Load reads the persisted cache. A corrupt file resets to empty; the
// next merge rebuilds it from the feed.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var orders []model.Order
	found, err := readJSONFile(c.path, &orders)
	if err != nil {
		zap.L().Warn("cache load failed, starting empty", zap.Error(err))
		c.orders = nil
		return nil
	}
	if !found {
		c.orders = nil
		return nil
	}
	c.orders = orders
	zap.L().Debug("loaded order cache", zap.Int("records", len(orders)))
	return nil
}

// Snapshot returns a deep copy of the cached orders in display order.
func (c *Cache) Snapshot() []model.Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Order, len(c.orders))
	for i, o := range c.orders {
		out[i] = o.Clone()
	}
	return out
}

// Len returns the number of cached orders.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

// Mutate applies fn to the cached order list under the store lock and
// persists the result when fn reports a change. fn owns the returned
// slice; the store keeps it verbatim. In-memory state is kept even when
// the save fails, so the caller sees current data and the next
// successful save reconverges the file.
func (c *Cache) Mutate(fn func(orders []model.Order) ([]model.Order, bool)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, changed := fn(c.orders)
	if !changed {
		return false, nil
	}
	c.orders = next
	if err := writeJSONFile(c.path, c.ordersOrEmpty()); err != nil {
		return true, eris.Wrap(err, "cache: persist")
	}
	return true, nil
}

// Reset empties the cache and removes the persisted file.
func (c *Cache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = nil
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "cache: remove file")
	}
	return nil
}

// ordersOrEmpty keeps the persisted document a JSON array, never null.
func (c *Cache) ordersOrEmpty() []model.Order {
	if c.orders == nil {
		return []model.Order{}
	}
	return c.orders
}
