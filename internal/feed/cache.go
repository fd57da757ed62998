package feed

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Cache mirrors one table in memory, keyed by id. Remote events and local optimistic
// writes are merged by key; whichever arrives last wins.
type Cache[T any] struct {
	mu    sync.RWMutex
	table string
	key   func(T) string
	items map[string]T
	order []string
}

func NewCache[T any](table string, key func(T) string) *Cache[T] {
	return &Cache[T]{table: table, key: key, items: make(map[string]T)}
}

// Apply merges a change event. Events for other tables are ignored.
func (c *Cache[T]) Apply(ev Event) error {
	if ev.Table != c.table {
		return nil
	}

	switch ev.Type {
	case Insert, Update:
		var item T
		if err := json.Unmarshal(ev.New, &item); err != nil {
			return fmt.Errorf("decode %s row: %w", c.table, err)
		}
		c.ApplyLocal(item)
	case Delete:
		image := ev.Old
		if len(image) == 0 {
			image = ev.New
		}
		var item T
		if err := json.Unmarshal(image, &item); err != nil {
			return fmt.Errorf("decode %s row: %w", c.table, err)
		}
		c.Remove(c.key(item))
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// ApplyLocal upserts an item written by this process.
func (c *Cache[T]) ApplyLocal(item T) {
	k := c.key(item)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[k]; !ok {
		c.order = append(c.order, k)
	}
	c.items[k] = item
}

func (c *Cache[T]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	return item, ok
}

// List returns the items in first-seen order.
func (c *Cache[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
