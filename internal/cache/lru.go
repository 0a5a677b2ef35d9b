package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// LRUCache keeps at most capacity entries in process, dropping the least
// recently read one when full. Entries older than ttl read as misses.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List // front is most recently used
	now      func() time.Time

	hits, misses uint64
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

// NewLRUCache returns an empty cache. A capacity below one is treated as one.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[T]{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRUCache[T]) Get(_ context.Context, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok || c.stale(el, c.now()) {
		if ok {
			c.drop(el)
		}
		c.misses++
		var zero T
		return zero, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry[T]).value, true
}

func (c *LRUCache[T]) Set(_ context.Context, key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}

	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// CleanExpired drops stale entries and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.stale(el, now) {
			c.drop(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Size is the number of entries held, stale ones included.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns lookup counts since creation.
func (c *LRUCache[T]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRUCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.index)
	c.order.Init()
}

func (c *LRUCache[T]) stale(el *list.Element, now time.Time) bool {
	return now.After(el.Value.(*entry[T]).expires)
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
