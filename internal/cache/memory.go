package cache

import (
	"container/list"
	"sync"
	"time"
)

// Memory is a size bounded LRU cache.
type Memory struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	stats    Stats
}

type memoryEntry struct {
	key     string
	value   []byte
	created time.Time
	hits    int64
}

// NewMemory creates an LRU holding at most capacity bytes.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it recently used.
func (c *Memory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	e := elem.Value.(*memoryEntry)
	e.hits++
	c.stats.Hits++
	return e.value, true
}

// Put stores value under key, evicting the least recently used items as
// needed.
func (c *Memory) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(value))
	if n > c.capacity {
		return ErrItemTooLarge
	}
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	for c.size+n > c.capacity && c.order.Len() > 0 {
		c.remove(c.order.Back())
		c.stats.Evictions++
	}

	c.items[key] = c.order.PushFront(&memoryEntry{key: key, value: value, created: time.Now()})
	c.size += n
	return nil
}

// Delete removes key if present.
func (c *Memory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Clear drops every item.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.size = 0
}

// Contains reports whether key is cached without touching its recency.
func (c *Memory) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Oldest returns up to n entries, least recently used first.
func (c *Memory) Oldest(n int) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, n)
	for elem := c.order.Back(); elem != nil && len(out) < n; elem = elem.Prev() {
		e := elem.Value.(*memoryEntry)
		out = append(out, Entry{Key: e.key, Size: int64(len(e.value)), Created: e.created, Hits: e.hits, Level: LevelMemory})
	}
	return out
}

// Prune removes entries created more than maxAge ago.
func (c *Memory) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).created.Before(cutoff) {
			c.remove(elem)
			pruned++
		}
		elem = prev
	}
	return pruned
}

// Stats returns a snapshot of the counters.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Capacity = c.capacity
	s.Size = c.size
	s.Items = int64(len(c.items))
	return s
}

func (c *Memory) remove(elem *list.Element) {
	c.order.Remove(elem)
	e := elem.Value.(*memoryEntry)
	delete(c.items, e.key)
	c.size -= int64(len(e.value))
}
