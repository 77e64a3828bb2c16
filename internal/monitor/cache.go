package monitor

import (
	"sync"

	"hyper_monitor/internal/models"
)

type cacheEntry struct {
	mu   sync.Mutex
	snap *models.Snapshot
}

// Cache keeps the last snapshot per address. Entries outlive subscriptions.
//
// The map lock only guards entry lookup; replacing a snapshot takes the
// per-address lock, so writers for different addresses never wait on each other.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

func (c *Cache) entry(address string) *cacheEntry {
	c.mu.RLock()
	e, ok := c.entries[address]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[address]; !ok {
		e = &cacheEntry{}
		c.entries[address] = e
	}
	return e
}

// Get returns the cached snapshot, or nil when the address was never fetched.
func (c *Cache) Get(address string) *models.Snapshot {
	c.mu.RLock()
	e, ok := c.entries[address]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Swap stores snap for address and returns the snapshot it replaced (nil if none).
func (c *Cache) Swap(address string, snap *models.Snapshot) *models.Snapshot {
	e := c.entry(address)
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.snap
	e.snap = snap
	return prev
}

// StoreIfAbsent stores snap only when the address has no snapshot yet.
func (c *Cache) StoreIfAbsent(address string, snap *models.Snapshot) bool {
	e := c.entry(address)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap != nil {
		return false
	}
	e.snap = snap
	return true
}

// Len counts addresses holding a snapshot.
func (c *Cache) Len() int {
	c.mu.RLock()
	entries := make([]*cacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	n := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.snap != nil {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
