package surface

import "sync"

// StyleCache resolves styles to drawing resources once and keeps them until
// Invalidate is called.
type StyleCache[R any] struct {
	mu      sync.Mutex
	resolve func(Style) R
	entries map[Style]R
	misses  int
}

// NewStyleCache returns a cache that calls resolve on a miss.
func NewStyleCache[R any](resolve func(Style) R) *StyleCache[R] {
	return &StyleCache[R]{resolve: resolve, entries: make(map[Style]R)}
}

// Get returns the resource for s, resolving it on first use.
func (c *StyleCache[R]) Get(s Style) R {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.entries[s]; ok {
		return r
	}
	r := c.resolve(s)
	c.entries[s] = r
	c.misses++
	return r
}

// Invalidate drops all entries.
func (c *StyleCache[R]) Invalidate() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of cached resources.
func (c *StyleCache[R]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Misses returns how many times a resource was resolved.
func (c *StyleCache[R]) Misses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}
