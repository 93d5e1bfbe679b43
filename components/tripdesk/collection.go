package tripdesk

import "sync"

// Collection is the in-memory list a page renders.
type Collection[T Record] struct {
	mu    sync.RWMutex
	items []T
}

// NewCollection copies items into a new collection.
func NewCollection[T Record](items []T) *Collection[T] {
	return &Collection[T]{items: append([]T(nil), items...)}
}

// Items returns a copy of the current slice.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Find returns the record with the given id.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Reset replaces every record.
func (c *Collection[T]) Reset(items []T) {
	c.mu.Lock()
	c.items = append([]T(nil), items...)
	c.mu.Unlock()
}

// ReplaceByID swaps the element whose id matches rec. Other elements are untouched.
func (c *Collection[T]) ReplaceByID(rec T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].RecordID() == rec.RecordID() {
			c.items[i] = rec
			return true
		}
	}
	return false
}

// Prepend inserts rec at the head.
func (c *Collection[T]) Prepend(rec T) {
	c.mu.Lock()
	c.items = append([]T{rec}, c.items...)
	c.mu.Unlock()
}

// Append inserts rec at the tail.
func (c *Collection[T]) Append(rec T) {
	c.mu.Lock()
	c.items = append(c.items, rec)
	c.mu.Unlock()
}

// RemoveByID filters out the record with the given id.
func (c *Collection[T]) RemoveByID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].RecordID() == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}
