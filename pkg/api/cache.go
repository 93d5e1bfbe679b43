package api

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// ResponseCache stores decoded GET payloads by kind. A zero TTL disables storage, but
// invalidation epochs are tracked either way so reads can tell when a mutation overtook them.
type ResponseCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]cacheEntry
	byKind  map[tripdesk.ResourceKind]map[string]struct{}

	// gen counts invalidations. kindGen holds the gen of a kind's last invalidation and
	// cleared the gen of the last Clear.
	gen     uint64
	cleared uint64
	kindGen map[tripdesk.ResourceKind]uint64
}

type cacheEntry struct {
	data    json.RawMessage
	expires time.Time
}

// NewResponseCache builds a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		byKind:  make(map[tripdesk.ResourceKind]map[string]struct{}),
		kindGen: make(map[tripdesk.ResourceKind]uint64),
	}
}

// Epoch identifies the current invalidation state of kind. It changes whenever the kind
// is invalidated or the cache is cleared.
func (c *ResponseCache) Epoch(kind tripdesk.ResourceKind) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epochLocked(kind)
}

func (c *ResponseCache) epochLocked(kind tripdesk.ResourceKind) uint64 {
	return max(c.kindGen[kind], c.cleared)
}

// Get returns a live entry.
func (c *ResponseCache) Get(key string) (json.RawMessage, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.data, true
}

// SetAt stores data only if kind is still at epoch, i.e. no mutation or Clear landed while
// the payload was being fetched. It reports whether the entry was stored.
func (c *ResponseCache) SetAt(kind tripdesk.ResourceKind, key string, data json.RawMessage, epoch uint64) bool {
	if c == nil || c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochLocked(kind) != epoch {
		return false
	}
	c.storeLocked(kind, key, data)
	return true
}

func (c *ResponseCache) storeLocked(kind tripdesk.ResourceKind, key string, data json.RawMessage) {
	c.entries[key] = cacheEntry{data: data, expires: c.now().Add(c.ttl)}
	keys, ok := c.byKind[kind]
	if !ok {
		keys = make(map[string]struct{})
		c.byKind[kind] = keys
	}
	keys[key] = struct{}{}
}

// InvalidateKind drops every cached read of kind.
func (c *ResponseCache) InvalidateKind(kind tripdesk.ResourceKind) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.kindGen[kind] = c.gen
	for key := range c.byKind[kind] {
		delete(c.entries, key)
	}
	delete(c.byKind, kind)
}

// Clear drops everything.
func (c *ResponseCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cleared = c.gen
	c.entries = make(map[string]cacheEntry)
	c.byKind = make(map[tripdesk.ResourceKind]map[string]struct{})
}

// Len counts stored entries, expired ones included.
func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(kind tripdesk.ResourceKind, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(path)
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}
