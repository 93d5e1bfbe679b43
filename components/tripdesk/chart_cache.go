package tripdesk

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// ChartCache holds the last rendered status chart of each list view. A view is one kind
// under one normalized filter, locale and assets host. The entry is reused while the view's
// status tally is unchanged and the TTL has not run out; mutations of a kind drop its views.
type ChartCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	views   map[chartView]renderedChart
	renders int
}

type chartView struct {
	kind       ResourceKind
	filter     FilterDescriptor
	locale     string
	assetsHost string
}

type renderedChart struct {
	tally   string
	html    string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL. A non-positive TTL disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:   ttl,
		now:   time.Now,
		views: make(map[chartView]renderedChart),
	}
}

// Chart returns the cached chart of req's view when counts match what it was drawn from,
// otherwise it renders and replaces it. Render errors are not cached.
func (c *ChartCache) Chart(req StatusChartRequest, counts map[Status]int, render func() (string, error)) (string, error) {
	view := chartView{kind: req.Kind, filter: req.Filter.Normalize(), locale: req.Locale, assetsHost: req.AssetsHost}
	tally := countsHash(req.Kind, counts)
	if html, ok := c.lookup(view, tally); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.store(view, tally, html)
	return html, nil
}

// InvalidateKind drops every chart of kind.
func (c *ChartCache) InvalidateKind(kind ResourceKind) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for view := range c.views {
		if view.kind == kind {
			delete(c.views, view)
		}
	}
}

// Len counts cached views.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.views)
}

func (c *ChartCache) lookup(view chartView, tally string) (string, bool) {
	if c == nil || c.ttl <= 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.views[view]
	if !ok {
		return "", false
	}
	if entry.tally != tally || c.now().After(entry.expires) {
		delete(c.views, view)
		return "", false
	}
	return entry.html, true
}

func (c *ChartCache) store(view chartView, tally, html string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renders++
	if c.ttl <= 0 {
		return
	}
	c.views[view] = renderedChart{tally: tally, html: html, expires: c.now().Add(c.ttl)}
}

// countsHash returns a deterministic key for a status tally. encoding/json sorts map keys.
func countsHash(kind ResourceKind, counts map[Status]int) string {
	b, err := json.Marshal(counts)
	if err != nil {
		return string(kind) + ":invalid"
	}
	sum := sha1.Sum(append([]byte(kind+":"), b...))
	return hex.EncodeToString(sum[:])
}
