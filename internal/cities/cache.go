// Package cities caches the distinct list of HOA cities.
package cities

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultTTL is how long a loaded city list is served before reloading.
const DefaultTTL = time.Hour

// Loader returns the raw city column values; Cache normalizes them.
type Loader func(ctx context.Context) ([]string, error)

// Cache is a single-slot cache for the city list.
type Cache struct {
	load Loader
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	value    []string
	loadedAt time.Time
	valid    bool
}

type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(load Loader, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{load: load, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached list while it is younger than the TTL, otherwise it
// reloads synchronously. cached reports whether the loader was skipped.
func (c *Cache) Get(ctx context.Context) (cities []string, cached bool, err error) {
	c.mu.Lock()
	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		out := append([]string(nil), c.value...)
		c.mu.Unlock()
		return out, true, nil
	}
	c.mu.Unlock()

	// Loading happens outside the lock; concurrent reloads converge on the
	// same list and the last one wins.
	raw, err := c.load(ctx)
	if err != nil {
		return nil, false, err
	}
	list := Normalize(raw)

	c.mu.Lock()
	c.value = list
	c.loadedAt = c.now()
	c.valid = true
	c.mu.Unlock()
	return append([]string(nil), list...), false, nil
}

// Invalidate drops the cached list so the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.value = nil
	c.valid = false
	c.mu.Unlock()
}

// Normalize trims values, drops blanks and duplicates, and sorts the result
// in English collation order.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	collate.New(language.English).SortStrings(out)
	return out
}
