package catalog

import (
	"context"
	"sync"
	"time"
)

// Registry keeps one live Catalog per browser session so that concurrent
// requests of the same visitor share a list and its generation counter.
// Idle entries are evicted after TTL.
type Registry struct {
	factory func() *Catalog
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	cat      *Catalog
	lastUsed time.Time
}

func NewRegistry(factory func() *Catalog, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{factory: factory, ttl: ttl, entries: map[string]*registryEntry{}}
}

// Acquire returns the catalog for id, creating it when absent. created
// reports whether the caller should Restore persisted state into it.
func (r *Registry) Acquire(id string) (cat *Catalog, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.lastUsed = time.Now()
		return e.cat, false
	}
	cat = r.factory()
	r.entries[id] = &registryEntry{cat: cat, lastUsed: time.Now()}
	return cat, true
}

func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts entries idle since before now-TTL and returns how many went.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if now.Sub(e.lastUsed) > r.ttl {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}
