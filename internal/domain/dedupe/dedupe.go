// Package dedupe defines the keyed expiry cache used to suppress repeats.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records keys for a bounded time window.
type Deduper interface {
	// SeenAndRecord atomically checks if key is live and records it if not.
	// Returns true if key was already recorded and has not expired.
	SeenAndRecord(ctx context.Context, key string) bool

	// Size returns the number of live keys.
	Size() int64
}

type entry struct {
	key     string
	expires time.Time
}

// inMemoryDeduper keeps keys in insertion order so the oldest entry is both
// the first to expire and the first to be evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = newest
	maxSize int        // 0 or negative = unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a process-local deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweep(now)

	if _, ok := d.seen[key]; ok {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.removeElement(d.order.Back())
	}

	e := &entry{key: key}
	if d.ttl > 0 {
		e.expires = now.Add(d.ttl)
	}
	d.seen[key] = d.order.PushFront(e)
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sweep(d.now())
	return int64(len(d.seen))
}

// sweep drops expired entries from the tail. All entries share one TTL, so
// expiry order matches insertion order. Must be called with d.mu held.
func (d *inMemoryDeduper) sweep(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Back(); el != nil; el = d.order.Back() {
		if now.Before(el.Value.(*entry).expires) {
			return
		}
		d.removeElement(el)
	}
}

// Must be called with d.mu held.
func (d *inMemoryDeduper) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.seen, el.Value.(*entry).key)
	d.order.Remove(el)
}
