// Package dedupe tracks idempotency keys for create requests.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper remembers which idempotency keys produced which entity.
type Deduper interface {
	// Claim atomically reserves key. When key was already claimed it returns
	// the entity ID recorded for it (empty while the first request is still
	// in flight) and true.
	Claim(ctx context.Context, key string) (id string, seen bool)

	// Complete records the entity ID produced under a claimed key.
	Complete(ctx context.Context, key, id string)

	// Release forgets a claimed key so the request can be retried. Use it
	// when the create failed.
	Release(ctx context.Context, key string)

	Size() int64
}

type record struct {
	key string
	id  string
}

// inMemoryDeduper keeps keys in insertion order. When bounded, the oldest
// key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Claim(ctx context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*record).id, true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(&record{key: key})
	d.size.Add(1)
	return "", false
}

func (d *inMemoryDeduper) Complete(ctx context.Context, key, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		el.Value.(*record).id = id
	}
}

func (d *inMemoryDeduper) Release(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Front()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*record).key)
	d.size.Add(-1)
}

// Size returns the current number of tracked keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
