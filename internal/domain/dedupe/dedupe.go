// Package dedupe maps client idempotency keys to the jobs they created.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper remembers which job an idempotency key produced.
type Deduper interface {
	// Claim atomically binds key to jobID unless key is already bound.
	// Returns the bound job id and true when key was already claimed;
	// otherwise "" and false, and key now maps to jobID.
	Claim(ctx context.Context, key, jobID string) (string, bool)

	// Release forgets key when it is still bound to jobID, so that a later
	// submission can retry. A key rebound to another job is left alone.
	Release(ctx context.Context, key, jobID string)

	// Lookup returns the job bound to key, if any.
	Lookup(ctx context.Context, key string) (string, bool)

	Size() int64
}

// node is an entry of the recency list; head is the newest key.
type node struct {
	key   string
	jobID string
	prev  *node
	next  *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryDeduper implements Deduper with a map and a doubly linked list.
// For bounded mode (maxSize > 0) the tail (oldest key) is evicted first and
// nodes are recycled through a sync.Pool.
type inMemoryDeduper struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node
	tail     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.keys = make(map[string]*node)
	d.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.keys[key]; ok {
		return n.jobID, true
	}

	if d.maxSize > 0 && len(d.keys) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key, n.jobID = key, jobID
	d.pushFront(n)
	d.keys[key] = n
	d.size.Add(1)
	return "", false
}

func (d *inMemoryDeduper) Release(_ context.Context, key, jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.keys[key]
	if !ok || n.jobID != jobID {
		return
	}
	d.drop(n)
}

func (d *inMemoryDeduper) Lookup(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.keys[key]; ok {
		return n.jobID, true
	}
	return "", false
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

func (d *inMemoryDeduper) pushFront(n *node) {
	n.prev = nil
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
}

// evictOldest removes the tail. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.drop(d.tail)
	}
}

// drop unlinks n and returns it to the pool. Must be called with d.mu held.
func (d *inMemoryDeduper) drop(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.keys, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}
