package contentstore

import (
	"hash/fnv"
	"time"
)

// Treap-based order-statistic index.
//
// Ordering: created_at ASC, then id ASC (deterministic). Every node keeps
// its subtree size so a page is located in O(log n) and read in O(page).

type orderKey struct {
	at int64
	id string
}

func keyOf(id string, at time.Time) orderKey { return orderKey{at: at.UnixNano(), id: id} }

func less(a, b orderKey) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.id < b.id
}

type node struct {
	key   orderKey
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priority hashes the id so heap order is independent of insertion order.
func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, k orderKey) *node {
	if n == nil {
		return &node{key: k, prio: priority(k.id), size: 1}
	}
	if less(k, n.key) {
		n.left = insert(n.left, k)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, k)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, k orderKey) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.key == k:
		// Rotate the higher-priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, k)
		}
	case less(k, n.key):
		n.left = remove(n.left, k)
	default:
		n.right = remove(n.right, k)
	}
	fix(n)
	return n
}

// collect appends up to limit ids in order, skipping the first skip.
func collect(n *node, skip, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	ls := nsize(n.left)
	if skip < ls {
		collect(n.left, skip, limit, out)
		skip = 0
	} else {
		skip -= ls
	}
	if len(*out) >= limit {
		return
	}
	if skip == 0 {
		*out = append(*out, n.key.id)
	} else {
		skip--
	}
	collect(n.right, skip, limit, out)
}

func walk(n *node, fn func(id string) bool) bool {
	if n == nil {
		return true
	}
	return walk(n.left, fn) && fn(n.key.id) && walk(n.right, fn)
}

// index is not safe for concurrent use; MemoryStore guards it.
type index struct {
	root *node
}

func (x *index) add(id string, at time.Time)    { x.root = insert(x.root, keyOf(id, at)) }
func (x *index) remove(id string, at time.Time) { x.root = remove(x.root, keyOf(id, at)) }
func (x *index) len() int                       { return nsize(x.root) }

// page returns the ids at [offset, offset+limit).
func (x *index) page(offset, limit int) []string {
	if offset < 0 || limit <= 0 || offset >= x.len() {
		return nil
	}
	out := make([]string, 0, limit)
	collect(x.root, offset, limit, &out)
	return out
}

// each visits ids in order until fn returns false.
func (x *index) each(fn func(id string) bool) { walk(x.root, fn) }
