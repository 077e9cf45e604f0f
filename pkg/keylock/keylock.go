// Package keylock provides striped locks keyed by string.
// Operations on the same key serialise, operations on keys that hash to different
// stripes run in parallel.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultStripes is the stripe count used when New is called with n <= 0.
const DefaultStripes = 256

// Locks is a fixed set of RWMutex stripes.
type Locks struct {
	stripes []sync.RWMutex
	mask    uint64
}

// New returns a Locks with at least n stripes, rounded up to a power of two.
func New(n int) *Locks {
	if n <= 0 {
		n = DefaultStripes
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return &Locks{
		stripes: make([]sync.RWMutex, size),
		mask:    uint64(size - 1),
	}
}

// Index returns the stripe index of key.
func (l *Locks) Index(key string) int {
	return Index(key, len(l.stripes))
}

// Lock locks the stripe of key and returns the unlock function.
func (l *Locks) Lock(key string) (unlock func()) {
	mu := &l.stripes[xxhash.Sum64String(key)&l.mask]
	mu.Lock()
	return mu.Unlock
}

// RLock read-locks the stripe of key and returns the unlock function.
func (l *Locks) RLock(key string) (unlock func()) {
	mu := &l.stripes[xxhash.Sum64String(key)&l.mask]
	mu.RLock()
	return mu.RUnlock
}

// Index maps key to [0, n). n must be a power of two.
func Index(key string, n int) int {
	return int(xxhash.Sum64String(key) & uint64(n-1))
}
