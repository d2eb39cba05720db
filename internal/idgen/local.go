// Package idgen allocates IDs for locally created offline entities.
//
// Server-owned entities get positive IDs from the backend's sequence and
// never pass through here. Local entities get negative IDs so the two
// populations can never collide and so the routing layer can dispatch on
// sign alone. Zero is reserved and never issued.
package idgen

import (
	"sync"
	"time"
)

// modulus bounds the magnitude of generated IDs to well inside 32-bit
// range, so local IDs stay safe in callers that narrow to int32.
const modulus = 1_000_000_000

// Allocator issues negative IDs that are unique and strictly decreasing
// within a process. Uniqueness across processes is not guaranteed; the
// insert path retries on the rare collision.
type Allocator struct {
	mu      sync.Mutex
	counter uint64
	last    int64 // last issued ID, 0 until the first allocation

	now func() time.Time // test hook
}

// New returns an allocator seeded from the wall clock.
func New() *Allocator {
	return &Allocator{now: time.Now}
}

// Next returns the next local ID. IDs mix the millisecond clock with a
// per-process counter, then clamp so each ID is strictly smaller (more
// negative) than the previous one.
func (a *Allocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next()
}

// Reserve returns n contiguous descending IDs in allocation order, so a
// bulk insert keeps a stable ID order without n lock round-trips.
func (a *Allocator) Reserve(n int) []int64 {
	if n <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]int64, n)
	first := a.next()
	ids[0] = first
	for i := 1; i < n; i++ {
		ids[i] = first - int64(i)
	}
	a.last = ids[n-1]
	return ids
}

func (a *Allocator) next() int64 {
	a.counter++
	ms := uint64(a.now().UnixMilli())
	candidate := -int64((ms ^ a.counter) % modulus)
	if candidate == 0 {
		candidate = -1
	}
	// Clamp to keep the sequence strictly decreasing even when the
	// clock-derived value jumps backwards or repeats.
	if a.last != 0 && candidate >= a.last {
		candidate = a.last - 1
	}
	a.last = candidate
	return candidate
}
