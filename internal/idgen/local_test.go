package idgen

import (
	"testing"
	"time"
)

func TestNextAlwaysNegative(t *testing.T) {
	a := New()
	for i := 0; i < 1000; i++ {
		id := a.Next()
		if id >= 0 {
			t.Fatalf("Next() = %d, want negative", id)
		}
	}
}

func TestNextStrictlyDecreasing(t *testing.T) {
	a := New()
	prev := a.Next()
	for i := 0; i < 1000; i++ {
		id := a.Next()
		if id >= prev {
			t.Fatalf("Next() = %d after %d, want strictly decreasing", id, prev)
		}
		prev = id
	}
}

func TestNextDecreasesAcrossClockRewind(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	a := &Allocator{now: func() time.Time {
		calls++
		if calls > 1 {
			return base.Add(-time.Hour) // clock jumps backwards
		}
		return base
	}}

	first := a.Next()
	second := a.Next()
	if second >= first {
		t.Errorf("clock rewind broke monotonicity: %d then %d", first, second)
	}
}

func TestNextNeverZero(t *testing.T) {
	// Force the clock/counter mix to hit a multiple of the modulus.
	a := &Allocator{now: func() time.Time {
		return time.UnixMilli(modulus ^ 1)
	}}
	if id := a.Next(); id == 0 {
		t.Error("Next() issued the reserved ID 0")
	}
}

func TestReserveContiguousDescending(t *testing.T) {
	a := New()
	ids := a.Reserve(100)
	if len(ids) != 100 {
		t.Fatalf("Reserve(100) returned %d ids", len(ids))
	}
	for i, id := range ids {
		if id >= 0 {
			t.Fatalf("ids[%d] = %d, want negative", i, id)
		}
		if i > 0 && id != ids[i-1]-1 {
			t.Fatalf("ids[%d] = %d, want %d (contiguous descending)", i, id, ids[i-1]-1)
		}
	}

	// Allocation after a reserve must continue below the block.
	next := a.Next()
	if next >= ids[len(ids)-1] {
		t.Errorf("Next() = %d, want below block end %d", next, ids[len(ids)-1])
	}
}

func TestReserveZero(t *testing.T) {
	a := New()
	if got := a.Reserve(0); got != nil {
		t.Errorf("Reserve(0) = %v, want nil", got)
	}
}

func TestConcurrentAllocationsUnique(t *testing.T) {
	a := New()
	const workers, each = 8, 500

	out := make(chan int64, workers*each)
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			for i := 0; i < each; i++ {
				out <- a.Next()
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	close(out)

	seen := make(map[int64]bool, workers*each)
	for id := range out {
		if seen[id] {
			t.Fatalf("duplicate ID %d", id)
		}
		seen[id] = true
	}
}
