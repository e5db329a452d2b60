package dbus

import "testing"

func TestSerialAllocator_MonotonicAndNonzero(t *testing.T) {
	var a serialAllocator
	seen := make(map[uint32]bool)
	for i := 0; i < 1000; i++ {
		s := a.Next()
		if s == 0 {
			t.Fatalf("serial allocator returned 0 at iteration %d", i)
		}
		if seen[s] {
			t.Fatalf("serial %d allocated twice", s)
		}
		seen[s] = true
	}
}

func TestSerialAllocator_SkipsZeroOnWraparound(t *testing.T) {
	var a serialAllocator
	a.next.Store(^uint32(0) - 1) // next Add(1) lands on max, then wraps to 0
	first := a.Next()
	if first != ^uint32(0) {
		t.Fatalf("expected max uint32, got %d", first)
	}
	second := a.Next()
	if second == 0 {
		t.Fatalf("serial allocator returned 0 after wraparound")
	}
	if second != 1 {
		t.Fatalf("expected wraparound to skip to 1, got %d", second)
	}
}
