package ring

import "testing"

func TestPushOverwriteWithinCapacity(t *testing.T) {
	b := New[int](4)
	b.PushOverwrite(1)
	b.PushOverwrite(2)
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	got := b.Snapshot()
	want := []int{1, 2}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("Snapshot()[%d] = %d, want %d", i, got[i], w)
		}
	}
}

func TestPushOverwriteOverwritesOldest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.PushOverwrite(i)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (capacity)", b.Len())
	}
	got := b.Snapshot()
	want := []int{3, 4, 5}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("Snapshot()[%d] = %d, want %d", i, got[i], w)
		}
	}
}

func TestPopFIFOOrder(t *testing.T) {
	b := New[string](3)
	b.PushOverwrite("a")
	b.PushOverwrite("b")
	v, ok := b.Pop()
	if !ok || v != "a" {
		t.Fatalf("Pop() = (%q, %v), want (a, true)", v, ok)
	}
	v, ok = b.Pop()
	if !ok || v != "b" {
		t.Fatalf("Pop() = (%q, %v), want (b, true)", v, ok)
	}
	if _, ok := b.Pop(); ok {
		t.Fatal("Pop() on empty buffer should fail")
	}
}

func TestPopAfterOverwriteReturnsMostRecentK(t *testing.T) {
	// A pop after k push_overwrites returns one of the most recent
	// min(k, capacity) items, in FIFO order.
	b := New[int](3)
	for i := 1; i <= 7; i++ {
		b.PushOverwrite(i)
	}
	want := []int{5, 6, 7}
	for _, w := range want {
		v, ok := b.Pop()
		if !ok || v != w {
			t.Fatalf("Pop() = (%d, %v), want (%d, true)", v, ok, w)
		}
	}
}

func TestCapNeverExceeded(t *testing.T) {
	b := New[int](2)
	for i := 0; i < 100; i++ {
		b.PushOverwrite(i)
	}
	if b.Len() > b.Cap() {
		t.Fatalf("Len() = %d exceeds Cap() = %d", b.Len(), b.Cap())
	}
}
