package gdbstub

import "testing"

func TestBreakpointAddIsIdempotent(t *testing.T) {
	bp := newBreakpointSet()
	bp.Add(0x1000)
	bp.Add(0x1000)
	if !bp.Breakpoint(0x1000) {
		t.Fatal("breakpoint should be set")
	}
	if !bp.Remove(0x1000) {
		t.Fatal("first Remove should report found")
	}
	if bp.Breakpoint(0x1000) {
		t.Fatal("breakpoint should be cleared after a single Remove")
	}
}

func TestBreakpointRemoveAbsentFails(t *testing.T) {
	bp := newBreakpointSet()
	if bp.Remove(0x2000) {
		t.Fatal("removing an absent breakpoint should report not found")
	}
}

func TestWatchpointExpandsRange(t *testing.T) {
	w := newWatchpointSet()
	w.Add(0x1000, 4, watchWrite)
	for addr := uint64(0x1000); addr < 0x1004; addr++ {
		if !w.Hit(addr, 1, true) {
			t.Errorf("address 0x%x should be watched for write", addr)
		}
	}
	if w.Hit(0x1004, 1, true) {
		t.Error("address 0x1004 is outside the watched range")
	}
}

func TestWatchpointKindDistinguishesReadWrite(t *testing.T) {
	w := newWatchpointSet()
	w.Add(0x2000, 1, watchRead)
	if w.Hit(0x2000, 1, true) {
		t.Error("a read-only watchpoint must not fire on write")
	}
	if !w.Hit(0x2000, 1, false) {
		t.Error("a read-only watchpoint must fire on read")
	}
}

func TestWatchpointRemove(t *testing.T) {
	w := newWatchpointSet()
	w.Add(0x3000, 2, watchAccess)
	if !w.Remove(0x3000, 2) {
		t.Fatal("Remove should report found")
	}
	if w.Hit(0x3000, 2, true) || w.Hit(0x3000, 2, false) {
		t.Fatal("watchpoint should no longer fire after Remove")
	}
}
