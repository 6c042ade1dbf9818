package gdbstub

import "sync"

// breakpointSet is a plain address set with idempotent add/remove. It
// is owned entirely by the adapter and consulted by the execution loop
// through the core.Debugger interface.
type breakpointSet struct {
	mu   sync.Mutex
	addr map[uint64]struct{}
}

func newBreakpointSet() *breakpointSet {
	return &breakpointSet{addr: make(map[uint64]struct{})}
}

// Add is idempotent: adding an address already present still succeeds.
func (b *breakpointSet) Add(addr uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addr[addr] = struct{}{}
}

// Remove reports whether addr was present.
func (b *breakpointSet) Remove(addr uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.addr[addr]; !ok {
		return false
	}
	delete(b.addr, addr)
	return true
}

// Breakpoint implements core.Debugger.
func (b *breakpointSet) Breakpoint(pc uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.addr[pc]
	return ok
}

// watchKind names the GDB 'Z'/'z' watchpoint types: write (type 2),
// read (type 3) and access (type 4, both). The constant values are not
// the type bytes; insertBreak maps each type byte to its kind.
type watchKind int

const (
	watchWrite watchKind = iota
	watchRead
	watchAccess
)

// watchpointSet expands each (base, len) registration to every
// individual address in [base, base+len) it covers.
type watchpointSet struct {
	mu    sync.Mutex
	addrs map[uint64]watchKind
}

func newWatchpointSet() *watchpointSet {
	return &watchpointSet{addrs: make(map[uint64]watchKind)}
}

func (w *watchpointSet) Add(base, length uint64, kind watchKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for a := base; a < base+length; a++ {
		w.addrs[a] = kind
	}
}

func (w *watchpointSet) Remove(base, length uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	found := false
	for a := base; a < base+length; a++ {
		if _, ok := w.addrs[a]; ok {
			found = true
			delete(w.addrs, a)
		}
	}
	return found
}

// Hit implements bus.WatchFunc: it reports whether any address in
// [addr, addr+size) is watched for the given access direction.
func (w *watchpointSet) Hit(addr uint64, size int, write bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for a := addr; a < addr+uint64(size); a++ {
		kind, ok := w.addrs[a]
		if !ok {
			continue
		}
		switch kind {
		case watchAccess:
			return true
		case watchWrite:
			if write {
				return true
			}
		case watchRead:
			if !write {
				return true
			}
		}
	}
	return false
}
