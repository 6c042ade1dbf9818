package device

import (
	"bytes"
	"testing"
)

func TestRegistryByName(t *testing.T) {
	r := NewRegistry()
	u := NewUART("uart0", &bytes.Buffer{})
	tm := NewTimer("timer0")
	r.Register(u)
	r.Register(tm)

	got, ok := r.ByName("uart0")
	if !ok || got != Device(u) {
		t.Fatalf("ByName(uart0) = (%v, %v), want (uart0, true)", got, ok)
	}
	if _, ok := r.ByName("missing"); ok {
		t.Fatal("ByName(missing) should report not found")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "uart0" || names[1] != "timer0" {
		t.Fatalf("Names() = %v, want [uart0 timer0]", names)
	}
}

func TestRegistryDuplicateNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate device name")
		}
	}()
	r := NewRegistry()
	r.Register(NewUART("dup", &bytes.Buffer{}))
	r.Register(NewUART("dup", &bytes.Buffer{}))
}
