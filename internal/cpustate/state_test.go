package cpustate

import (
	"testing"

	"github.com/rv64lab/emu64/internal/bus"
	"github.com/rv64lab/emu64/internal/trap"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	b, err := bus.New(0x8000_0000, 0x1000)
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	return New(b, Extensions{})
}

func TestX0AlwaysReadsZero(t *testing.T) {
	st := newTestState(t)
	st.WriteReg(0, 0xDEADBEEF)
	if got := st.ReadReg(0); got != 0 {
		t.Errorf("ReadReg(0) = 0x%x, want 0", got)
	}
}

func TestRegisterWriteReadRoundTrip(t *testing.T) {
	st := newTestState(t)
	st.WriteReg(5, 0x1122334455667788)
	if got := st.ReadReg(5); got != 0x1122334455667788 {
		t.Errorf("ReadReg(5) = 0x%x, want 0x1122334455667788", got)
	}
}

func TestInvalidRegisterPanics(t *testing.T) {
	st := newTestState(t)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for register index >= 32")
		}
		if _, ok := r.(*trap.InvalidRegister); !ok {
			t.Fatalf("expected *trap.InvalidRegister, got %T", r)
		}
	}()
	st.ReadReg(32)
}

func TestSyncPCCommitsNPC(t *testing.T) {
	st := newTestState(t)
	st.NPC = 0x8000_0004
	st.SyncPC()
	if st.PC != 0x8000_0004 {
		t.Errorf("PC = 0x%x, want 0x8000_0004", st.PC)
	}
}

func TestCSRReadWriteRoundTrip(t *testing.T) {
	st := newTestState(t)
	st.WriteCSR(CSRMscratch, 0x42)
	v, err := st.ReadCSR(CSRMscratch)
	if err != nil || v != 0x42 {
		t.Fatalf("ReadCSR(mscratch) = (0x%x, %v), want (0x42, nil)", v, err)
	}
}

func TestUnimplementedCSRReadFails(t *testing.T) {
	st := newTestState(t)
	if _, err := st.ReadCSR(0x7FF); err == nil {
		t.Fatal("expected error reading an unimplemented CSR")
	}
}

func TestUnimplementedCSRWriteSilentlyIgnored(t *testing.T) {
	st := newTestState(t)
	st.WriteCSR(0x7FF, 0x99) // must not panic
	if _, err := st.ReadCSR(0x7FF); err == nil {
		t.Fatal("write to an unimplemented CSR must not create an entry")
	}
}

func TestPendingExceptionSetAndTake(t *testing.T) {
	st := newTestState(t)
	exc := &trap.InstructionAddressMisaligned{Target: 0x8000_0006}
	st.SetPendingException(exc)
	got := st.TakePending()
	if got != exc {
		t.Fatalf("TakePending() = %v, want %v", got, exc)
	}
	if st.Pending != nil {
		t.Fatal("TakePending should clear the pending slot")
	}
}

func TestMisaReflectsEnabledExtensions(t *testing.T) {
	b, _ := bus.New(0x8000_0000, 0x1000)
	st := New(b, Extensions{M: true, A: true, C: true})
	misa, err := st.ReadCSR(CSRMisa)
	if err != nil {
		t.Fatalf("ReadCSR(misa): %v", err)
	}
	if misa&(1<<12) == 0 {
		t.Error("misa should report M extension enabled")
	}
	if misa&(1<<0) == 0 {
		t.Error("misa should report A extension enabled")
	}
	if misa&(1<<2) == 0 {
		t.Error("misa should report C extension enabled")
	}
	if misa&(1<<8) == 0 {
		t.Error("misa should always report I (base integer)")
	}
}
