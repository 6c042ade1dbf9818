package gdbstub

import (
	"testing"

	"github.com/rv64lab/emu64/internal/bus"
	"github.com/rv64lab/emu64/internal/cpustate"
)

func newTestState(t *testing.T) *cpustate.State {
	t.Helper()
	b, err := bus.New(0x8000_0000, 0x1000)
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	return cpustate.New(b, cpustate.Extensions{})
}

func TestEncodeDecodeAllRegsRoundTrip(t *testing.T) {
	st := newTestState(t)
	st.WriteReg(1, 0x1122334455667788)
	st.PC = 0x8000_0004

	encoded := encodeAllRegs(st)

	other := newTestState(t)
	if err := decodeAllRegs(other, encoded); err != nil {
		t.Fatalf("decodeAllRegs: %v", err)
	}
	if got := other.ReadReg(1); got != 0x1122334455667788 {
		t.Errorf("x1 = 0x%x, want 0x1122334455667788", got)
	}
	if other.PC != 0x8000_0004 {
		t.Errorf("pc = 0x%x, want 0x8000_0004", other.PC)
	}
}

func TestReadRegPC(t *testing.T) {
	st := newTestState(t)
	st.PC = 0xCAFEBABE
	v, err := readReg(st, 32)
	if err != nil {
		t.Fatalf("readReg(pc): %v", err)
	}
	got, err := decodeU64LE(v)
	if err != nil || got != 0xCAFEBABE {
		t.Fatalf("decoded pc = (0x%x, %v), want 0xcafebabe", got, err)
	}
}

func TestReadRegUnimplementedFails(t *testing.T) {
	st := newTestState(t)
	if _, err := readReg(st, 99); err == nil {
		t.Fatal("expected an error for an unimplemented register")
	}
}

func TestWriteRegGPR(t *testing.T) {
	st := newTestState(t)
	if err := writeReg(st, 5, 0x42); err != nil {
		t.Fatalf("writeReg: %v", err)
	}
	if got := st.ReadReg(5); got != 0x42 {
		t.Errorf("x5 = 0x%x, want 0x42", got)
	}
}
