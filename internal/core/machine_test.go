package core_test

import (
	"bytes"
	"testing"

	"github.com/rv64lab/emu64/internal/bus"
	"github.com/rv64lab/emu64/internal/core"
	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/decoder"
	"github.com/rv64lab/emu64/internal/device"
	"github.com/rv64lab/emu64/internal/event"
	"github.com/rv64lab/emu64/internal/isa"
	"github.com/rv64lab/emu64/internal/trap"
)

const memBase = 0x8000_0000

func newMachine(t *testing.T, ext cpustate.Extensions) (*core.Machine, *bus.Bus) {
	t.Helper()
	b, err := bus.New(memBase, 0x10000)
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	st := cpustate.New(b, ext)
	st.PC = memBase
	st.NPC = memBase
	dec := decoder.Build(isa.BuildDescriptors(ext), ext.C, 0)
	m := core.New(st, dec, 64, nil)
	return m, b
}

func writeProgram(t *testing.T, b *bus.Bus, addr uint64, words ...uint32) {
	t.Helper()
	for i, w := range words {
		if err := b.Write32(addr+uint64(i)*4, w); err != nil {
			t.Fatalf("writeProgram: %v", err)
		}
	}
}

// Scenario A: lui x1, 0x12345; addiw x1, x1, 0x678.
func TestScenarioA_LuiAddiwSequence(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{})
	lui := uint32(0x12345<<12) | (1 << 7) | 0b0110111
	addiw := uint32(0x678<<20) | (1 << 15) | (1 << 7) | 0b0011011
	writeProgram(t, b, memBase, lui, addiw)

	if err := m.Steps(2); err != nil {
		t.Fatalf("Steps(2): %v", err)
	}
	if got := m.State.ReadReg(1); got != 0x0000_0000_1234_5678 {
		t.Errorf("x1 = 0x%x, want 0x12345678", got)
	}
	if m.State.PC != memBase+8 {
		t.Errorf("pc = 0x%x, want 0x%x", m.State.PC, memBase+8)
	}
}

// Scenario B: beq x0, x0, +6 is taken to a misaligned target; pending
// exception records it and pc is left unchanged.
func TestScenarioB_BranchMisaligned(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{})
	// B-type encoding for BEQ x0,x0,+6: imm=6 (0b0000000000110), rs1=rs2=0, funct3=000, opcode=1100011.
	// imm[12]=0 imm[11]=0 imm[10:5]=0 imm[4:1]=0b0011 imm[0]=0(always)
	beq := uint32(0b0011<<8) | 0b1100011
	writeProgram(t, b, memBase, beq)

	err := m.Step()
	if err == nil {
		t.Fatal("expected a pending InstructionAddressMisaligned exception")
	}
	misaligned, ok := err.(*trap.InstructionAddressMisaligned)
	if !ok {
		t.Fatalf("error = %T, want *trap.InstructionAddressMisaligned", err)
	}
	if misaligned.Target != memBase+6 {
		t.Errorf("target = 0x%x, want 0x%x", misaligned.Target, memBase+6)
	}
	if m.State.PC != memBase {
		t.Errorf("pc = 0x%x, want unchanged at 0x%x", m.State.PC, memBase)
	}
}

// Scenario C: sd x2, 0(x1); ld x3, 0(x1) round-trips a 64-bit value
// and leaves the expected little-endian bytes in memory.
func TestScenarioC_LoadStoreRoundTrip(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{})
	m.State.WriteReg(1, 0x8000_1000)
	m.State.WriteReg(2, 0xDEADBEEFCAFEBABE)

	sd := uint32(2<<20) | (1 << 15) | (0b011 << 12) | 0b0100011 // sd x2, 0(x1)
	ld := uint32(1<<15) | (0b011 << 12) | (3 << 7) | 0b0000011  // ld x3, 0(x1)
	writeProgram(t, b, memBase, sd, ld)

	if err := m.Steps(2); err != nil {
		t.Fatalf("Steps(2): %v", err)
	}
	if got := m.State.ReadReg(3); got != 0xDEADBEEFCAFEBABE {
		t.Errorf("x3 = 0x%x, want 0xDEADBEEFCAFEBABE", got)
	}
	lo, err := b.Read8(0x8000_1000)
	if err != nil {
		t.Fatalf("Read8: %v", err)
	}
	hi, err := b.Read8(0x8000_1001)
	if err != nil {
		t.Fatalf("Read8: %v", err)
	}
	if lo != 0xBE || hi != 0xBA {
		t.Errorf("memory bytes = 0x%02x 0x%02x, want 0xbe 0xba", lo, hi)
	}
}

// Scenario D: divu x7,x5,x6 / remu x8,x5,x6 with x6=0.
func TestScenarioD_UnsignedDivideByZero(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{M: true})
	m.State.WriteReg(5, 42)
	m.State.WriteReg(6, 0)

	divu := uint32(1<<25) | (6 << 20) | (5 << 15) | (0b101 << 12) | (7 << 7) | 0b0110011
	remu := uint32(1<<25) | (6 << 20) | (5 << 15) | (0b111 << 12) | (8 << 7) | 0b0110011
	writeProgram(t, b, memBase, divu, remu)

	if err := m.Steps(2); err != nil {
		t.Fatalf("Steps(2): %v", err)
	}
	if got := m.State.ReadReg(7); got != 0xFFFF_FFFF_FFFF_FFFF {
		t.Errorf("x7 (divu) = 0x%x, want all-ones", got)
	}
	if got := m.State.ReadReg(8); got != 42 {
		t.Errorf("x8 (remu) = %d, want 42", got)
	}
}

// Scenario E: sb x1, 0(x2) to a mapped UART emits one byte and sets
// the MMIO touch flag.
func TestScenarioE_UARTWrite(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{})
	var out bytes.Buffer
	uart := device.NewUART("uart0", &out)
	if err := b.MapMMIO(0x1000_0000, 0x100, uart, "uart0"); err != nil {
		t.Fatalf("MapMMIO: %v", err)
	}
	b.SortMMIORegions()

	m.State.WriteReg(1, 0x41)
	m.State.WriteReg(2, 0x1000_0000)
	sb := uint32(1<<20) | (2 << 15) | 0b0100011 // sb x1, 0(x2)
	writeProgram(t, b, memBase, sb)

	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out.String() != "A" {
		t.Errorf("uart output = %q, want %q", out.String(), "A")
	}
	if !b.MMIOTouched() {
		t.Error("MMIO touch flag should be set after the UART write")
	}
}

func TestEBREAKHalts(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{})
	writeProgram(t, b, memBase, 0x00100073) // ebreak
	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !m.Halted {
		t.Error("machine should be halted after EBREAK")
	}
	if m.Events.Len() == 0 {
		t.Fatal("EBREAK should push a Halted event")
	}
	evs := m.Events.Snapshot()
	if evs[len(evs)-1].Kind != event.Halted {
		t.Errorf("last event = %v, want Halted", evs[len(evs)-1].Kind)
	}
}

func TestDifftestCatchesMismatch(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{})
	writeProgram(t, b, memBase, 0b0110111) // lui x0, 0 (no-op, x0 stays 0)
	m.Reference = core.NewFixedReference(core.ReferenceState{PC: memBase + 999})

	if err := m.Step(); err == nil {
		t.Fatal("expected difftest mismatch error")
	}
	if !m.Halted {
		t.Error("a difftest mismatch should halt the machine")
	}
}

func TestBreakpointAbortsBeforeFetch(t *testing.T) {
	m, b := newMachine(t, cpustate.Extensions{})
	addi := uint32(1<<20) | (1 << 7) | 0b0010011 // addi x1, x0, 1
	writeProgram(t, b, memBase, addi)
	m.State.WriteReg(1, 0)
	m.Debugger = alwaysBreak{}

	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if m.State.Event.Kind != event.Break {
		t.Fatalf("event = %v, want Break", m.State.Event.Kind)
	}
	if got := m.State.ReadReg(1); got != 0 {
		t.Errorf("x1 = %d, want 0 (instruction must not execute)", got)
	}
}

type alwaysBreak struct{}

func (alwaysBreak) Breakpoint(pc uint64) bool { return true }
