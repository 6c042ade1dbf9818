// Package disasm renders a short diagnostic disassembly window around
// a faulting pc: a handful of instructions before and after, one per
// line, mnemonic plus raw operand fields. It stays a minimal,
// stdlib-only diagnostic aid rather than a general-purpose
// disassembler — it exists for fault dumps, not for an objdump
// replacement.
package disasm

import (
	"fmt"
	"strings"

	"github.com/rv64lab/emu64/internal/bitutil"
	"github.com/rv64lab/emu64/internal/decoder"
)

// Fetcher reads a 32-bit-aligned window of memory for disassembly; a
// *bus.Bus satisfies it via ReadU32Fast/Read already used by the
// fetch path, but disasm only needs raw bytes so it takes the
// narrower interface.
type Fetcher interface {
	Read(addr uint64, size int) (uint64, error)
}

// Line is one decoded instruction in a window dump.
type Line struct {
	PC   uint64
	Raw  uint32
	Name string
	Err  error
}

// String renders "-> " for the current pc, then address, raw word,
// and mnemonic.
func (l Line) String(current uint64) string {
	marker := "   "
	if l.PC == current {
		marker = "-> "
	}
	if l.Err != nil {
		return fmt.Sprintf("%s0x%016x: <decode error: %v>", marker, l.PC, l.Err)
	}
	return fmt.Sprintf("%s0x%016x: %08x  %-8s %s", marker, l.PC, l.Raw, l.Name, operandHint(l.Raw))
}

// operandHint renders the rd/rs1/rs2 fields every R/I/S/B format
// shares in fixed bit positions, by ABI register name. It is a best
// effort annotation, not a full per-format decode: U/J-type immediates
// and AMO-specific fields are not broken out here, since the window
// dump only needs to help a reader recognise which registers an
// instruction touches, not reproduce its full operand syntax.
func operandHint(inst uint32) string {
	return fmt.Sprintf("rd=%s rs1=%s rs2=%s", regName(rdOf(inst)), regName(rs1Of(inst)), regName(rs2Of(inst)))
}

// Window decodes `before` instructions leading up to pc and `after`
// instructions following it (all treated as uncompressed 4-byte words,
// since the window is only a diagnostic aid and need not handle RVC
// alignment drift precisely). Reads outside mapped memory produce a
// Line carrying the read error rather than aborting the whole window.
func Window(f Fetcher, dec *decoder.Decoder, pc uint64, before, after int) []Line {
	start := pc - uint64(before)*4
	lines := make([]Line, 0, before+after+1)
	for addr := start; addr <= pc+uint64(after)*4; addr += 4 {
		lines = append(lines, decodeOne(f, dec, addr))
	}
	return lines
}

func decodeOne(f Fetcher, dec *decoder.Decoder, addr uint64) Line {
	raw, err := f.Read(addr, 4)
	if err != nil {
		return Line{PC: addr, Err: err}
	}
	desc, err := dec.Decode(uint32(raw))
	if err != nil {
		return Line{PC: addr, Raw: uint32(raw), Err: err}
	}
	return Line{PC: addr, Raw: uint32(raw), Name: desc.Name}
}

// Dump renders a full window as a multi-line string, suitable for
// inclusion alongside cpustate.State.String() in a fault report.
func Dump(f Fetcher, dec *decoder.Decoder, pc uint64, before, after int) string {
	var b strings.Builder
	for _, l := range Window(f, dec, pc, before, after) {
		b.WriteString(l.String(pc))
		b.WriteByte('\n')
	}
	return b.String()
}

// regName returns the ABI name for GPR n falling back to xN, matching
// the register names a reader would expect in a trace line.
func regName(n uint32) string {
	if n < uint32(len(abiNames)) {
		return abiNames[n]
	}
	return fmt.Sprintf("x%d", n)
}

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// rdOf, rs1Of, rs2Of pull the common register fields out of a raw
// instruction word for annotation purposes; not every mnemonic uses
// all three, so callers only consult the fields their format defines.
func rdOf(inst uint32) uint32  { return bitutil.BitRange32(inst, 7, 12) }
func rs1Of(inst uint32) uint32 { return bitutil.BitRange32(inst, 15, 20) }
func rs2Of(inst uint32) uint32 { return bitutil.BitRange32(inst, 20, 25) }
