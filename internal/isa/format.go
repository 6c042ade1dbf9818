// Package isa implements the RV64I instruction handlers, plus the M
// and A extension handlers enabled by configuration. Every handler has
// the signature decoder.Handler: (*cpustate.State, inst uint32, pc
// uint64) error, mutates architectural state through cpustate.State
// and internal/bus, and never panics on a well-formed instruction
// word — the decoder guarantees inst matched the descriptor's
// mask/identifier before a handler ever sees it.
package isa

import "github.com/rv64lab/emu64/internal/bitutil"

func opcode(inst uint32) uint32 { return bitutil.BitRange32(inst, 0, 7) }
func rd(inst uint32) uint32     { return bitutil.BitRange32(inst, 7, 12) }
func funct3(inst uint32) uint32 { return bitutil.BitRange32(inst, 12, 15) }
func rs1(inst uint32) uint32    { return bitutil.BitRange32(inst, 15, 20) }
func rs2(inst uint32) uint32    { return bitutil.BitRange32(inst, 20, 25) }
func funct7(inst uint32) uint32 { return bitutil.BitRange32(inst, 25, 32) }

// iImm extracts and sign-extends the I-type immediate (inst[31:20]).
func iImm(inst uint32) int64 {
	return bitutil.SignExtend64(uint64(bitutil.BitRange32(inst, 20, 32)), 12)
}

// sImm extracts and sign-extends the S-type immediate.
func sImm(inst uint32) int64 {
	v := bitutil.BitRange32(inst, 25, 32)<<5 | bitutil.BitRange32(inst, 7, 12)
	return bitutil.SignExtend64(uint64(v), 12)
}

// bImm extracts and sign-extends the B-type immediate (bit 0 is
// always 0; branch targets are 2-byte aligned).
func bImm(inst uint32) int64 {
	v := bitutil.Bit32(inst, 31)<<12 |
		bitutil.Bit32(inst, 7)<<11 |
		bitutil.BitRange32(inst, 25, 31)<<5 |
		bitutil.BitRange32(inst, 8, 12)<<1
	return bitutil.SignExtend64(uint64(v), 13)
}

// uImm extracts the U-type immediate: the top 20 bits, already placed
// in bit position, low 12 bits zero, then sign-extended from bit 31 to
// a full 64-bit value.
func uImm(inst uint32) int64 {
	v := uint64(bitutil.BitRange32(inst, 12, 32)) << 12
	return bitutil.SignExtend64(v, 32)
}

// jImm extracts and sign-extends the J-type immediate (bit 0 always 0).
func jImm(inst uint32) int64 {
	v := bitutil.Bit32(inst, 31)<<20 |
		bitutil.BitRange32(inst, 12, 20)<<12 |
		bitutil.Bit32(inst, 20)<<11 |
		bitutil.BitRange32(inst, 21, 31)<<1
	return bitutil.SignExtend64(uint64(v), 21)
}

// shamt6 extracts a 6-bit shift amount (inst[25:20] plus inst[25], used
// by the 64-bit shift forms).
func shamt6(inst uint32) uint32 { return bitutil.BitRange32(inst, 20, 26) }

// shamt5 extracts a 5-bit shift amount used by the *W forms.
func shamt5(inst uint32) uint32 { return bitutil.BitRange32(inst, 20, 25) }
