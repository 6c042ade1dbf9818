package isa

import (
	"math/bits"

	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/trap"
)

// execMulDiv implements the 64-bit M-extension OP forms (funct7 ==
// 0000001 within the OP opcode): MUL, MULH, MULHSU, MULHU, DIV, DIVU,
// REM, REMU. Division-by-zero and signed-overflow do not raise an
// exception; they follow the RISC-V unprivileged spec's defined
// results.
func execMulDiv(st *cpustate.State, inst uint32, pc uint64) error {
	a, b := st.ReadReg(rs1(inst)), st.ReadReg(rs2(inst))
	var v uint64
	switch funct3(inst) {
	case 0b000: // MUL
		v = a * b
	case 0b001: // MULH
		v = uint64(mulh(int64(a), int64(b)))
	case 0b010: // MULHSU
		v = uint64(mulhsu(int64(a), b))
	case 0b011: // MULHU
		hi, _ := bits.Mul64(a, b)
		v = hi
	case 0b100: // DIV
		sa, sb := int64(a), int64(b)
		switch {
		case sb == 0:
			v = ^uint64(0)
		case sa == minInt64 && sb == -1:
			v = uint64(1) << 63
		default:
			v = uint64(sa / sb)
		}
	case 0b101: // DIVU
		if b == 0 {
			v = ^uint64(0)
		} else {
			v = a / b
		}
	case 0b110: // REM
		sa, sb := int64(a), int64(b)
		switch {
		case sb == 0:
			v = a
		case sa == minInt64 && sb == -1:
			v = 0
		default:
			v = uint64(sa % sb)
		}
	case 0b111: // REMU
		if b == 0 {
			v = a
		} else {
			v = a % b
		}
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	st.WriteReg(rd(inst), v)
	return nil
}

const minInt64 = -1 << 63

func mulh(a, b int64) int64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	hi -= uint64(a>>63) & uint64(b)
	hi -= uint64(b>>63) & uint64(a)
	return int64(hi)
}

func mulhsu(a int64, b uint64) int64 {
	hi, _ := bits.Mul64(uint64(a), b)
	hi -= uint64(a>>63) & b
	return int64(hi)
}

// execMulDivW implements the 32-bit M-extension OP-32 forms: MULW,
// DIVW, DIVUW, REMW, REMUW (no MULHW family exists in the ISA).
func execMulDivW(st *cpustate.State, inst uint32, pc uint64) error {
	a, b := int32(st.ReadReg(rs1(inst))), int32(st.ReadReg(rs2(inst)))
	var v int32
	switch funct3(inst) {
	case 0b000: // MULW
		v = a * b
	case 0b100: // DIVW
		switch {
		case b == 0:
			v = -1
		case a == minInt32 && b == -1:
			v = minInt32
		default:
			v = a / b
		}
	case 0b101: // DIVUW
		ua, ub := uint32(a), uint32(b)
		if ub == 0 {
			v = -1
		} else {
			v = int32(ua / ub)
		}
	case 0b110: // REMW
		switch {
		case b == 0:
			v = a
		case a == minInt32 && b == -1:
			v = 0
		default:
			v = a % b
		}
	case 0b111: // REMUW
		ua, ub := uint32(a), uint32(b)
		if ub == 0 {
			v = int32(ua)
		} else {
			v = int32(ua % ub)
		}
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	st.WriteReg(rd(inst), uint64(int64(v)))
	return nil
}

const minInt32 = -1 << 31
