package isa

import (
	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/trap"
)

// A-extension funct5 values (inst[31:27]), shared by the .W and .D
// forms distinguished by funct3.
const (
	amoFunctLR      = 0b00010
	amoFunctSC      = 0b00011
	amoFunctSwap    = 0b00001
	amoFunctAdd     = 0b00000
	amoFunctXor     = 0b00100
	amoFunctAnd     = 0b01100
	amoFunctOr      = 0b01000
	amoFunctMin     = 0b10000
	amoFunctMax     = 0b10100
	amoFunctMinu    = 0b11000
	amoFunctMaxu    = 0b11100
)

func amoFunct(inst uint32) uint32 { return funct7(inst) >> 2 }

// execAMOW implements the 32-bit atomic memory operations, including
// LR.W/SC.W. Single-hart execution means every access is already
// totally ordered, so LR/SC are implemented as trivially successful:
// LR.W is an ordinary load and SC.W is an ordinary store that always
// reports success (rd = 0), matching a single-hart reservation that
// can never be invalidated between the two.
func execAMOW(st *cpustate.State, inst uint32, pc uint64) error {
	addr := st.ReadReg(rs1(inst))
	switch amoFunct(inst) {
	case amoFunctLR:
		w, err := st.Bus.Read32(addr)
		if err != nil {
			return err
		}
		st.WriteReg(rd(inst), uint64(int64(int32(w))))
		return nil
	case amoFunctSC:
		if err := st.Bus.Write32(addr, uint32(st.ReadReg(rs2(inst)))); err != nil {
			return err
		}
		st.WriteReg(rd(inst), 0)
		return nil
	}

	old, err := st.Bus.Read32(addr)
	if err != nil {
		return err
	}
	oldVal := int32(old)
	operand := int32(st.ReadReg(rs2(inst)))
	var next int32
	switch amoFunct(inst) {
	case amoFunctSwap:
		next = operand
	case amoFunctAdd:
		next = oldVal + operand
	case amoFunctXor:
		next = oldVal ^ operand
	case amoFunctAnd:
		next = oldVal & operand
	case amoFunctOr:
		next = oldVal | operand
	case amoFunctMin:
		next = minI32(oldVal, operand)
	case amoFunctMax:
		next = maxI32(oldVal, operand)
	case amoFunctMinu:
		next = int32(minU32(uint32(oldVal), uint32(operand)))
	case amoFunctMaxu:
		next = int32(maxU32(uint32(oldVal), uint32(operand)))
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	if err := st.Bus.Write32(addr, uint32(next)); err != nil {
		return err
	}
	st.WriteReg(rd(inst), uint64(int64(oldVal)))
	return nil
}

// execAMOD implements the 64-bit atomic memory operations, including
// LR.D/SC.D, with the same trivially-successful single-hart treatment
// as execAMOW.
func execAMOD(st *cpustate.State, inst uint32, pc uint64) error {
	addr := st.ReadReg(rs1(inst))
	switch amoFunct(inst) {
	case amoFunctLR:
		v, err := st.Bus.Read64(addr)
		if err != nil {
			return err
		}
		st.WriteReg(rd(inst), v)
		return nil
	case amoFunctSC:
		if err := st.Bus.Write64(addr, st.ReadReg(rs2(inst))); err != nil {
			return err
		}
		st.WriteReg(rd(inst), 0)
		return nil
	}

	old, err := st.Bus.Read64(addr)
	if err != nil {
		return err
	}
	operand := st.ReadReg(rs2(inst))
	var next uint64
	switch amoFunct(inst) {
	case amoFunctSwap:
		next = operand
	case amoFunctAdd:
		next = old + operand
	case amoFunctXor:
		next = old ^ operand
	case amoFunctAnd:
		next = old & operand
	case amoFunctOr:
		next = old | operand
	case amoFunctMin:
		next = uint64(minI64(int64(old), int64(operand)))
	case amoFunctMax:
		next = uint64(maxI64(int64(old), int64(operand)))
	case amoFunctMinu:
		next = minU64(old, operand)
	case amoFunctMaxu:
		next = maxU64(old, operand)
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	if err := st.Bus.Write64(addr, next); err != nil {
		return err
	}
	st.WriteReg(rd(inst), old)
	return nil
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
