package isa

import (
	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/trap"
)

// execLUI implements U-type LUI: rd <- sign-extended imm[31:12]<<12.
func execLUI(st *cpustate.State, inst uint32, pc uint64) error {
	st.WriteReg(rd(inst), uint64(uImm(inst)))
	return nil
}

// execAUIPC implements U-type AUIPC: rd <- pc + imm[31:12]<<12.
func execAUIPC(st *cpustate.State, inst uint32, pc uint64) error {
	st.WriteReg(rd(inst), pc+uint64(uImm(inst)))
	return nil
}

// execJAL implements J-type JAL. The link value is the pre-computed
// npc the execution loop set before invoking this handler (pc+2 for a
// compressed-expanded jal, pc+4 otherwise), so the handler never
// hardcodes an instruction width.
func execJAL(st *cpustate.State, inst uint32, pc uint64) error {
	link := st.NPC
	target := uint64(int64(pc) + jImm(inst))
	if target&0b11 != 0 {
		st.SetPendingException(&trap.InstructionAddressMisaligned{Target: target})
		return nil
	}
	st.WriteReg(rd(inst), link)
	st.NPC = target
	return nil
}

// execJALR implements I-type JALR.
func execJALR(st *cpustate.State, inst uint32, pc uint64) error {
	link := st.NPC
	target := (uint64(int64(st.ReadReg(rs1(inst))) + iImm(inst))) &^ 1
	if target&0b11 != 0 {
		st.SetPendingException(&trap.InstructionAddressMisaligned{Target: target})
		return nil
	}
	st.WriteReg(rd(inst), link)
	st.NPC = target
	return nil
}

func branchTaken(st *cpustate.State, inst uint32, funct3v uint32) bool {
	a, b := st.ReadReg(rs1(inst)), st.ReadReg(rs2(inst))
	switch funct3v {
	case 0b000: // BEQ
		return a == b
	case 0b001: // BNE
		return a != b
	case 0b100: // BLT
		return int64(a) < int64(b)
	case 0b101: // BGE
		return int64(a) >= int64(b)
	case 0b110: // BLTU
		return a < b
	case 0b111: // BGEU
		return a >= b
	default:
		return false
	}
}

// execBranch implements the B-type conditional branches. If not
// taken, npc is left as the loop's pre-computed pc+width.
func execBranch(st *cpustate.State, inst uint32, pc uint64) error {
	if !branchTaken(st, inst, funct3(inst)) {
		return nil
	}
	target := uint64(int64(pc) + bImm(inst))
	if target&0b11 != 0 {
		st.SetPendingException(&trap.InstructionAddressMisaligned{Target: target})
		return nil
	}
	st.NPC = target
	return nil
}

func execLoad(st *cpustate.State, inst uint32, pc uint64) error {
	addr := uint64(int64(st.ReadReg(rs1(inst))) + iImm(inst))
	var v uint64
	var err error
	switch funct3(inst) {
	case 0b000: // LB
		var b uint8
		b, err = st.Bus.Read8(addr)
		v = uint64(int64(int8(b)))
	case 0b001: // LH
		var h uint16
		h, err = st.Bus.Read16(addr)
		v = uint64(int64(int16(h)))
	case 0b010: // LW
		var w uint32
		w, err = st.Bus.Read32(addr)
		v = uint64(int64(int32(w)))
	case 0b011: // LD
		v, err = st.Bus.Read64(addr)
	case 0b100: // LBU
		var b uint8
		b, err = st.Bus.Read8(addr)
		v = uint64(b)
	case 0b101: // LHU
		var h uint16
		h, err = st.Bus.Read16(addr)
		v = uint64(h)
	case 0b110: // LWU
		var w uint32
		w, err = st.Bus.Read32(addr)
		v = uint64(w)
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	if err != nil {
		return err
	}
	st.WriteReg(rd(inst), v)
	return nil
}

func execStore(st *cpustate.State, inst uint32, pc uint64) error {
	addr := uint64(int64(st.ReadReg(rs1(inst))) + sImm(inst))
	val := st.ReadReg(rs2(inst))
	switch funct3(inst) {
	case 0b000:
		return st.Bus.Write8(addr, uint8(val))
	case 0b001:
		return st.Bus.Write16(addr, uint16(val))
	case 0b010:
		return st.Bus.Write32(addr, uint32(val))
	case 0b011:
		return st.Bus.Write64(addr, val)
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
}

func execOpImm(st *cpustate.State, inst uint32, pc uint64) error {
	a := st.ReadReg(rs1(inst))
	imm := iImm(inst)
	var v uint64
	switch funct3(inst) {
	case 0b000: // ADDI
		v = uint64(int64(a) + imm)
	case 0b010: // SLTI
		if int64(a) < imm {
			v = 1
		}
	case 0b011: // SLTIU
		if a < uint64(imm) {
			v = 1
		}
	case 0b100: // XORI
		v = a ^ uint64(imm)
	case 0b110: // ORI
		v = a | uint64(imm)
	case 0b111: // ANDI
		v = a & uint64(imm)
	case 0b001: // SLLI
		v = a << shamt6(inst)
	case 0b101: // SRLI/SRAI
		if funct7(inst)&0b0100000 != 0 {
			v = uint64(int64(a) >> shamt6(inst))
		} else {
			v = a >> shamt6(inst)
		}
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	st.WriteReg(rd(inst), v)
	return nil
}

func execOpImm32(st *cpustate.State, inst uint32, pc uint64) error {
	a := uint32(st.ReadReg(rs1(inst)))
	imm := int32(iImm(inst))
	var v int32
	switch funct3(inst) {
	case 0b000: // ADDIW
		v = int32(a) + imm
	case 0b001: // SLLIW
		v = int32(a << shamt5(inst))
	case 0b101: // SRLIW/SRAIW
		if funct7(inst)&0b0100000 != 0 {
			v = int32(a) >> shamt5(inst)
		} else {
			v = int32(a >> shamt5(inst))
		}
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	st.WriteReg(rd(inst), uint64(int64(v)))
	return nil
}

func execOp(st *cpustate.State, inst uint32, pc uint64) error {
	a, b := st.ReadReg(rs1(inst)), st.ReadReg(rs2(inst))
	var v uint64
	switch funct3(inst) {
	case 0b000: // ADD/SUB
		if funct7(inst)&0b0100000 != 0 {
			v = a - b
		} else {
			v = a + b
		}
	case 0b001: // SLL
		v = a << (b & 0x3f)
	case 0b010: // SLT
		if int64(a) < int64(b) {
			v = 1
		}
	case 0b011: // SLTU
		if a < b {
			v = 1
		}
	case 0b100: // XOR
		v = a ^ b
	case 0b101: // SRL/SRA
		if funct7(inst)&0b0100000 != 0 {
			v = uint64(int64(a) >> (b & 0x3f))
		} else {
			v = a >> (b & 0x3f)
		}
	case 0b110: // OR
		v = a | b
	case 0b111: // AND
		v = a & b
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	st.WriteReg(rd(inst), v)
	return nil
}

func execOp32(st *cpustate.State, inst uint32, pc uint64) error {
	a, b := int32(st.ReadReg(rs1(inst))), int32(st.ReadReg(rs2(inst)))
	var v int32
	switch funct3(inst) {
	case 0b000: // ADDW/SUBW
		if funct7(inst)&0b0100000 != 0 {
			v = a - b
		} else {
			v = a + b
		}
	case 0b001: // SLLW
		v = a << (uint32(b) & 0x1f)
	case 0b101: // SRLW/SRAW
		if funct7(inst)&0b0100000 != 0 {
			v = a >> (uint32(b) & 0x1f)
		} else {
			v = int32(uint32(a) >> (uint32(b) & 0x1f))
		}
	default:
		return &trap.IllegalInstruction{Inst: inst, PC: pc}
	}
	st.WriteReg(rd(inst), uint64(int64(v)))
	return nil
}
